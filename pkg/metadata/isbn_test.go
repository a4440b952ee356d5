package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeISBN(t *testing.T) {
	assert.Equal(t, "9780141036144", NormalizeISBN("978-0-14-103614-4"))
	assert.Equal(t, "9780141036144", NormalizeISBN("978 0 14 103614 4"))
}

func TestIsValidISBN10(t *testing.T) {
	tests := []struct {
		name  string
		isbn  string
		valid bool
	}{
		{"valid with X check digit", "097522980X", true},
		{"valid numeric check digit", "0-306-40615-2", true},
		{"invalid checksum", "0306406153", false},
		{"wrong length", "12345", false},
		{"non-digit body", "03064A6152", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, IsValidISBN10(tc.isbn))
		})
	}
}

func TestIsValidISBN13(t *testing.T) {
	tests := []struct {
		name  string
		isbn  string
		valid bool
	}{
		{"valid", "978-0-306-40615-7", true},
		{"invalid checksum", "9780306406158", false},
		{"wrong length", "978030640615", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, IsValidISBN13(tc.isbn))
		})
	}
}

func TestIsValidISBN(t *testing.T) {
	assert.True(t, IsValidISBN("0-306-40615-2"))
	assert.True(t, IsValidISBN("978-0-306-40615-7"))
	assert.False(t, IsValidISBN("not-an-isbn"))
}

func TestISBN10ToISBN13(t *testing.T) {
	got, ok := ISBN10ToISBN13("0-306-40615-2")
	assert.True(t, ok)
	assert.Equal(t, "9780306406157", got)
	assert.True(t, IsValidISBN13(got))

	_, ok = ISBN10ToISBN13("not-valid")
	assert.False(t, ok)
}
