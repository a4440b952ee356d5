package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestUnionCI(t *testing.T) {
	got := unionCI([]string{"Alice", "Bob"}, []string{"bob", "Carol"})
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, got)
}

func TestMerge_PrefersANonNull(t *testing.T) {
	a := &BookMetadata{Title: "A Title", Publisher: strPtr("Penguin"), Confidence: 0.9, Source: "OpenLibrary"}
	b := &BookMetadata{Title: "B Title", Publisher: strPtr("Random House"), Confidence: 0.5, Source: "GoogleBooks"}

	merged := Merge(a, b)

	assert.Equal(t, "A Title", merged.Title)
	assert.Equal(t, "Penguin", *merged.Publisher)
	assert.Equal(t, "OpenLibrary+GoogleBooks", merged.Source)
	assert.Equal(t, 0.9, merged.Confidence)
}

func TestMerge_HigherConfidenceBWinsWhenBothPresent(t *testing.T) {
	a := &BookMetadata{Title: "A Title", Publisher: strPtr("Stale Co"), Confidence: 0.5}
	b := &BookMetadata{Title: "B Title", Publisher: strPtr("Fresh Co"), Confidence: 0.95}

	merged := Merge(a, b)

	assert.Equal(t, "Fresh Co", *merged.Publisher)
	assert.Equal(t, 0.95, merged.Confidence)
}

func TestMerge_FillsNullFromB(t *testing.T) {
	a := &BookMetadata{Title: "Title", Confidence: 0.9}
	b := &BookMetadata{Title: "Title", Publisher: strPtr("Filled In"), Confidence: 0.5}

	merged := Merge(a, b)

	assert.Equal(t, "Filled In", *merged.Publisher)
}

func TestMerge_NilOperands(t *testing.T) {
	a := &BookMetadata{Title: "Solo"}

	assert.Equal(t, a, Merge(a, nil))
	assert.Equal(t, a, Merge(nil, a))
}

func TestMerge_UnionsArrayFields(t *testing.T) {
	a := &BookMetadata{Authors: []string{"Jane Austen"}, Tags: []string{"Fiction"}}
	b := &BookMetadata{Authors: []string{"jane austen", "Someone Else"}, Tags: []string{"Classic"}}

	merged := Merge(a, b)

	assert.Equal(t, []string{"Jane Austen", "Someone Else"}, merged.Authors)
	assert.Equal(t, []string{"Fiction", "Classic"}, merged.Tags)
}
