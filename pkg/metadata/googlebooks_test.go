package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleBooksProvider_LookupByISBN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [{
				"volumeInfo": {
					"title": "Dune",
					"authors": ["Frank Herbert"],
					"publisher": "Ace Books",
					"publishedDate": "1965",
					"industryIdentifiers": [{"type": "ISBN_13", "identifier": "9780441013593"}],
					"imageLinks": {"thumbnail": "https://covers.example/dune.jpg"}
				}
			}]
		}`))
	}))
	defer srv.Close()

	p := NewGoogleBooksProvider("")
	p.baseURL = srv.URL
	p.client = srv.Client()

	got, err := p.LookupByISBN(context.Background(), "9780441013593")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, 0.75, got.Confidence)
	assert.Equal(t, "GoogleBooks", got.Source)
	require.NotNil(t, got.ISBN13)
	assert.Equal(t, "9780441013593", *got.ISBN13)
	require.NotNil(t, got.CoverURL)
}

func TestGoogleBooksProvider_LookupByISBN_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()

	p := NewGoogleBooksProvider("")
	p.baseURL = srv.URL
	p.client = srv.Client()

	_, err := p.LookupByISBN(context.Background(), "0000000000000")
	require.Error(t, err)
	assert.IsType(t, &ErrNotFound{}, err)
}

func TestGoogleBooksProvider_SearchByTitleAuthor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [{
				"volumeInfo": {"title": "Dune Messiah", "authors": ["Frank Herbert"]}
			}]
		}`))
	}))
	defer srv.Close()

	p := NewGoogleBooksProvider("")
	p.baseURL = srv.URL
	p.client = srv.Client()

	got, err := p.SearchByTitleAuthor(context.Background(), "Dune Messiah", "Frank Herbert")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Confidence >= 0.4 && got[0].Confidence <= 0.8)
}
