package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenLibraryProvider_LookupByISBN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"ISBN:9780306406157": {
				"title": "Pride and Prejudice",
				"authors": [{"name": "Jane Austen"}],
				"publishers": [{"name": "Penguin Classics"}],
				"publish_date": "2003",
				"number_of_pages": 432,
				"cover": {"large": "https://covers.example/1.jpg"}
			}
		}`))
	}))
	defer srv.Close()

	p := NewOpenLibraryProvider()
	p.baseURL = srv.URL
	p.client = srv.Client()

	got, err := p.LookupByISBN(context.Background(), "9780306406157")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Pride and Prejudice", got.Title)
	assert.Equal(t, []string{"Jane Austen"}, got.Authors)
	assert.Equal(t, "Penguin Classics", *got.Publisher)
	assert.Equal(t, 0.9, got.Confidence)
	assert.Equal(t, "OpenLibrary", got.Source)
	require.NotNil(t, got.ISBN13)
	assert.Equal(t, "9780306406157", *got.ISBN13)
}

func TestOpenLibraryProvider_LookupByISBN_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p := NewOpenLibraryProvider()
	p.baseURL = srv.URL
	p.client = srv.Client()

	_, err := p.LookupByISBN(context.Background(), "9780306406157")
	require.Error(t, err)
	assert.IsType(t, &ErrNotFound{}, err)
}

func TestOpenLibraryProvider_LookupByISBN_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenLibraryProvider()
	p.baseURL = srv.URL
	p.client = srv.Client()

	_, err := p.LookupByISBN(context.Background(), "9780306406157")
	require.Error(t, err)
	assert.IsType(t, &ErrRateLimited{}, err)
}

func TestOpenLibraryProvider_SearchByTitleAuthor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"docs": [
				{"title": "Emma", "author_name": ["Jane Austen"], "first_publish_year": 1815, "isbn": ["9780141439587"]}
			]
		}`))
	}))
	defer srv.Close()

	p := NewOpenLibraryProvider()
	p.baseURL = srv.URL
	p.client = srv.Client()

	got, err := p.SearchByTitleAuthor(context.Background(), "Emma", "Jane Austen")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Emma", got[0].Title)
	assert.True(t, got[0].Confidence >= 0.5 && got[0].Confidence <= 0.85)
}
