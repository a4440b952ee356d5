package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// OpenLibraryProvider queries the Open Library API
// (https://openlibrary.org/dev/docs/api/books). ISBN hits are treated as
// authoritative, registry-backed data and score confidence 0.9 (spec.md
// §4.3's default ordering relies on OpenLibrary outscoring GoogleBooks).
type OpenLibraryProvider struct {
	baseURL string
	client  *http.Client
}

// NewOpenLibraryProvider creates a provider against the public Open
// Library API.
func NewOpenLibraryProvider() *OpenLibraryProvider {
	return &OpenLibraryProvider{
		baseURL: "https://openlibrary.org",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *OpenLibraryProvider) Name() string { return "OpenLibrary" }

type openLibraryBookResponse struct {
	Title      string `json:"title"`
	Publishers []struct {
		Name string `json:"name"`
	} `json:"publishers"`
	PublishDate string `json:"publish_date"`
	NumberOfPages int  `json:"number_of_pages"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Subjects []struct {
		Name string `json:"name"`
	} `json:"subjects"`
	Cover struct {
		Large string `json:"large"`
	} `json:"cover"`
}

func (p *OpenLibraryProvider) LookupByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	u := fmt.Sprintf("%s/api/books?bibkeys=ISBN:%s&format=json&jscmd=data", p.baseURL, url.QueryEscape(isbn))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "openlibrary request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &ErrRateLimited{Provider: p.Name()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("openlibrary returned status %d", resp.StatusCode)
	}

	var payload map[string]openLibraryBookResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "openlibrary decode failed")
	}

	key := "ISBN:" + isbn
	book, ok := payload[key]
	if !ok {
		return nil, &ErrNotFound{Provider: p.Name()}
	}

	return openLibraryToMetadata(book, isbn), nil
}

func openLibraryToMetadata(book openLibraryBookResponse, isbn string) *BookMetadata {
	m := &BookMetadata{
		Title:      book.Title,
		Confidence: 0.9,
		Source:     "OpenLibrary",
	}

	for _, a := range book.Authors {
		m.Authors = append(m.Authors, a.Name)
	}
	for _, s := range book.Subjects {
		m.Tags = append(m.Tags, s.Name)
	}
	if len(book.Publishers) > 0 {
		m.Publisher = &book.Publishers[0].Name
	}
	if book.PublishDate != "" {
		m.PublishedDate = &book.PublishDate
	}
	if book.NumberOfPages > 0 {
		pc := book.NumberOfPages
		m.PageCount = &pc
	}
	if book.Cover.Large != "" {
		m.CoverURL = &book.Cover.Large
	}

	switch len(NormalizeISBN(isbn)) {
	case 10:
		v := NormalizeISBN(isbn)
		m.ISBN10 = &v
	case 13:
		v := NormalizeISBN(isbn)
		m.ISBN13 = &v
	}

	return m
}

type openLibrarySearchResponse struct {
	Docs []struct {
		Title        string   `json:"title"`
		AuthorName   []string `json:"author_name"`
		FirstPublish int      `json:"first_publish_year"`
		ISBN         []string `json:"isbn"`
		CoverI       int      `json:"cover_i"`
	} `json:"docs"`
}

func (p *OpenLibraryProvider) SearchByTitleAuthor(ctx context.Context, title, author string) ([]*BookMetadata, error) {
	q := url.Values{}
	q.Set("title", title)
	if author != "" {
		q.Set("author", author)
	}
	q.Set("limit", "10")

	u := p.baseURL + "/search.json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "openlibrary search failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &ErrRateLimited{Provider: p.Name()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("openlibrary search returned status %d", resp.StatusCode)
	}

	var payload openLibrarySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "openlibrary search decode failed")
	}

	results := make([]*BookMetadata, 0, len(payload.Docs))
	for _, d := range payload.Docs {
		conf := titleSimilarity(title, d.Title)
		// Scale into OpenLibrary's search band (below its own ISBN
		// floor so an ISBN hit always outranks a fuzzy search result).
		conf = 0.5 + conf*0.35

		m := &BookMetadata{
			Title:      d.Title,
			Authors:    append([]string{}, d.AuthorName...),
			Confidence: conf,
			Source:     "OpenLibrary",
		}
		if d.FirstPublish > 0 {
			year := strconv.Itoa(d.FirstPublish)
			m.PublishedDate = &year
		}
		if len(d.ISBN) > 0 {
			switch len(NormalizeISBN(d.ISBN[0])) {
			case 10:
				v := NormalizeISBN(d.ISBN[0])
				m.ISBN10 = &v
			case 13:
				v := NormalizeISBN(d.ISBN[0])
				m.ISBN13 = &v
			}
		}
		results = append(results, m)
	}

	sortByConfidenceDesc(results)
	return results, nil
}

func (p *OpenLibraryProvider) CoverURLByISBN(ctx context.Context, isbn string) (string, bool, error) {
	m, err := p.LookupByISBN(ctx, isbn)
	if err != nil {
		var nf *ErrNotFound
		if errors.As(err, &nf) {
			return "", false, nil
		}
		return "", false, err
	}
	if m.CoverURL == nil {
		return "", false, nil
	}
	return *m.CoverURL, true, nil
}
