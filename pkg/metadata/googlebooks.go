package metadata

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"

	"github.com/foliobooks/folio/pkg/htmlutil"
)

// GoogleBooksProvider queries the Google Books volumes API
// (https://www.googleapis.com/books/v1/volumes). It's consulted after
// OpenLibrary in the default aggregator ordering and scores lower
// confidence across the board (spec.md §4.3): crowd-curated rather than
// registry-backed.
type GoogleBooksProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewGoogleBooksProvider creates a provider against the public Google
// Books API. apiKey may be empty; the API permits a modest amount of
// unauthenticated traffic.
func NewGoogleBooksProvider(apiKey string) *GoogleBooksProvider {
	return &GoogleBooksProvider{
		baseURL: "https://www.googleapis.com/books/v1/volumes",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *GoogleBooksProvider) Name() string { return "GoogleBooks" }

type googleVolumesResponse struct {
	Items []googleVolume `json:"items"`
}

type googleVolume struct {
	VolumeInfo struct {
		Title               string   `json:"title"`
		Authors             []string `json:"authors"`
		Publisher           string   `json:"publisher"`
		PublishedDate       string   `json:"publishedDate"`
		Description         string   `json:"description"`
		PageCount           int      `json:"pageCount"`
		Categories          []string `json:"categories"`
		Language            string   `json:"language"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
		ImageLinks struct {
			Thumbnail string `json:"thumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

func (p *GoogleBooksProvider) doQuery(ctx context.Context, q string) (*googleVolumesResponse, error) {
	values := url.Values{}
	values.Set("q", q)
	if p.apiKey != "" {
		values.Set("key", p.apiKey)
	}

	u := p.baseURL + "?" + values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "googlebooks request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
		return nil, &ErrRateLimited{Provider: p.Name()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("googlebooks returned status %d", resp.StatusCode)
	}

	var payload googleVolumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "googlebooks decode failed")
	}

	return &payload, nil
}

func (p *GoogleBooksProvider) LookupByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	payload, err := p.doQuery(ctx, "isbn:"+NormalizeISBN(isbn))
	if err != nil {
		return nil, err
	}
	if len(payload.Items) == 0 {
		return nil, &ErrNotFound{Provider: p.Name()}
	}

	return googleVolumeToMetadata(payload.Items[0], 0.75), nil
}

func googleVolumeToMetadata(v googleVolume, confidence float64) *BookMetadata {
	info := v.VolumeInfo

	m := &BookMetadata{
		Title:      info.Title,
		Authors:    append([]string{}, info.Authors...),
		Tags:       append([]string{}, info.Categories...),
		Confidence: confidence,
		Source:     "GoogleBooks",
	}

	if info.Publisher != "" {
		m.Publisher = &info.Publisher
	}
	if info.PublishedDate != "" {
		m.PublishedDate = &info.PublishedDate
	}
	if info.Description != "" {
		// Google Books descriptions are frequently HTML fragments (<p>,
		// <b>, &quot; entities); strip them before storing plain-text
		// metadata.
		summary := htmlutil.StripTags(info.Description)
		m.Summary = &summary
	}
	if info.Language != "" {
		m.Language = &info.Language
	}
	if info.PageCount > 0 {
		pc := info.PageCount
		m.PageCount = &pc
	}
	if info.ImageLinks.Thumbnail != "" {
		m.CoverURL = &info.ImageLinks.Thumbnail
	}

	for _, id := range info.IndustryIdentifiers {
		v := NormalizeISBN(id.Identifier)
		switch id.Type {
		case "ISBN_10":
			m.ISBN10 = &v
		case "ISBN_13":
			m.ISBN13 = &v
		}
	}

	return m
}

func (p *GoogleBooksProvider) SearchByTitleAuthor(ctx context.Context, title, author string) ([]*BookMetadata, error) {
	q := "intitle:" + title
	if author != "" {
		q += "+inauthor:" + author
	}

	payload, err := p.doQuery(ctx, q)
	if err != nil {
		return nil, err
	}

	results := make([]*BookMetadata, 0, len(payload.Items))
	for _, item := range payload.Items {
		sim := titleSimilarity(title, item.VolumeInfo.Title)
		// Scale into GoogleBooks' search band, below its own ISBN floor.
		conf := 0.4 + sim*0.4

		results = append(results, googleVolumeToMetadata(item, conf))
	}

	sortByConfidenceDesc(results)
	return results, nil
}

func (p *GoogleBooksProvider) CoverURLByISBN(ctx context.Context, isbn string) (string, bool, error) {
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
