package metadata

import (
	"context"
	"sort"
)

// defaultMinConfidence is the default confidence floor used by
// LookupISBN/SearchTitleAuthor when the caller doesn't override it.
const defaultMinConfidence = 0.8

// defaultMaxResults bounds SearchTitleAuthor's return size.
const defaultMaxResults = 20

// Aggregator fans out to an insertion-ordered list of providers,
// applying a confidence floor and a merge/fallback policy (spec.md
// §4.3). cmd/folio-server wires the ordering [OpenLibrary, GoogleBooks];
// New itself applies no default and consults exactly the providers it
// is given.
type Aggregator struct {
	providers []Provider
}

// New creates an Aggregator over providers, consulted strictly in the
// given order (spec.md §4.3/§5).
func New(providers ...Provider) *Aggregator {
	return &Aggregator{providers: providers}
}

// ISBNLookupOptions configures LookupISBN. Use DefaultISBNLookupOptions
// for spec.md §4.3's default values (minConfidence=0.8, merge=true,
// fetchCovers=true); the zero value instead means
// "no confidence floor override, don't merge, don't fetch covers" and
// exists for callers that need that combination explicitly.
// LookupISBN does not read FetchCovers: it never calls a provider's
// CoverURLByISBN, so a result's CoverURL is whatever the providers'
// records already carry.
type ISBNLookupOptions struct {
	MinConfidence float64
	Merge         bool
	FetchCovers   bool
}

// DefaultISBNLookupOptions returns the spec-mandated defaults for
// LookupISBN: minConfidence=0.8, merge=true, fetchCovers=true.
func DefaultISBNLookupOptions() ISBNLookupOptions {
	return ISBNLookupOptions{MinConfidence: defaultMinConfidence, Merge: true, FetchCovers: true}
}

func (o ISBNLookupOptions) normalize() ISBNLookupOptions {
	if o.MinConfidence == 0 {
		o.MinConfidence = defaultMinConfidence
	}
	return o
}

// LookupISBN queries providers in order for isbn (any hyphenation).
// See spec.md §4.3 for the exact control flow this implements.
func (a *Aggregator) LookupISBN(ctx context.Context, isbn string, opts ISBNLookupOptions) (*BookMetadata, error) {
	if len(a.providers) == 0 {
		return nil, &ErrNoProvidersAvailable{}
	}

	opts = opts.normalize()
	// opts.Merge is used as given: its zero value means no merge, so
	// callers wanting the default merge behaviour pass
	// DefaultISBNLookupOptions.
	sanitized := NormalizeISBN(isbn)

	var acc *BookMetadata
	var errs []error

	for _, p := range a.providers {
		rec, err := p.LookupByISBN(ctx, sanitized)
		if err != nil {
			if _, ok := err.(*ErrRateLimited); ok {
				continue
			}
			if _, ok := err.(*ErrNotFound); ok {
				continue
			}
			errs = append(errs, err)
			continue
		}
		if rec == nil || rec.Confidence < opts.MinConfidence {
			continue
		}

		if !opts.Merge {
			return rec, nil
		}

		acc = Merge(acc, rec)
	}

	if acc != nil {
		return acc, nil
	}
	if len(errs) > 0 {
		return nil, &ErrAllProvidersFailed{Errors: errs}
	}
	return nil, nil
}

// TitleAuthorSearchOptions configures SearchTitleAuthor. Use
// DefaultTitleAuthorSearchOptions for spec.md §4.3's defaults.
type TitleAuthorSearchOptions struct {
	MinConfidence float64
	Merge         bool
	MaxResults    int
}

// DefaultTitleAuthorSearchOptions returns the spec-mandated defaults:
// minConfidence=0.8, merge=true, maxResults=20.
func DefaultTitleAuthorSearchOptions() TitleAuthorSearchOptions {
	return TitleAuthorSearchOptions{MinConfidence: defaultMinConfidence, Merge: true, MaxResults: defaultMaxResults}
}

func (o TitleAuthorSearchOptions) normalize() TitleAuthorSearchOptions {
	if o.MinConfidence == 0 {
		o.MinConfidence = defaultMinConfidence
	}
	if o.MaxResults == 0 {
		o.MaxResults = defaultMaxResults
	}
	return o
}

// SearchTitleAuthor queries providers in order for title/author
// candidates (spec.md §4.3).
func (a *Aggregator) SearchTitleAuthor(ctx context.Context, title, author string, opts TitleAuthorSearchOptions) ([]*BookMetadata, error) {
	if len(a.providers) == 0 {
		return nil, &ErrNoProvidersAvailable{}
	}

	opts = opts.normalize()
	var acc []*BookMetadata
	var errs []error

	for _, p := range a.providers {
		results, err := p.SearchByTitleAuthor(ctx, title, author)
		if err != nil {
			if _, ok := err.(*ErrRateLimited); ok {
				continue
			}
			errs = append(errs, err)
			continue
		}

		filtered := make([]*BookMetadata, 0, len(results))
		for _, r := range results {
			if r.Confidence >= opts.MinConfidence {
				filtered = append(filtered, r)
			}
		}

		if !opts.Merge {
			return truncate(filtered, opts.MaxResults), nil
		}

		acc = append(acc, filtered...)
	}

	if len(acc) > 0 {
		sort.SliceStable(acc, func(i, j int) bool { return acc[i].Confidence > acc[j].Confidence })
		return truncate(acc, opts.MaxResults), nil
	}
	if len(errs) > 0 {
		return nil, &ErrAllProvidersFailed{Errors: errs}
	}
	return nil, nil
}

func truncate(recs []*BookMetadata, max int) []*BookMetadata {
	if len(recs) > max {
		return recs[:max]
	}
	return recs
}

// Enhance tries to improve an existing record: ISBN lookup using
// isbn13 (preferred) or isbn10, falling back to a title/author search.
// A replacement is only accepted if its confidence strictly exceeds the
// existing record's; the accepted candidate is then merged into the
// existing record (spec.md §4.3).
func (a *Aggregator) Enhance(ctx context.Context, existing *BookMetadata) (*BookMetadata, error) {
	var candidate *BookMetadata
	var err error

	isbn := ""
	if existing.ISBN13 != nil {
		isbn = *existing.ISBN13
	} else if existing.ISBN10 != nil {
		isbn = *existing.ISBN10
	}

	if isbn != "" {
		candidate, err = a.LookupISBN(ctx, isbn, DefaultISBNLookupOptions())
		if err != nil {
			return nil, err
		}
	}

	if candidate == nil {
		author := ""
		if len(existing.Authors) > 0 {
			author = existing.Authors[0]
		}
		results, serr := a.SearchTitleAuthor(ctx, existing.Title, author, DefaultTitleAuthorSearchOptions())
		if serr != nil {
			return nil, serr
		}
		if len(results) > 0 {
			candidate = results[0]
		}
	}

	if candidate == nil || candidate.Confidence <= existing.Confidence {
		return existing, nil
	}

	return Merge(existing, candidate), nil
}
