package metadata

import "context"

// Provider is implemented by each external catalog backend. Providers
// are stateless and must be safe for concurrent use (spec.md §4.3).
type Provider interface {
	// Name is the provider's identifier, used as BookMetadata.Source.
	Name() string

	// LookupByISBN returns a record for isbn. No match is reported as
	// ErrNotFound, which the Aggregator treats as a miss rather than a
	// failure. A rate-limit condition is surfaced as ErrRateLimited.
	LookupByISBN(ctx context.Context, isbn string) (*BookMetadata, error)

	// SearchByTitleAuthor returns candidate records sorted by confidence
	// descending. author may be empty.
	SearchByTitleAuthor(ctx context.Context, title, author string) ([]*BookMetadata, error)

	// CoverURLByISBN returns a cover image URL for isbn, if known.
	CoverURLByISBN(ctx context.Context, isbn string) (string, bool, error)
}

// ErrRateLimited indicates a provider is temporarily throttling the
// caller. The aggregator suppresses this provider's result for the
// current call but continues on to the next provider (spec.md §4.3/§7).
type ErrRateLimited struct {
	Provider string
}

func (e *ErrRateLimited) Error() string {
	return "provider rate limited: " + e.Provider
}

// ErrNotFound indicates a clean "no match" from a provider, distinct
// from an error.
type ErrNotFound struct {
	Provider string
}

func (e *ErrNotFound) Error() string {
	return "not found: " + e.Provider
}

// ErrAllProvidersFailed is raised when every configured provider errored
// and none returned a usable result (spec.md §4.3/§7).
type ErrAllProvidersFailed struct {
	Errors []error
}

func (e *ErrAllProvidersFailed) Error() string {
	msg := "all metadata providers failed"
	for _, err := range e.Errors {
		msg += ": " + err.Error()
	}
	return msg
}

// ErrNoProvidersAvailable is raised when the aggregator has no
// configured providers at all.
type ErrNoProvidersAvailable struct{}

func (e *ErrNoProvidersAvailable) Error() string { return "no metadata providers configured" }
