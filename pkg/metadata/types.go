// Package metadata implements the MetadataAggregator (C5): fan-out to
// ordered external catalog providers with a confidence-floor and
// merge/fallback policy, plus the BookMetadata record shared by the
// Converter's metadata extraction (C3) and the aggregator itself.
package metadata

import "strings"

// BookMetadata is an enrichment record produced by a provider or by the
// converter's sibling metadata tool. See spec.md §3.
type BookMetadata struct {
	Title         string
	Authors       []string
	ISBN10        *string
	ISBN13        *string
	Publisher     *string
	PublishedDate *string
	Language      *string
	Series        *string
	SeriesIndex   *float64
	Tags          []string
	Summary       *string
	PageCount     *int
	CoverURL      *string
	Confidence    float64
	Source        string
}

// unionCI unions two string slices case-insensitively, preserving order
// by first appearance (a first, then any of b not already present).
func unionCI(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		key := strings.ToLower(s)
		if !seen[key] {
			seen[key] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		key := strings.ToLower(s)
		if !seen[key] {
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}

// Merge combines an existing record A with a new record B per spec.md
// §4.3/§4.5's merge rule: for each scalar field, keep A's value if
// non-null, else take B's; but if both are present and B's confidence
// strictly exceeds A's, B wins. Array fields are unioned
// case-insensitively, preserving order of first appearance. The merged
// record's Confidence is the higher of the two, and Source notes both
// contributors once merging has actually combined distinct sources.
func Merge(a, b *BookMetadata) *BookMetadata {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	higherConfWins := func(bNonNil bool) bool {
		return bNonNil && b.Confidence > a.Confidence
	}

	out := &BookMetadata{}

	out.Title = a.Title
	if out.Title == "" || higherConfWins(b.Title != "") {
		if b.Title != "" {
			out.Title = b.Title
		}
	}

	out.ISBN10 = mergeStringPtr(a.ISBN10, b.ISBN10, a.Confidence, b.Confidence)
	out.ISBN13 = mergeStringPtr(a.ISBN13, b.ISBN13, a.Confidence, b.Confidence)
	out.Publisher = mergeStringPtr(a.Publisher, b.Publisher, a.Confidence, b.Confidence)
	out.PublishedDate = mergeStringPtr(a.PublishedDate, b.PublishedDate, a.Confidence, b.Confidence)
	out.Language = mergeStringPtr(a.Language, b.Language, a.Confidence, b.Confidence)
	out.Series = mergeStringPtr(a.Series, b.Series, a.Confidence, b.Confidence)
	out.Summary = mergeStringPtr(a.Summary, b.Summary, a.Confidence, b.Confidence)
	out.CoverURL = mergeStringPtr(a.CoverURL, b.CoverURL, a.Confidence, b.Confidence)

	out.SeriesIndex = a.SeriesIndex
	if out.SeriesIndex == nil || (b.SeriesIndex != nil && b.Confidence > a.Confidence) {
		if b.SeriesIndex != nil {
			out.SeriesIndex = b.SeriesIndex
		}
	}

	out.PageCount = a.PageCount
	if out.PageCount == nil || (b.PageCount != nil && b.Confidence > a.Confidence) {
		if b.PageCount != nil {
			out.PageCount = b.PageCount
		}
	}

	out.Authors = unionCI(a.Authors, b.Authors)
	out.Tags = unionCI(a.Tags, b.Tags)

	out.Confidence = a.Confidence
	if b.Confidence > out.Confidence {
		out.Confidence = b.Confidence
	}

	out.Source = a.Source
	if b.Source != "" && b.Source != a.Source {
		out.Source = a.Source + "+" + b.Source
	}

	return out
}

// mergeStringPtr applies the scalar merge rule to a *string field: keep
// a if non-nil, unless b is non-nil and b's confidence strictly exceeds
// a's, in which case b wins.
func mergeStringPtr(a, b *string, aConf, bConf float64) *string {
	if a == nil {
		return b
	}
	if b != nil && bConf > aConf {
		return b
	}
	return a
}
