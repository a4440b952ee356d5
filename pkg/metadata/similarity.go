package metadata

import (
	"sort"
	"strings"
)

// titleSimilarity scores how close two titles are, in [0,1], using
// token-overlap (Jaccard over lowercased, whitespace-split words). It's
// intentionally crude: providers only need enough signal to place a
// search hit within their confidence band (spec.md §4.3), not a ranked
// full-text match.
func titleSimilarity(a, b string) float64 {
	ta := tokenize(a)
	tb := tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(ta))
	for _, t := range ta {
		setA[t] = true
	}

	inter := 0
	union := make(map[string]bool, len(ta)+len(tb))
	for _, t := range ta {
		union[t] = true
	}
	for _, t := range tb {
		union[t] = true
		if setA[t] {
			inter++
		}
	}

	if len(union) == 0 {
		return 0
	}
	return float64(inter) / float64(len(union))
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,:;!?'\"()[]")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// sortByConfidenceDesc sorts records by Confidence, highest first.
func sortByConfidenceDesc(recs []*BookMetadata) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Confidence > recs[j].Confidence })
}
