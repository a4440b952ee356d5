package converter

import (
	"strconv"
	"strings"
	"time"

	"github.com/foliobooks/folio/pkg/metadata"
)

// publishedDateFormats are tried in order when parsing ebook-meta's
// "Published" field, per spec.md §4.1.
var publishedDateFormats = []string{
	"2006-01-02",
	"2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// parseMetadataDump parses ebook-meta's "key : value" stdout dump into a
// BookMetadata, source="converter", confidence=0.8 (spec.md §4.1).
func parseMetadataDump(dump string) *metadata.BookMetadata {
	m := &metadata.BookMetadata{Source: "converter", Confidence: 0.8}

	for _, line := range strings.Split(dump, "\n") {
		key, value, ok := splitDumpLine(line)
		if !ok {
			continue
		}

		switch strings.ToLower(key) {
		case "title":
			m.Title = value
		case "author(s)", "authors", "author":
			m.Authors = splitAuthors(value)
		case "publisher":
			v := value
			m.Publisher = &v
		case "published", "publication date", "pubdate":
			if parsed, ok := parsePublishedDate(value); ok {
				m.PublishedDate = &parsed
			}
		case "language", "languages":
			v := value
			m.Language = &v
		case "tags", "subjects", "subject":
			m.Tags = splitList(value)
		case "series":
			name, idx, hasIdx := splitSeriesValue(value)
			if name != "" {
				m.Series = &name
			}
			if hasIdx {
				m.SeriesIndex = &idx
			}
		case "series index", "series_index":
			if idx, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				m.SeriesIndex = &idx
			}
		case "isbn":
			assignISBN(m, value)
		}
	}

	return m
}

// splitDumpLine splits a "key : value" line. ebook-meta uses a single
// colon as the separator, with surrounding whitespace.
func splitDumpLine(line string) (key, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	if key == "" || value == "" {
		return "", "", false
	}
	return key, value, true
}

// splitAuthors splits on '&' then ',', per spec.md §4.1.
func splitAuthors(value string) []string {
	var out []string
	for _, part := range strings.Split(value, "&") {
		for _, name := range strings.Split(part, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func splitList(value string) []string {
	var out []string
	for _, s := range strings.Split(value, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// splitSeriesValue parses a calibre series value of the shape
// "Name [N]" into its name and index.
func splitSeriesValue(value string) (name string, index float64, hasIndex bool) {
	open := strings.LastIndex(value, "[")
	close_ := strings.LastIndex(value, "]")
	if open < 0 || close_ < open {
		return strings.TrimSpace(value), 0, false
	}

	name = strings.TrimSpace(value[:open])
	idxStr := strings.TrimSpace(value[open+1 : close_])
	idx, err := strconv.ParseFloat(idxStr, 64)
	if err != nil {
		return strings.TrimSpace(value), 0, false
	}
	return name, idx, true
}

func parsePublishedDate(value string) (string, bool) {
	for _, layout := range publishedDateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// assignISBN strips hyphens/whitespace from value and, by resulting
// length, assigns it to ISBN10 or ISBN13; other lengths are discarded
// (spec.md §4.1).
func assignISBN(m *metadata.BookMetadata, value string) {
	cleaned := metadata.NormalizeISBN(value)
	switch len(cleaned) {
	case 10:
		m.ISBN10 = &cleaned
	case 13:
		m.ISBN13 = &cleaned
	}
}
