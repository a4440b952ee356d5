// Package htmlutil sanitizes the HTML-fragment text that metadata
// providers hand back. Google Books returns book descriptions with
// embedded markup (<p>, <b>, entity-encoded quotes); pkg/metadata stores
// a plain-text Summary, so the Google Books provider strips that markup
// before keeping it. The OpenLibrary provider reads no description.
package htmlutil

import (
	"regexp"
	"strings"
)

// tagPattern matches HTML tags including self-closing tags.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// blockTagPattern matches the closing/self-closing tags that visually
// break a block of description text into separate lines, in either
// case. A single case-insensitive alternation replaces the uppercase/
// lowercase duplicate-pass approach with one pass.
var blockTagPattern = regexp.MustCompile(`(?i)</p>|</div>|<br\s*/?>|</li>|</h[1-6]>`)

// multipleSpacesPattern matches multiple consecutive whitespace characters.
var multipleSpacesPattern = regexp.MustCompile(`\s{2,}`)

// StripTags removes all HTML tags from a provider description and
// normalizes whitespace. It converts block-level tags (p, div, br,
// etc.) to newlines to preserve paragraph structure, then strips
// remaining tags and cleans up whitespace.
func StripTags(html string) string {
	if html == "" {
		return ""
	}

	result := blockTagPattern.ReplaceAllString(html, "\n")

	// Remove all remaining HTML tags
	result = tagPattern.ReplaceAllString(result, "")

	// Decode common HTML entities
	result = decodeHTMLEntities(result)

	// Normalize whitespace: collapse multiple spaces/tabs to single space
	// but preserve intentional newlines (from block tags)
	lines := strings.Split(result, "\n")
	for i, line := range lines {
		// Collapse multiple spaces within each line
		line = multipleSpacesPattern.ReplaceAllString(line, " ")
		lines[i] = strings.TrimSpace(line)
	}

	// Rejoin lines, removing empty ones and collapsing multiple newlines
	var nonEmptyLines []string
	for _, line := range lines {
		if line != "" {
			nonEmptyLines = append(nonEmptyLines, line)
		}
	}

	return strings.Join(nonEmptyLines, "\n")
}

// decodeHTMLEntities decodes the named and numeric HTML entities that
// show up in provider description text (curly quotes, em/en dashes,
// trademark/copyright marks) to their character equivalents.
func decodeHTMLEntities(s string) string {
	// Common named and numeric entities
	replacements := []struct {
		entity string
		char   string
	}{
		{"&nbsp;", " "},
		{"&#160;", " "}, // nbsp numeric
		{"&amp;", "&"},
		{"&#38;", "&"}, // ampersand numeric
		{"&lt;", "<"},
		{"&#60;", "<"}, // less than numeric
		{"&gt;", ">"},
		{"&#62;", ">"}, // greater than numeric
		{"&quot;", "\""},
		{"&#34;", "\""}, // quote numeric
		{"&#39;", "'"},
		{"&apos;", "'"},
		{"&mdash;", "\u2014"},  // em dash
		{"&#8212;", "\u2014"},  // em dash numeric
		{"&ndash;", "\u2013"},  // en dash
		{"&#8211;", "\u2013"},  // en dash numeric
		{"&hellip;", "\u2026"}, // ellipsis
		{"&#8230;", "\u2026"},  // ellipsis numeric
		{"&rsquo;", "\u2019"},  // right single quote
		{"&#8217;", "\u2019"},  // right single quote numeric
		{"&lsquo;", "\u2018"},  // left single quote
		{"&#8216;", "\u2018"},  // left single quote numeric
		{"&rdquo;", "\u201D"},  // right double quote
		{"&#8221;", "\u201D"},  // right double quote numeric
		{"&ldquo;", "\u201C"},  // left double quote
		{"&#8220;", "\u201C"},  // left double quote numeric
		{"&copy;", "\u00A9"},   // copyright
		{"&#169;", "\u00A9"},   // copyright numeric
		{"&reg;", "\u00AE"},    // registered
		{"&#174;", "\u00AE"},   // registered numeric
		{"&trade;", "\u2122"},  // trademark
		{"&#8482;", "\u2122"},  // trademark numeric
	}

	result := s
	for _, r := range replacements {
		result = strings.ReplaceAll(result, r.entity, r.char)
	}

	return result
}
