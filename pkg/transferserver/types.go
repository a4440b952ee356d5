package transferserver

import (
	"fmt"
	"strings"
	"time"

	"github.com/foliobooks/folio/pkg/library"
)

// bookJSON is the wire projection of library.BookDescriptor returned by
// GET /api/books (spec.md §6): id, title, authors, format, fileSize,
// dateAdded as ISO-8601.
type bookJSON struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Authors   []string `json:"authors"`
	Format    string   `json:"format"`
	FileSize  int64    `json:"fileSize"`
	DateAdded string   `json:"dateAdded"`
}

func toBookJSON(b library.BookDescriptor) bookJSON {
	authors := b.Authors
	if authors == nil {
		authors = []string{}
	}
	return bookJSON{
		ID:        b.ID,
		Title:     b.Title,
		Authors:   authors,
		Format:    string(b.Format),
		FileSize:  b.FileSize,
		DateAdded: b.DateAdded.UTC().Format(time.RFC3339),
	}
}

// catalogRow is one rendered row of the HTML catalog (spec.md §4.7's
// "HTML rendering" paragraph). html/template escapes Title/Authors/
// Format/Size automatically; there is nothing to escape by hand.
type catalogRow struct {
	ID               string
	Title            string
	Authors          string
	Format           string
	Size             string
	ShowKindleButton bool
}

type catalogView struct {
	Rows []catalogRow
}

func joinAuthors(authors []string) string {
	if len(authors) == 0 {
		return "Unknown Author"
	}
	return strings.Join(authors, ", ")
}

// humanizeBytes renders a byte count as a short human-readable size,
// matching the order of magnitude a reader expects on a catalog page.
func humanizeBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	units := []string{"KB", "MB", "GB", "TB"}
	return fmt.Sprintf("%.1f %s", float64(n)/float64(div), units[exp])
}
