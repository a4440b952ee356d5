// Package library defines the narrow contracts the Transfer & Delivery
// core uses to reach into the surrounding application's book catalog.
// The catalog itself — the persistent database of books, authors,
// series, and tags — is owned by the surrounding application and is
// never implemented here; the core only ever sees the projections
// below.
package library

import (
	"context"
	"time"
)

// FormatTag is a lowercase short string naming a file format.
type FormatTag string

// Recognized format tags.
const (
	FormatEPUB  FormatTag = "epub"
	FormatMOBI  FormatTag = "mobi"
	FormatAZW3  FormatTag = "azw3"
	FormatAZW   FormatTag = "azw"
	FormatPDF   FormatTag = "pdf"
	FormatCBZ   FormatTag = "cbz"
	FormatCBR   FormatTag = "cbr"
	FormatFB2   FormatTag = "fb2"
	FormatTXT   FormatTag = "txt"
	FormatRTF   FormatTag = "rtf"
	FormatHTML  FormatTag = "html"
	FormatHTMLZ FormatTag = "htmlz"
	FormatDOCX  FormatTag = "docx"
	FormatLIT   FormatTag = "lit"
	FormatPDB   FormatTag = "pdb"
	FormatKFX   FormatTag = "kfx"
	FormatPRC   FormatTag = "prc"
)

var kindleCompatible = map[FormatTag]bool{
	FormatEPUB: true,
	FormatAZW3: true,
	FormatKFX:  true,
	FormatPDF:  true,
	FormatTXT:  true,
}

var kindleNative = map[FormatTag]bool{
	FormatMOBI: true,
	FormatAZW3: true,
	FormatPRC:  true,
}

// KindleCompatible reports whether Amazon's Kindle ingest service accepts
// this format as-is.
func (f FormatTag) KindleCompatible() bool { return kindleCompatible[f] }

// KindleNative reports whether a Kindle device can render this format
// directly, without ingest-side conversion.
func (f FormatTag) KindleNative() bool { return kindleNative[f] }

// mimeTable is the fixed FormatTag -> MIME type mapping from spec.md §6.
var mimeTable = map[FormatTag]string{
	FormatEPUB: "application/epub+zip",
	FormatMOBI: "application/x-mobipocket-ebook",
	FormatAZW:  "application/vnd.amazon.ebook",
	FormatAZW3: "application/vnd.amazon.ebook",
	FormatPDF:  "application/pdf",
}

// MIMEType returns the fixed MIME type for a format tag, falling back to
// application/octet-stream for anything not in the table.
func (f FormatTag) MIMEType() string {
	if m, ok := mimeTable[f]; ok {
		return m
	}
	return "application/octet-stream"
}

// BookDescriptor is the read-only projection of a book returned by
// Provider.List. It is produced and owned by the surrounding
// application; the core never mutates it.
type BookDescriptor struct {
	ID         string
	Title      string
	Authors    []string
	Format     FormatTag
	FileSize   int64
	DateAdded  time.Time
}

// Provider is the narrow contract the core uses to read from the
// external library. All methods must be safe for concurrent use.
type Provider interface {
	// List enumerates the current catalog snapshot. ID is unique within
	// a single returned slice.
	List(ctx context.Context) ([]BookDescriptor, error)

	// GetBookFileURL resolves a book id to its source file path. ok is
	// false if the id is unknown.
	GetBookFileURL(ctx context.Context, id string) (path string, ok bool, err error)

	// GetBookFormat resolves a book id to its format tag.
	GetBookFormat(ctx context.Context, id string) (FormatTag, error)

	// GetBookmarkData returns platform security-scoped bookmark data for
	// a book id, if the surrounding application maintains one. ok is
	// false when no bookmark exists, in which case the caller should
	// fall back to direct file access.
	GetBookmarkData(ctx context.Context, id string) (data []byte, ok bool, err error)

	// GetBookMetadata returns the title and author list for a book id,
	// used to pass through to the converter and to compose delivery
	// subjects.
	GetBookMetadata(ctx context.Context, id string) (title string, authors []string, err error)

	// Acquire grants scoped access to a book's source file for the
	// duration between the call and invoking the returned release
	// function. On platforms without sandboxing this is a no-op that
	// returns the raw path and a release function that does nothing;
	// implementations that need macOS-style security-scoped bookmarks
	// resolve GetBookmarkData internally before returning.
	Acquire(ctx context.Context, id string) (path string, release func(), err error)
}
