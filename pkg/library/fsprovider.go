package library

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

// extensionFormats maps a lowercase file extension (without the dot) to
// its FormatTag. Used as the authoritative table per spec.md §6;
// mimetype content-sniffing is only consulted as a fallback for
// extensionless files.
var extensionFormats = map[string]FormatTag{
	"epub":  FormatEPUB,
	"mobi":  FormatMOBI,
	"azw3":  FormatAZW3,
	"azw":   FormatAZW,
	"pdf":   FormatPDF,
	"cbz":   FormatCBZ,
	"cbr":   FormatCBR,
	"fb2":   FormatFB2,
	"txt":   FormatTXT,
	"rtf":   FormatRTF,
	"html":  FormatHTML,
	"htmlz": FormatHTMLZ,
	"docx":  FormatDOCX,
	"lit":   FormatLIT,
	"pdb":   FormatPDB,
	"kfx":   FormatKFX,
	"prc":   FormatPRC,
}

// mimeFormats maps a sniffed MIME type to a FormatTag, consulted only
// when a file's extension isn't recognized (spec.md §6's MIME table is
// the source of truth in the other direction; this is the narrow
// inverse needed to classify extensionless files dropped into the
// watched directory).
var mimeFormats = map[string]FormatTag{
	"application/epub+zip":        FormatEPUB,
	"application/x-mobipocket-ebook": FormatMOBI,
	"application/vnd.amazon.ebook": FormatAZW3,
	"application/pdf":              FormatPDF,
}

// FSProvider is a minimal filesystem-backed Provider: it scans one root
// directory non-recursively and treats every regular file with a
// recognized ebook extension as a book, keyed by its path relative to
// root. It carries no database, no author/series metadata beyond what
// Converter.GetMetadata can later enrich, and no write path back into
// the source tree — it exists so the core's daemon has something
// concrete to run against standalone, satisfying the Provider contract
// the surrounding application would otherwise supply (spec.md §1's
// BookProvider collaborator).
//
// FSProvider performs no sandboxing, so Acquire is the no-op pass-
// through spec.md §9 describes for platforms without it, and
// GetBookmarkData always reports ok=false.
type FSProvider struct {
	root string

	mu    sync.RWMutex
	books map[string]fsBook
}

type fsBook struct {
	path      string
	title     string
	format    FormatTag
	size      int64
	dateAdded time.Time
}

// NewFSProvider constructs an FSProvider rooted at dir. Call Rescan (or
// List, which rescans implicitly) before use.
func NewFSProvider(dir string) *FSProvider {
	return &FSProvider{root: dir, books: make(map[string]fsBook)}
}

// Rescan re-reads root's immediate contents, replacing the in-memory
// catalog snapshot. Safe for concurrent use; readers see either the old
// or new snapshot atomically, never a partial one.
func (p *FSProvider) Rescan() error {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return errors.Wrapf(err, "reading library directory %s", p.root)
	}

	books := make(map[string]fsBook, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		format, ok := classify(filepath.Join(p.root, entry.Name()))
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		id := entry.Name()
		books[id] = fsBook{
			path:      filepath.Join(p.root, entry.Name()),
			title:     strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			format:    format,
			size:      info.Size(),
			dateAdded: info.ModTime(),
		}
	}

	p.mu.Lock()
	p.books = books
	p.mu.Unlock()
	return nil
}

// classify resolves a path to a FormatTag via its extension, falling
// back to content sniffing for extensionless names.
func classify(path string) (FormatTag, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if format, ok := extensionFormats[ext]; ok {
		return format, true
	}
	if ext != "" {
		return "", false
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", false
	}
	format, ok := mimeFormats[mt.String()]
	return format, ok
}

func (p *FSProvider) List(ctx context.Context) ([]BookDescriptor, error) {
	if err := p.Rescan(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]BookDescriptor, 0, len(p.books))
	for id, b := range p.books {
		out = append(out, BookDescriptor{
			ID:        id,
			Title:     b.title,
			Authors:   nil,
			Format:    b.format,
			FileSize:  b.size,
			DateAdded: b.dateAdded,
		})
	}
	return out, nil
}

func (p *FSProvider) lookup(id string) (fsBook, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	b, ok := p.books[id]
	return b, ok
}

func (p *FSProvider) GetBookFileURL(ctx context.Context, id string) (string, bool, error) {
	b, ok := p.lookup(id)
	if !ok {
		return "", false, nil
	}
	return b.path, true, nil
}

func (p *FSProvider) GetBookFormat(ctx context.Context, id string) (FormatTag, error) {
	b, ok := p.lookup(id)
	if !ok {
		return "", errors.Errorf("unknown book id %q", id)
	}
	return b.format, nil
}

// GetBookmarkData always reports ok=false: FSProvider has no
// sandboxing layer to maintain security-scoped bookmarks for.
func (p *FSProvider) GetBookmarkData(ctx context.Context, id string) ([]byte, bool, error) {
	return nil, false, nil
}

func (p *FSProvider) GetBookMetadata(ctx context.Context, id string) (string, []string, error) {
	b, ok := p.lookup(id)
	if !ok {
		return "", nil, errors.Errorf("unknown book id %q", id)
	}
	return b.title, nil, nil
}

// Acquire is a no-op pass-through: FSProvider has no sandboxing to
// scope access through (spec.md §9).
func (p *FSProvider) Acquire(ctx context.Context, id string) (string, func(), error) {
	b, ok := p.lookup(id)
	if !ok {
		return "", nil, errors.Errorf("unknown book id %q", id)
	}
	return b.path, func() {}, nil
}
