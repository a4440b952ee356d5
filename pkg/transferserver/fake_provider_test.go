package transferserver

import (
	"context"
	"sync"

	"github.com/foliobooks/folio/pkg/library"
)

// fakeProvider is an in-memory library.Provider test double.
type fakeProvider struct {
	mu      sync.Mutex
	books   map[string]library.BookDescriptor
	paths   map[string]string
	meta    map[string][2]interface{} // title, authors
	listErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		books: make(map[string]library.BookDescriptor),
		paths: make(map[string]string),
		meta:  make(map[string][2]interface{}),
	}
}

func (f *fakeProvider) addBook(b library.BookDescriptor, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.books[b.ID] = b
	f.paths[b.ID] = path
	f.meta[b.ID] = [2]interface{}{b.Title, b.Authors}
}

func (f *fakeProvider) List(ctx context.Context) ([]library.BookDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]library.BookDescriptor, 0, len(f.books))
	for _, b := range f.books {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeProvider) GetBookFileURL(ctx context.Context, id string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path, ok := f.paths[id]
	return path, ok, nil
}

func (f *fakeProvider) GetBookFormat(ctx context.Context, id string) (library.FormatTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.books[id].Format, nil
}

func (f *fakeProvider) GetBookmarkData(ctx context.Context, id string) ([]byte, bool, error) {
	return nil, false, nil
}

func (f *fakeProvider) GetBookMetadata(ctx context.Context, id string) (string, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.meta[id]
	title, _ := m[0].(string)
	authors, _ := m[1].([]string)
	return title, authors, nil
}

func (f *fakeProvider) Acquire(ctx context.Context, id string) (string, func(), error) {
	f.mu.Lock()
	path, ok := f.paths[id]
	f.mu.Unlock()
	if !ok {
		return "", func() {}, nil
	}
	return path, func() {}, nil
}
