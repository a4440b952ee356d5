package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBook(t *testing.T, dir, name string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o644))
}

func TestFSProvider_ListFindsRecognizedExtensions(t *testing.T) {
	dir := t.TempDir()
	writeBook(t, dir, "dune.epub", 100)
	writeBook(t, dir, "alice.mobi", 200)
	writeBook(t, dir, "notes.txt.unknownext", 10)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	p := NewFSProvider(dir)
	books, err := p.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, books, 2)

	byID := map[string]BookDescriptor{}
	for _, b := range books {
		byID[b.ID] = b
	}
	assert.Equal(t, FormatEPUB, byID["dune.epub"].Format)
	assert.Equal(t, "dune", byID["dune.epub"].Title)
	assert.EqualValues(t, 100, byID["dune.epub"].FileSize)
	assert.Equal(t, FormatMOBI, byID["alice.mobi"].Format)
}

func TestFSProvider_GetBookFileURLUnknownID(t *testing.T) {
	p := NewFSProvider(t.TempDir())
	_, ok, err := p.GetBookFileURL(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFSProvider_AcquireIsPassThrough(t *testing.T) {
	dir := t.TempDir()
	writeBook(t, dir, "dune.epub", 5)

	p := NewFSProvider(dir)
	_, err := p.List(context.Background())
	require.NoError(t, err)

	path, release, err := p.Acquire(context.Background(), "dune.epub")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dune.epub"), path)
	assert.NotPanics(t, func() { release() })
}

func TestFSProvider_GetBookmarkDataAlwaysMisses(t *testing.T) {
	p := NewFSProvider(t.TempDir())
	_, ok, err := p.GetBookmarkData(context.Background(), "anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFSProvider_GetBookMetadata(t *testing.T) {
	dir := t.TempDir()
	writeBook(t, dir, "alice.mobi", 5)

	p := NewFSProvider(dir)
	_, err := p.List(context.Background())
	require.NoError(t, err)

	title, authors, err := p.GetBookMetadata(context.Background(), "alice.mobi")
	require.NoError(t, err)
	assert.Equal(t, "alice", title)
	assert.Empty(t, authors)
}
