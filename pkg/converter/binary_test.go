package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveBinary_FindsWellKnownPath(t *testing.T) {
	existing := map[string]bool{
		"/usr/local/bin/ebook-convert": true,
	}
	statFn := func(p string) bool { return existing[p] }

	path, ok := resolveBinary("ebook-convert", statFn)
	assert.True(t, ok)
	assert.Equal(t, "/usr/local/bin/ebook-convert", path)
}

func TestResolveBinary_PrefersEarlierWellKnownPath(t *testing.T) {
	existing := map[string]bool{
		"/usr/bin/ebook-convert":       true,
		"/usr/local/bin/ebook-convert": true,
	}
	statFn := func(p string) bool { return existing[p] }

	path, ok := resolveBinary("ebook-convert", statFn)
	assert.True(t, ok)
	assert.Equal(t, "/usr/bin/ebook-convert", path)
}

func TestResolveBinary_FallsBackToPath(t *testing.T) {
	statFn := func(p string) bool { return false }

	_, ok := resolveBinary("definitely-not-a-real-binary-xyz", statFn)
	assert.False(t, ok)
}

func TestWellKnownPaths_Order(t *testing.T) {
	paths := wellKnownPaths("ebook-convert")
	assert.Equal(t, "/Applications/calibre.app/Contents/MacOS/ebook-convert", paths[0])
	assert.Equal(t, "/usr/bin/ebook-convert", paths[1])
	assert.Equal(t, "/usr/local/bin/ebook-convert", paths[2])
	assert.Equal(t, "/opt/calibre/ebook-convert", paths[3])
}
