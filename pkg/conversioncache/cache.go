// Package conversioncache implements the ConversionCache (C4): an
// on-disk, (bookID, targetFormat)-keyed cache with no eviction and
// per-key single-flight (spec.md §4.2).
package conversioncache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Key identifies one cached artifact.
type Key struct {
	BookID       string
	TargetFormat string
}

func (k Key) filename() string {
	return fmt.Sprintf("%s.%s", k.BookID, k.TargetFormat)
}

// Cache is a flat, unbounded on-disk cache. Grounded on the teacher's
// pkg/downloadcache (cache.go's GetOrGenerate shape, metadata.go's
// canonical-filename-by-id convention), simplified: spec.md §4.2
// deliberately has no eviction, so the cleanup/max-size machinery from
// the teacher's cache is not carried over (see DESIGN.md).
type Cache struct {
	dir string

	mu    sync.Mutex
	locks map[Key]*sync.Mutex
}

// New creates a Cache rooted at dir. dir is created on first use.
func New(dir string) *Cache {
	return &Cache{
		dir:   dir,
		locks: make(map[Key]*sync.Mutex),
	}
}

// Get returns the canonical path for key iff a file exists there.
func (c *Cache) Get(key Key) (path string, ok bool, err error) {
	p := filepath.Join(c.dir, key.filename())
	if _, statErr := os.Stat(p); statErr != nil {
		if os.IsNotExist(statErr) {
			return "", false, nil
		}
		return "", false, errors.WithStack(statErr)
	}
	return p, true, nil
}

// Put atomically moves sourcePath into key's canonical location,
// overwriting any prior artifact (spec.md §4.2).
func (c *Cache) Put(key Key, sourcePath string) (string, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", errors.WithStack(err)
	}

	dest := filepath.Join(c.dir, key.filename())
	if err := moveFile(sourcePath, dest); err != nil {
		return "", errors.Wrap(err, "failed to store conversion cache artifact")
	}
	return dest, nil
}

// lockFor returns the per-key mutex for key, creating it if needed.
// This is the single-flight primitive: callers must hold it around
// their GetOrConvert critical section (spec.md §4.2's "callers acquire
// a per-key lock" contract — hand-rolled rather than
// golang.org/x/sync/singleflight, since that package is absent from the
// corpus; see DESIGN.md).
func (c *Cache) lockFor(key Key) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	return l
}

// GetOrConvert returns the cached path for key, generating it via
// generate if absent. Concurrent calls for the same key block on a
// per-key lock so exactly one call invokes generate (spec.md §4.2).
// generate must return the path to a freshly produced file that Put
// will then move into the cache.
func (c *Cache) GetOrConvert(ctx context.Context, key Key, generate func(ctx context.Context) (string, error)) (string, error) {
	if path, ok, err := c.Get(key); err != nil {
		return "", err
	} else if ok {
		return path, nil
	}

	lock := c.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	// Re-check: another goroutine may have populated the cache while we
	// waited for the lock.
	if path, ok, err := c.Get(key); err != nil {
		return "", err
	} else if ok {
		return path, nil
	}

	generated, err := generate(ctx)
	if err != nil {
		return "", err
	}

	return c.Put(key, generated)
}

// moveFile renames sourcePath to destPath, falling back to copy+remove
// across filesystem boundaries. Grounded on pkg/fileutils's
// moveFile/copyFile (operations.go).
func moveFile(sourcePath, destPath string) error {
	if err := os.Rename(sourcePath, destPath); err == nil {
		return nil
	}

	if err := copyFile(sourcePath, destPath); err != nil {
		return err
	}
	return os.Remove(sourcePath)
}

func copyFile(sourcePath, destPath string) error {
	src, err := os.Open(sourcePath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return errors.WithStack(err)
	}

	info, err := src.Stat()
	if err != nil {
		return errors.WithStack(err)
	}
	return dst.Chmod(info.Mode())
}
