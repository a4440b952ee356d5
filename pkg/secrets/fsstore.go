package secrets

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// FileStore is a minimal file-backed Store, for standalone operation
// where the surrounding application doesn't supply a platform keychain.
// It persists values in a single 0600 JSON file; this is a convenience
// default, not a security boundary — production deployments should
// inject a keychain- or secrets-manager-backed Store instead.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore persisting to dir/secrets.json.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, "secrets.json")}
}

func (f *FileStore) Get(ctx context.Context, account string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	blob, err := f.read()
	if err != nil {
		return "", false, err
	}
	value, ok := blob[account]
	return value, ok, nil
}

func (f *FileStore) Set(ctx context.Context, account, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	blob, err := f.read()
	if err != nil {
		return err
	}
	blob[account] = value
	return f.write(blob)
}

func (f *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, errors.WithStack(err)
	}

	blob := make(map[string]string)
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, errors.WithStack(err)
	}
	return blob, nil
}

func (f *FileStore) write(blob map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return errors.WithStack(err)
	}

	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(os.WriteFile(f.path, data, 0o600))
}
