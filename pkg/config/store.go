package config

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// StoreFileName is the JSON blob file backing Store, one file per
// ConfigDirectory holding every key as a top-level property (spec.md
// §6's "user-scoped key-value store" for the SMTPConfig blob and the
// saved Kindle destination). Adapted from the teacher's
// loadUserConfig/saveUserConfigFile (user-config.go) JSON-file
// round-trip, generalized from one fixed struct to an arbitrary
// string-keyed map of raw JSON values.
const StoreFileName = "state.json"

// Well-known keys (spec.md §6).
const (
	KeySMTPConfiguration = "com.folio.smtp.configuration"
	KeyKindleEmail       = "com.folio.kindle.email"
)

// Store is a small JSON-file-backed key-value store for opaque,
// non-secret configuration blobs. It is not a replacement for
// pkg/secrets.Store, which holds the SMTP password specifically.
type Store struct {
	path string

	mu sync.Mutex
}

// NewStore returns a Store rooted at dir (typically Config.ConfigDirectory).
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, StoreFileName)}
}

// Get unmarshals the value at key into out. ok is false if key is
// absent.
func (s *Store) Get(key string, out interface{}) (ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := s.read()
	if err != nil {
		return false, err
	}

	raw, present := blob[key]
	if !present {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, errors.Wrapf(err, "unmarshaling store key %q", key)
	}
	return true, nil
}

// Set writes value at key, creating the store file and its parent
// directory if needed.
func (s *Store) Set(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := s.read()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "marshaling store key %q", key)
	}
	blob[key] = raw

	return s.write(blob)
}

func (s *Store) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]json.RawMessage), nil
		}
		return nil, errors.WithStack(err)
	}

	blob := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, errors.WithStack(err)
	}
	return blob, nil
}

func (s *Store) write(blob map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.WithStack(err)
	}

	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil { //nolint:gosec
		return errors.WithStack(err)
	}
	return nil
}
