// Package settings persists user preferences such as the class tree grouping
// and the member show flags.
package settings

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/conneroisu/docview/internal/errors"
)

// Store is a persistent string key-value store.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Close() error
}

// Backend names a Store implementation
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendYAML   Backend = "yaml"
	BackendSQLite Backend = "sqlite"
)

// Open creates the store for backend. File backends need a path.
func Open(backend Backend, path string) (Store, error) {
	switch Backend(strings.ToLower(string(backend))) {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendYAML:
		if path == "" {
			return nil, errors.NewConfigError(errors.ErrCodeSettings, "yaml settings backend needs a path")
		}
		return OpenYAMLStore(filepath.Clean(path))
	case BackendSQLite:
		if path == "" {
			return nil, errors.NewConfigError(errors.ErrCodeSettings, "sqlite settings backend needs a path")
		}
		return OpenSQLiteStore(filepath.Clean(path))
	default:
		return nil, errors.NewConfigError(errors.ErrCodeSettings,
			fmt.Sprintf("unknown settings backend %q (supported: memory, yaml, sqlite)", backend))
	}
}

// MemoryStore keeps settings for the lifetime of the process.
type MemoryStore struct {
	values map[string]string
	mutex  sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get implements Store
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set implements Store
func (s *MemoryStore) Set(key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.values[key] = value
	return nil
}

// Close implements Store
func (s *MemoryStore) Close() error {
	return nil
}
