// Package kvstore persists small string values under string keys.
// It is the wallet's equivalent of browser local storage: the token list
// and the remembered wallet live here.
package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mrz1836/uccwallet/internal/fileutil"
)

const (
	// storeFilePermissions is the permission mode for the store file.
	storeFilePermissions = 0o600
)

// ErrCorruptStore indicates the store file is malformed JSON.
var ErrCorruptStore = errors.New("store file is corrupted")

// Store is a string key-value store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)

	// Set stores value under key.
	Set(key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
}

// Compile-time interface checks
var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// FileStore keeps all keys in a single JSON object on disk.
// Every Set or Remove rewrites the file atomically.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
	loaded bool
}

// NewFileStore creates a store backed by the file at path.
// The file is read lazily on first access.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the value stored under key.
func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return "", false, err
	}
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores value under key and flushes the file.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil && !errors.Is(err, ErrCorruptStore) {
		return err
	}
	s.values[key] = value
	return s.flush()
}

// Remove deletes key and flushes the file if it was present.
func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil && !errors.Is(err, ErrCorruptStore) {
		return err
	}
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.flush()
}

// Keys returns the stored keys in sorted order.
func (s *FileStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// load must be called with mu held. A corrupt file is moved aside and the
// store starts empty; the error is still reported once.
func (s *FileStore) load() error {
	if s.loaded {
		return nil
	}
	s.values = make(map[string]string)

	data, ok, err := fileutil.ReadOptional(s.path)
	if err != nil {
		return err
	}
	s.loaded = true
	if !ok || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.values); err != nil {
		s.values = make(map[string]string)
		moved, mvErr := fileutil.Quarantine(s.path, time.Now().UTC().UnixNano())
		if mvErr != nil {
			return fmt.Errorf("%w: %w (%w)", ErrCorruptStore, err, mvErr)
		}
		return fmt.Errorf("%w: %w (moved to %s)", ErrCorruptStore, err, moved)
	}
	return nil
}

func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling store: %w", err)
	}
	if err := fileutil.WriteAtomic(s.path, data, storeFilePermissions); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}
	return nil
}
