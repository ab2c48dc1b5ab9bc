package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mrz1836/uccwallet/internal/fileutil"
	"github.com/mrz1836/uccwallet/internal/metrics"
)

// cacheFilePermissions is the permission mode for cache files.
const cacheFilePermissions = 0o640

// ErrCorruptCache indicates the cache file is malformed JSON.
var ErrCorruptCache = errors.New("cache file is corrupted")

// FileStorage persists a BalanceCache as JSON.
type FileStorage struct {
	path    string
	metrics *metrics.Metrics
}

// NewFileStorage creates file storage at path. m is handed to loaded caches.
func NewFileStorage(path string, m *metrics.Metrics) *FileStorage {
	return &FileStorage{path: path, metrics: m}
}

type fileFormat struct {
	Entries map[string]Entry `json:"entries"`
}

// Save writes the cache atomically.
func (s *FileStorage) Save(cache *BalanceCache) error {
	data, err := json.MarshalIndent(fileFormat{Entries: cache.snapshot()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}
	if err := fileutil.WriteAtomic(s.path, data, cacheFilePermissions); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// Load reads the cache. A missing file yields an empty cache. A corrupt file
// is moved aside and an empty cache is returned with ErrCorruptCache.
func (s *FileStorage) Load() (*BalanceCache, error) {
	data, ok, err := fileutil.ReadOptional(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}
	if !ok {
		return NewBalanceCache(s.metrics), nil
	}

	var stored fileFormat
	if err := json.Unmarshal(data, &stored); err != nil {
		moved, moveErr := fileutil.Quarantine(s.path, time.Now().UTC().UnixNano())
		if moveErr != nil {
			return NewBalanceCache(s.metrics), fmt.Errorf("%w: %w (%w)", ErrCorruptCache, err, moveErr)
		}
		return NewBalanceCache(s.metrics), fmt.Errorf("%w: %w (moved to %s)", ErrCorruptCache, err, moved)
	}

	c := &BalanceCache{Entries: stored.Entries}
	c.init(s.metrics)
	return c, nil
}

// Delete removes the cache file.
func (s *FileStorage) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing cache file: %w", err)
	}
	return nil
}

// Path returns the cache file path.
func (s *FileStorage) Path() string {
	return s.path
}
