// Package fileutil provides filesystem helpers for the wallet's state files.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrEmptyPath indicates an empty file path was provided.
var ErrEmptyPath = errors.New("path is empty")

// dirPermissions is used when creating parent directories of state files.
const dirPermissions = 0o750

// WriteAtomic writes data to path atomically with the provided permissions.
// The parent directory is created if missing. Data goes to a temp file in the
// same directory, is fsynced, then renamed over the target.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return ErrEmptyPath
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tmpPath := tmpFile.Name()
	closed := false
	defer func() {
		if !closed {
			_ = tmpFile.Close()
		}
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := tmpFile.Chmod(perm); err != nil {
		return fmt.Errorf("setting temp file permissions: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	closed = true

	if err := os.Rename(tmpPath, path); err != nil { //nolint:gosec // G703: path comes from wallet home, not user input
		return fmt.Errorf("renaming temp file: %w", err)
	}

	// Best effort directory sync for rename durability.
	if dirFile, err := os.Open(dir); err == nil { //nolint:gosec // G304: dir is derived from validated path
		_ = dirFile.Sync()
		_ = dirFile.Close()
	}

	return nil
}

// ReadOptional reads path, returning (nil, false, nil) when it does not exist.
func ReadOptional(path string) ([]byte, bool, error) {
	if path == "" {
		return nil, false, ErrEmptyPath
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from wallet home
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return data, true, nil
}

// Quarantine moves a file that failed to parse out of the way so the next
// write starts clean. It returns the new path.
func Quarantine(path string, suffix int64) (string, error) {
	moved := fmt.Sprintf("%s.corrupt.%d", path, suffix)
	if err := os.Rename(path, moved); err != nil { //nolint:gosec // G703: path comes from wallet home
		return "", fmt.Errorf("moving corrupt file: %w", err)
	}
	return moved, nil
}
