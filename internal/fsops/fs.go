// Package fsops provides filesystem operations with safety guarantees.
//
// All filesystem mutations in sketchpm go through the FS interface so that the
// engine can be exercised against failing filesystems in tests.
//
// Key features:
//   - Atomic writes using temp file + rename
//   - Create-exclusive writes using temp file + hard link, so a file is either
//     absent or fully written
//   - Testable via the FS interface
package fsops

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FS provides an abstraction for filesystem operations.
type FS interface {
	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string, perm os.FileMode) error

	// AtomicWrite writes data to path atomically using temp file + rename.
	AtomicWrite(path string, data []byte, perm os.FileMode) error

	// CreateExclusive writes data to path only if path does not exist yet.
	// It reports created=false, with a nil error, when the file already exists.
	CreateExclusive(path string, data []byte, perm os.FileMode) (created bool, err error)

	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// Exists checks if a path exists.
	Exists(path string) (bool, error)
}

// RealFS implements FS using actual OS operations.
type RealFS struct{}

// NewRealFS creates a new RealFS.
func NewRealFS() *RealFS {
	return &RealFS{}
}

// MkdirAll creates a directory and all parent directories.
func (fs *RealFS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// ReadFile reads the entire contents of a file.
func (fs *RealFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Exists checks if a path exists.
func (fs *RealFS) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// AtomicWrite writes data to path atomically using temp file + rename.
func (fs *RealFS) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	tmpPath, err := writeTemp(dir, data, perm)
	if err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// CreateExclusive writes data to a temp file and hard-links it into place.
// link(2) fails with EEXIST when path exists, which makes the publish step
// exclusive while readers never observe a partially written file.
func (fs *RealFS) CreateExclusive(path string, data []byte, perm os.FileMode) (bool, error) {
	dir := filepath.Dir(path)

	tmpPath, err := writeTemp(dir, data, perm)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if err := os.Link(tmpPath, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to publish %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// writeTemp writes data to a synced temp file in dir and returns its path.
func writeTemp(dir string, data []byte, perm os.FileMode) (string, error) {
	tmpFile, err := os.CreateTemp(dir, ".sketchpm-tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	fail := func(format string, err error) (string, error) {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf(format, err)
	}

	if _, err := tmpFile.Write(data); err != nil {
		return fail("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fail("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to set permissions: %w", err)
	}
	return tmpPath, nil
}
