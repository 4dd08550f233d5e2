// Package hash fingerprints files so that content changes can be told apart
// from writes that leave a file byte-for-byte identical.
//
// The manifest watcher compares SHA-256 fingerprints of package.json between
// filesystem events; npm frequently rewrites the file without changing it.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
)

// Hasher provides an abstraction for file hashing operations.
type Hasher interface {
	// HashFile computes the hash of the file at the given path.
	HashFile(path string) (string, error)
}

// SHA256Hasher implements Hasher using SHA-256.
type SHA256Hasher struct{}

// NewSHA256Hasher creates a new SHA256Hasher.
func NewSHA256Hasher() *SHA256Hasher {
	return &SHA256Hasher{}
}

// HashFile computes the SHA-256 hash of the file at the given path.
func (h *SHA256Hasher) HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FakeHasher implements Hasher with predetermined hashes for testing.
type FakeHasher struct {
	mu     sync.Mutex
	hashes map[string]string
	calls  int
}

// NewFakeHasher creates a new FakeHasher.
func NewFakeHasher() *FakeHasher {
	return &FakeHasher{hashes: make(map[string]string)}
}

// SetHash sets the hash for a specific path.
func (h *FakeHasher) SetHash(path, hash string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hashes[path] = hash
}

// Calls reports how many times HashFile was invoked.
func (h *FakeHasher) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

// HashFile returns the predetermined hash for the given path, or a
// not-exist error when none was set.
func (h *FakeHasher) HashFile(path string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if hash, ok := h.hashes[path]; ok {
		return hash, nil
	}
	return "", fmt.Errorf("failed to open file: %w", os.ErrNotExist)
}
