package state

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/danieljhkim/sketchpm/internal/fsops"
)

// DefaultHistoryLimit caps the number of retained entries.
const DefaultHistoryLimit = 200

// HistoryEntry records one install attempt.
type HistoryEntry struct {
	// ID uniquely identifies the attempt
	ID string `json:"id"`

	// Package is the requested package name
	Package string `json:"package"`

	// Success mirrors the install result
	Success bool `json:"success"`

	// Message mirrors the install result message
	Message string `json:"message"`

	// StartedAt is when the package manager was launched
	StartedAt time.Time `json:"started_at"`

	// Duration is how long the package manager ran
	Duration time.Duration `json:"duration"`
}

// HistoryStore provides an interface for persisting install history.
type HistoryStore interface {
	// Append adds an entry, dropping the oldest entries beyond the limit.
	Append(entry HistoryEntry) error

	// Load returns entries oldest first. A missing history is empty, not an error.
	Load() ([]HistoryEntry, error)
}

// FileHistoryStore implements HistoryStore using a JSON file on disk.
type FileHistoryStore struct {
	fs    fsops.FS
	path  string
	limit int
}

// NewFileHistoryStore creates a new FileHistoryStore writing to path.
func NewFileHistoryStore(fs fsops.FS, path string) *FileHistoryStore {
	return &FileHistoryStore{fs: fs, path: path, limit: DefaultHistoryLimit}
}

// SetLimit changes the retention limit. Non-positive values are ignored.
func (s *FileHistoryStore) SetLimit(n int) {
	if n > 0 {
		s.limit = n
	}
}

// Load reads the history file.
func (s *FileHistoryStore) Load() ([]HistoryEntry, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []HistoryEntry{}, nil
		}
		return nil, fmt.Errorf("failed to read install history: %w", err)
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal install history: %w", err)
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return entries, nil
}

// Append adds entry and rewrites the file atomically. Concurrent appends are
// not coordinated; the last writer wins.
func (s *FileHistoryStore) Append(entry HistoryEntry) error {
	entries, err := s.Load()
	if err != nil {
		return err
	}

	entries = append(entries, entry)
	if len(entries) > s.limit {
		entries = entries[len(entries)-s.limit:]
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal install history: %w", err)
	}
	if err := s.fs.AtomicWrite(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write install history: %w", err)
	}
	return nil
}

// Recent returns at most n of the newest entries, newest first.
// n <= 0 returns all of them.
func Recent(entries []HistoryEntry, n int) []HistoryEntry {
	if n <= 0 || n > len(entries) {
		n = len(entries)
	}
	out := make([]HistoryEntry, 0, n)
	for i := len(entries) - 1; i >= len(entries)-n; i-- {
		out = append(out, entries[i])
	}
	return out
}
