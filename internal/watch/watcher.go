// Package watch reports changes to the playground's installed packages.
//
// The watcher observes the workspace directory rather than package.json
// itself, because npm replaces the manifest with a rename. Events are
// debounced and the manifest is fingerprinted, so a rewrite that leaves the
// content unchanged does not trigger a callback.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/danieljhkim/sketchpm/internal/config"
	"github.com/danieljhkim/sketchpm/internal/hash"
)

// DefaultDebounce is how long the watcher waits for events to settle.
const DefaultDebounce = 300 * time.Millisecond

// Lister reads the installed package names. *engine.Engine satisfies it.
type Lister interface {
	ListInstalled(ctx context.Context) ([]string, error)
}

// Event describes a manifest change.
type Event struct {
	// Packages is the fresh dependency list, in manifest order
	Packages []string

	// Hash is the manifest fingerprint, empty when the manifest was removed
	Hash string

	// Time is when the change was processed
	Time time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce duration for file change events.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger for the watcher.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithInitialSnapshot makes Run report the baseline package list once the
// watches are in place, before any change.
func WithInitialSnapshot() Option {
	return func(w *Watcher) { w.initial = true }
}

// WithHasher replaces the SHA-256 hasher.
func WithHasher(h hash.Hasher) Option {
	return func(w *Watcher) { w.hasher = h }
}

// Watcher monitors the playground manifest and invokes a callback when the
// installed packages change.
type Watcher struct {
	paths    *config.Paths
	lister   Lister
	onChange func(Event)

	hasher   hash.Hasher
	debounce time.Duration
	logger   *zap.Logger
	initial  bool

	lastHash string
}

// New creates a Watcher for the workspace described by paths.
func New(paths *config.Paths, lister Lister, onChange func(Event), opts ...Option) *Watcher {
	w := &Watcher{
		paths:    paths,
		lister:   lister,
		onChange: onChange,
		hasher:   hash.NewSHA256Hasher(),
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. The manifest content at the time the
// watches are in place is the baseline; only later changes are reported,
// plus the baseline itself with WithInitialSnapshot.
//
// The data directory is created if missing so that the first install, which
// creates the playground, can be observed.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.paths.Base, 0755); err != nil {
		return fmt.Errorf("watcher: failed to create data directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: create fsnotify: %w", err)
	}
	defer func() {
		_ = fsw.Close()
	}()

	if err := fsw.Add(w.paths.Base); err != nil {
		return fmt.Errorf("watcher: watch %s: %w", w.paths.Base, err)
	}
	w.watchPlayground(fsw)

	// Taken after the watches are added, so any later write produces an event.
	sum, err := w.fingerprint()
	if err != nil {
		return fmt.Errorf("watcher: initial hash: %w", err)
	}
	w.lastHash = sum

	if w.initial {
		packages, err := w.lister.ListInstalled(ctx)
		if err != nil {
			return err
		}
		w.onChange(Event{Packages: packages, Hash: sum, Time: time.Now()})
	}

	// Armed by the first relevant event.
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	w.logger.Info("watching workspace", zap.String("workspace", w.paths.Playground))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) == filepath.Clean(w.paths.Playground) && event.Has(fsnotify.Create) {
				if w.watchPlayground(fsw) {
					// The manifest may have been written before the watch was in place.
					w.check(ctx)
				}
			}
			if !w.relevant(event) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))

		case <-timer.C:
			w.check(ctx)
		}
	}
}

// watchPlayground starts watching the playground if it exists and reports
// whether the watch was added.
func (w *Watcher) watchPlayground(fsw *fsnotify.Watcher) bool {
	if _, err := os.Stat(w.paths.Playground); err != nil {
		return false
	}
	if err := fsw.Add(w.paths.Playground); err != nil {
		w.logger.Warn("failed to watch workspace", zap.String("workspace", w.paths.Playground), zap.Error(err))
		return false
	}
	w.logger.Debug("workspace added to watch list")
	return true
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	return filepath.Clean(event.Name) == filepath.Clean(w.paths.Manifest)
}

// check fingerprints the manifest and reports a change when the fingerprint
// moved since the last report.
func (w *Watcher) check(ctx context.Context) {
	sum, err := w.fingerprint()
	if err != nil {
		w.logger.Error("watcher: failed to hash manifest", zap.Error(err))
		return
	}
	if sum == w.lastHash {
		w.logger.Debug("manifest unchanged, skipping")
		return
	}

	packages, err := w.lister.ListInstalled(ctx)
	if err != nil {
		// Keep the old fingerprint so the next event retries.
		w.logger.Warn("watcher: failed to list packages", zap.Error(err))
		return
	}

	w.lastHash = sum
	w.logger.Info("installed packages changed", zap.Int("count", len(packages)))
	w.onChange(Event{
		Packages: packages,
		Hash:     sum,
		Time:     time.Now(),
	})
}

// fingerprint returns the manifest hash, or "" when there is no manifest.
func (w *Watcher) fingerprint() (string, error) {
	sum, err := w.hasher.HashFile(w.paths.Manifest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return sum, nil
}
