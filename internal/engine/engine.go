// Package engine provides the core business logic for sketchpm operations.
//
// The engine package acts as the orchestration layer between the CLI or RPC
// server and lower-level operations. It resolves the playground workspace,
// bootstraps it on first use, drives the package manager, and reads the
// resulting manifest.
//
// Key components:
//   - Engine: Main orchestrator that coordinates all operations
//   - InstallPackage: Bootstraps the workspace and runs the package manager
//   - ListInstalled/ListDependencies: Read package.json dependencies in order
//   - History: Install attempts recorded next to the workspace
package engine

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danieljhkim/sketchpm/internal/clock"
	"github.com/danieljhkim/sketchpm/internal/config"
	"github.com/danieljhkim/sketchpm/internal/fsops"
	"github.com/danieljhkim/sketchpm/internal/manifest"
	"github.com/danieljhkim/sketchpm/internal/metrics"
	"github.com/danieljhkim/sketchpm/internal/pkgmgr"
	"github.com/danieljhkim/sketchpm/internal/state"
)

// Engine orchestrates all sketchpm operations.
// It is the main API surface called by the CLI and the RPC server.
//
// Engine holds no per-workspace state: paths are resolved on every call, so
// concurrent calls are safe as long as the collaborators are.
type Engine struct {
	appDirs config.AppDirs
	fs      fsops.FS
	pm      *pkgmgr.PackageManager
	clock   clock.Clock
	logger  *zap.Logger
	metrics *metrics.Collector

	manifestName string
	historyLimit int
	newID        func() string
}

// New creates a new Engine with the given dependencies.
// A nil logger is replaced with a no-op logger.
func New(
	appDirs config.AppDirs,
	fs fsops.FS,
	pm *pkgmgr.PackageManager,
	clk clock.Clock,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		appDirs:      appDirs,
		fs:           fs,
		pm:           pm,
		clock:        clk,
		logger:       logger,
		manifestName: manifest.DefaultName,
		historyLimit: state.DefaultHistoryLimit,
		newID:        uuid.NewString,
	}
}

// SetMetrics attaches a metrics collector. Without one nothing is recorded.
func (e *Engine) SetMetrics(c *metrics.Collector) {
	e.metrics = c
}

// SetHistoryLimit changes how many install attempts are retained.
func (e *Engine) SetHistoryLimit(n int) {
	if n > 0 {
		e.historyLimit = n
	}
}

// Paths resolves the workspace paths for the current data directory.
func (e *Engine) Paths() (*config.Paths, error) {
	return config.ResolvePaths(e.appDirs)
}

// PackageManager returns the configured package-manager command.
func (e *Engine) PackageManager() string {
	return e.pm.Command()
}

func (e *Engine) historyStore(paths *config.Paths) *state.FileHistoryStore {
	store := state.NewFileHistoryStore(e.fs, paths.History)
	store.SetLimit(e.historyLimit)
	return store
}
