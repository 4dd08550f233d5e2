package engine

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/danieljhkim/sketchpm/internal/clock"
	"github.com/danieljhkim/sketchpm/internal/config"
	"github.com/danieljhkim/sketchpm/internal/manifest"
	"github.com/danieljhkim/sketchpm/internal/metrics"
	"github.com/danieljhkim/sketchpm/internal/state"
)

// InstallPackage installs one package into the playground workspace.
//
// The workspace and its package.json are created on first use, before the
// package manager is launched. A package manager that runs and exits non-zero
// produces a result with Success=false and a nil error; errors are reserved
// for the environment, the filesystem, an unreadable manifest, or a package
// manager that could not be started.
//
// The package name is passed through untouched. Callers that accept user
// input should Normalize and Validate the request first.
func (e *Engine) InstallPackage(ctx context.Context, req InstallRequest) (*InstallResult, error) {
	paths, err := e.Paths()
	if err != nil {
		e.metrics.RecordInstall(metrics.OutcomeError, 0)
		return nil, err
	}

	log := e.logger.With(
		zap.String("package", req.PackageName),
		zap.String("workspace", paths.Playground),
	)

	if err := e.ensureWorkspace(paths, log); err != nil {
		e.metrics.RecordInstall(metrics.OutcomeError, 0)
		return nil, err
	}
	if err := e.checkManifest(paths); err != nil {
		e.metrics.RecordInstall(metrics.OutcomeError, 0)
		return nil, err
	}

	startedAt := e.clock.Now()
	log.Debug("running package manager", zap.String("command", e.pm.Command()))

	outcome, err := e.pm.Install(paths.Playground, req.PackageName)
	if err != nil {
		e.metrics.RecordInstall(metrics.OutcomeError, 0)
		log.Error("package manager could not be started", zap.Error(err))
		return nil, stepError(ErrLaunch, "", err)
	}
	duration := clock.Since(e.clock, startedAt)

	result := newInstallResult(req.PackageName, outcome.Success(), outcome.Stderr)
	if result.Success {
		e.metrics.RecordInstall(metrics.OutcomeSuccess, duration)
		log.Info("package installed", zap.Duration("duration", duration))
	} else {
		e.metrics.RecordInstall(metrics.OutcomeFailure, duration)
		log.Warn("package install failed",
			zap.Int("exit_code", outcome.ExitCode),
			zap.Duration("duration", duration),
		)
	}

	e.recordHistory(paths, req.PackageName, result, startedAt, duration, log)
	return result, nil
}

// ensureWorkspace creates the playground and its manifest when the playground
// is absent. An existing playground is left exactly as found.
func (e *Engine) ensureWorkspace(paths *config.Paths, log *zap.Logger) error {
	exists, err := e.fs.Exists(paths.Playground)
	if err != nil {
		return stepError(ErrBootstrap, "failed to check workspace", err)
	}
	if exists {
		return nil
	}

	if err := e.fs.MkdirAll(paths.Playground, 0755); err != nil {
		return stepError(ErrBootstrap, "failed to create directory", err)
	}

	doc, err := manifest.Bootstrap(e.manifestName)
	if err != nil {
		return stepError(ErrBootstrap, "failed to create package.json", err)
	}
	created, err := e.fs.CreateExclusive(paths.Manifest, doc, 0644)
	if err != nil {
		return stepError(ErrBootstrap, "failed to create package.json", err)
	}

	if created {
		log.Info("bootstrapped workspace")
	} else {
		log.Debug("package.json already present, keeping it")
	}
	return nil
}

// checkManifest refuses to run the package manager over a manifest that does
// not parse. A missing manifest is fine; the package manager creates one.
func (e *Engine) checkManifest(paths *config.Paths) error {
	data, err := e.fs.ReadFile(paths.Manifest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return stepError(ErrManifest, "failed to read package.json", err)
	}
	if _, err := manifest.Parse(data); err != nil {
		return stepError(ErrManifest, "failed to parse package.json", err)
	}
	return nil
}

func (e *Engine) recordHistory(
	paths *config.Paths,
	name string,
	result *InstallResult,
	startedAt time.Time,
	duration time.Duration,
	log *zap.Logger,
) {
	entry := state.HistoryEntry{
		ID:        e.newID(),
		Package:   name,
		Success:   result.Success,
		Message:   result.Message,
		StartedAt: startedAt,
		Duration:  duration,
	}
	if err := e.historyStore(paths).Append(entry); err != nil {
		log.Warn("failed to record install history", zap.Error(err))
	}
}
