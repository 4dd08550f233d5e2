package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/danieljhkim/sketchpm/internal/clock"
	"github.com/danieljhkim/sketchpm/internal/config"
	"github.com/danieljhkim/sketchpm/internal/engine"
	"github.com/danieljhkim/sketchpm/internal/fsops"
	"github.com/danieljhkim/sketchpm/internal/logging"
	"github.com/danieljhkim/sketchpm/internal/metrics"
	"github.com/danieljhkim/sketchpm/internal/pkgmgr"
)

// app bundles everything a command needs.
type app struct {
	settings *config.Settings
	logger   *zap.Logger
	engine   *engine.Engine
}

// newApp loads settings, builds a logger, and wires an engine with real
// implementations of all dependencies. defaultLevel applies when the config
// does not set log.level.
func newApp(defaultLevel string, collector *metrics.Collector) (*app, error) {
	settings, err := config.LoadSettings(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(settings, defaultLevel)
	if err != nil {
		return nil, err
	}

	return &app{
		settings: settings,
		logger:   logger,
		engine:   newEngine(settings, logger, collector),
	}, nil
}

// newLogger creates the zap logger described by the settings.
func newLogger(settings *config.Settings, defaultLevel string) (*zap.Logger, error) {
	level := settings.Log.Level
	if level == "" {
		level = defaultLevel
	}
	logger, err := logging.New(logging.Config{
		Level:  level,
		Format: settings.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// newEngine creates a new engine with real implementations of all dependencies.
func newEngine(settings *config.Settings, logger *zap.Logger, collector *metrics.Collector) *engine.Engine {
	fs := fsops.NewRealFS()
	pm := pkgmgr.New(settings.PackageManager.Command, pkgmgr.NewExecRunner())
	clk := &clock.RealClock{}

	eng := engine.New(settings.AppDirs(), fs, pm, clk, logger)
	eng.SetMetrics(collector)
	return eng
}

// FormatError formats an error for display.
func FormatError(err error) string {
	return errorColor.Sprintf("Error: %v", err)
}

// outputJSON outputs a value as JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputJSONLine outputs a value as compact single-line JSON to stdout.
func outputJSONLine(v interface{}) error {
	return json.NewEncoder(os.Stdout).Encode(v)
}
