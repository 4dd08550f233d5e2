// Package config manages sketchpm configuration and filesystem paths.
//
// Every path sketchpm touches hangs off a single application-private data
// directory supplied by the host environment (the AppDirs collaborator). The
// playground workspace, its package.json manifest, and the install history all
// live under that base directory.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// DefaultIdentifier is the application identifier used to namespace the
	// data directory when none is configured.
	DefaultIdentifier = "com.sketchjs.app"

	// PlaygroundDirName is the workspace directory name under the data directory.
	PlaygroundDirName = "playground"

	// ManifestFileName is the package manager's project manifest.
	ManifestFileName = "package.json"

	// HistoryFileName stores the install history next to the playground.
	HistoryFileName = "history.json"

	// DataDirEnv overrides the data directory entirely.
	DataDirEnv = "SKETCHPM_DATA_DIR"
)

// ErrConfig marks failures of the host environment to supply a directory.
var ErrConfig = errors.New("configuration error")

// AppDirs looks up the application-private data directory.
type AppDirs interface {
	// DataDir returns the base directory owned by the application.
	DataDir() (string, error)
}

// Paths contains all the filesystem paths used by sketchpm.
type Paths struct {
	// Base is the application data directory
	Base string

	// Playground is the sandboxed package-manager project directory
	Playground string

	// Manifest is the path to package.json inside Playground
	Manifest string

	// History is the path to the install history file
	History string
}

// PlaygroundDir returns the workspace directory for the given base directory.
func PlaygroundDir(base string) string {
	return filepath.Join(base, PlaygroundDirName)
}

// NewPaths builds the path set rooted at base. It performs no I/O.
func NewPaths(base string) *Paths {
	playground := PlaygroundDir(base)
	return &Paths{
		Base:       base,
		Playground: playground,
		Manifest:   filepath.Join(playground, ManifestFileName),
		History:    filepath.Join(base, HistoryFileName),
	}
}

// ResolvePaths asks the host environment for the data directory and derives
// the path set from it.
func ResolvePaths(dirs AppDirs) (*Paths, error) {
	base, err := dirs.DataDir()
	if err != nil {
		return nil, &dataDirError{err: err}
	}
	if base == "" {
		return nil, &dataDirError{err: errors.New("empty path")}
	}
	return NewPaths(base), nil
}

// dataDirError reports a failed data-directory lookup. It matches both
// ErrConfig and the underlying cause under errors.Is.
type dataDirError struct {
	err error
}

func (e *dataDirError) Error() string {
	return "failed to get app data directory: " + e.err.Error()
}

func (e *dataDirError) Unwrap() []error {
	return []error{ErrConfig, e.err}
}

// RealAppDirs resolves the per-user application data directory the same way
// desktop shells do: the platform data root joined with the app identifier.
// The root comes from xdg.DataHome (XDG_DATA_HOME or ~/.local/share on Linux,
// ~/Library/Application Support on macOS, %LOCALAPPDATA% on Windows).
type RealAppDirs struct {
	// Identifier namespaces the directory (e.g. com.sketchjs.app)
	Identifier string

	// Override, when set, is returned verbatim
	Override string
}

// NewRealAppDirs creates a RealAppDirs for the given identifier.
// The SKETCHPM_DATA_DIR environment variable takes precedence over override.
func NewRealAppDirs(identifier, override string) *RealAppDirs {
	if env := os.Getenv(DataDirEnv); env != "" {
		override = env
	}
	if identifier == "" {
		identifier = DefaultIdentifier
	}
	return &RealAppDirs{Identifier: identifier, Override: override}
}

// DataDir returns the application data directory: Override when set,
// otherwise the platform data home joined with Identifier.
func (d *RealAppDirs) DataDir() (string, error) {
	if d.Override != "" {
		return d.Override, nil
	}
	if xdg.DataHome == "" {
		return "", errors.New("no data home directory for this platform")
	}
	return filepath.Join(xdg.DataHome, d.Identifier), nil
}
