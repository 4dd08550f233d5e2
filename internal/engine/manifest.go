package engine

import (
	"context"
	"errors"
	"os"

	"github.com/danieljhkim/sketchpm/internal/manifest"
)

// ListInstalled returns the dependency names recorded in the workspace
// package.json, in the order they appear in the file.
//
// A workspace that was never bootstrapped has no manifest and yields an empty
// list. A manifest that does not parse is an error.
func (e *Engine) ListInstalled(ctx context.Context) ([]string, error) {
	m, err := e.readManifest()
	if err != nil {
		return nil, err
	}
	return m.Names(), nil
}

// ListDependencies is like ListInstalled but also reports each version spec.
func (e *Engine) ListDependencies(ctx context.Context) ([]manifest.Dependency, error) {
	m, err := e.readManifest()
	if err != nil {
		return nil, err
	}
	return m.Dependencies, nil
}

func (e *Engine) readManifest() (*manifest.Manifest, error) {
	paths, err := e.Paths()
	if err != nil {
		return nil, err
	}

	data, err := e.fs.ReadFile(paths.Manifest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			e.metrics.RecordManifestRead("absent")
			return &manifest.Manifest{Dependencies: []manifest.Dependency{}}, nil
		}
		e.metrics.RecordManifestRead("error")
		return nil, stepError(ErrManifest, "failed to read package.json", err)
	}

	m, err := manifest.Parse(data)
	if err != nil {
		e.metrics.RecordManifestRead("error")
		return nil, stepError(ErrManifest, "failed to parse package.json", err)
	}
	e.metrics.RecordManifestRead("ok")
	return m, nil
}
