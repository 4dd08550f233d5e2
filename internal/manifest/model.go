// Package manifest reads and bootstraps the playground's package.json.
//
// Any strict JSON superset of the npm manifest is accepted, and only the
// top-level "dependencies" object is interpreted. Dependency order is the
// order the keys appear in the file.
package manifest

import "github.com/Masterminds/semver/v3"

const (
	// DefaultName is the project name written into a freshly bootstrapped manifest.
	DefaultName = "sketchjs-playground"

	// DefaultVersion is the project version written on bootstrap.
	DefaultVersion = "1.0.0"
)

// Manifest is the subset of package.json sketchpm cares about.
type Manifest struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Private      bool         `json:"private"`
	Dependencies []Dependency `json:"dependencies"`
}

// Dependency is one entry of the "dependencies" object.
type Dependency struct {
	// Name is the package name (the object key)
	Name string `json:"name"`

	// Spec is the raw version specifier (the object value), e.g. "^4.17.0"
	Spec string `json:"spec"`

	// Exact is true when Spec pins a single semantic version
	Exact bool `json:"exact"`
}

// Names returns the dependency names in manifest order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Dependencies))
	for _, d := range m.Dependencies {
		names = append(names, d.Name)
	}
	return names
}

// isExact reports whether spec is a strict X.Y.Z[-pre][+build] version.
// Ranges, tags ("latest"), URLs and partial versions are not exact.
func isExact(spec string) bool {
	_, err := semver.StrictNewVersion(spec)
	return err == nil
}
