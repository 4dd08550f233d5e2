package engine

import (
	"fmt"
	"strings"
)

// InstallRequest represents a request to install one package.
type InstallRequest struct {
	// PackageName is passed to the package manager as a single argument.
	// It may carry a version or tag (left-pad@1.3.0, react@latest).
	PackageName string `json:"packageName"`
}

// Validate rejects names that are empty after trimming whitespace.
// No other checks are made; the package manager is the authority on names.
func (r *InstallRequest) Validate() error {
	if strings.TrimSpace(r.PackageName) == "" {
		return fmt.Errorf("%w: package name is required", ErrValidation)
	}
	return nil
}

// Normalize trims surrounding whitespace from the package name.
func (r *InstallRequest) Normalize() {
	r.PackageName = strings.TrimSpace(r.PackageName)
}
