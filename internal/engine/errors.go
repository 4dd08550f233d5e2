package engine

import (
	"errors"

	"github.com/danieljhkim/sketchpm/internal/config"
)

var (
	// ErrConfig indicates the host environment could not supply a data directory.
	ErrConfig = config.ErrConfig

	// ErrBootstrap indicates the workspace directory or manifest could not be created.
	ErrBootstrap = errors.New("workspace bootstrap failed")

	// ErrLaunch indicates the package manager could not be started at all.
	ErrLaunch = errors.New("package manager launch failed")

	// ErrManifest indicates package.json could not be read or parsed.
	ErrManifest = errors.New("manifest unreadable")

	// ErrValidation indicates a request failed validation.
	ErrValidation = errors.New("validation failed")
)

// StepError reports which step of an operation failed. It matches both its
// Kind sentinel and the underlying cause under errors.Is.
type StepError struct {
	// Kind is one of the package sentinels
	Kind error

	// Step is a short description such as "failed to create directory".
	// It is empty when Err already names the failed step.
	Step string

	// Err is the underlying cause
	Err error
}

func (e *StepError) Error() string {
	if e.Step == "" {
		return e.Err.Error()
	}
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func stepError(kind error, step string, err error) error {
	return &StepError{Kind: kind, Step: step, Err: err}
}
