// Package pkgmgr runs the external package-manager binary.
//
// The one contract worth knowing: a process that starts and exits non-zero is
// NOT an error here. It is reported as an Outcome carrying the exit code and
// captured stderr. Only a failure to start the process at all (binary missing,
// permission denied, bad working directory) is returned as an error.
package pkgmgr

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Outcome is the result of a process that ran to completion.
type Outcome struct {
	// ExitCode is the process exit status (0 on success)
	ExitCode int

	// Stderr is the captured standard error, decoded as UTF-8 with invalid
	// sequences replaced by U+FFFD
	Stderr string
}

// Success reports whether the process exited with status 0.
func (o *Outcome) Success() bool {
	return o.ExitCode == 0
}

// Runner provides an abstraction for running external commands.
type Runner interface {
	// Run executes name with args in dir and waits for it to exit.
	// Stdout is discarded; stderr is captured in full.
	Run(dir, name string, args ...string) (*Outcome, error)
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct{}

// NewExecRunner creates a new ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command synchronously. There is no timeout.
func (r *ExecRunner) Run(dir, name string, args ...string) (*Outcome, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdout = io.Discard
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
		}
		return &Outcome{
			ExitCode: exitCode(exitErr),
			Stderr:   decodeLossy(stderr.Bytes()),
		}, nil
	}

	return &Outcome{Stderr: decodeLossy(stderr.Bytes())}, nil
}

// exitCode maps a signal-terminated process (ExitCode -1) to a non-zero code.
func exitCode(exitErr *exec.ExitError) int {
	if code := exitErr.ExitCode(); code > 0 {
		return code
	}
	return 1
}

func decodeLossy(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// Call records one invocation of a FakeRunner.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// FakeRunner implements Runner with scripted outcomes for testing.
type FakeRunner struct {
	mu      sync.Mutex
	outcome *Outcome
	err     error
	calls   []Call
	onRun   func(dir string)
}

// NewFakeRunner creates a FakeRunner whose commands all succeed.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{outcome: &Outcome{}}
}

// SetOutcome sets the outcome returned by subsequent runs.
func (r *FakeRunner) SetOutcome(exitCode int, stderr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcome = &Outcome{ExitCode: exitCode, Stderr: stderr}
}

// SetError makes subsequent runs fail to launch with err.
func (r *FakeRunner) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// OnRun registers a hook invoked with the working directory on every run,
// before the outcome is returned. Tests use it to mimic the package manager
// editing the manifest.
func (r *FakeRunner) OnRun(fn func(dir string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRun = fn
}

// Calls returns a copy of the recorded invocations.
func (r *FakeRunner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Run records the call and returns the scripted result.
func (r *FakeRunner) Run(dir, name string, args ...string) (*Outcome, error) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Dir: dir, Name: name, Args: append([]string(nil), args...)})
	outcome, err, hook := r.outcome, r.err, r.onRun
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if hook != nil {
		hook(dir)
	}
	copied := *outcome
	return &copied, nil
}
