package pkgmgr

import "fmt"

// DefaultCommand is the package-manager binary used when none is configured.
const DefaultCommand = "npm"

// PackageManager drives an npm-compatible CLI.
type PackageManager struct {
	command string
	runner  Runner
}

// New creates a PackageManager invoking command through runner.
func New(command string, runner Runner) *PackageManager {
	if command == "" {
		command = DefaultCommand
	}
	return &PackageManager{command: command, runner: runner}
}

// Command returns the binary name.
func (p *PackageManager) Command() string {
	return p.command
}

// Install runs `<command> install <name>` in dir. The package name is passed
// through untouched.
func (p *PackageManager) Install(dir, name string) (*Outcome, error) {
	outcome, err := p.runner.Run(dir, p.command, "install", name)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s install: %w", p.command, err)
	}
	return outcome, nil
}
