package engine

// InstallResult is the user-facing outcome of an install that ran.
// A package manager that exits non-zero still yields a result, with
// Success=false and its stderr carried in Message.
type InstallResult struct {
	// Success is true iff the package manager exited with status 0
	Success bool `json:"success"`

	// Message is "Successfully installed <pkg>" or
	// "Failed to install <pkg>: <stderr>"
	Message string `json:"message"`
}

func newInstallResult(name string, success bool, stderr string) *InstallResult {
	if success {
		return &InstallResult{Success: true, Message: "Successfully installed " + name}
	}
	return &InstallResult{Success: false, Message: "Failed to install " + name + ": " + stderr}
}
