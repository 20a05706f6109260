// Package deps verifies external tool availability before any work starts.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Status reports the availability of the configured hashing tool.
type Status struct {
	Command   string
	Available bool
	Detail    string
}

// CheckHashTool resolves the hashing tool command on PATH. A missing tool is
// a startup failure: nothing can be digested or verified without it.
func CheckHashTool(command string) Status {
	command = strings.TrimSpace(command)
	status := Status{Command: command}
	if command == "" {
		status.Detail = "hash tool not configured"
		return status
	}
	if _, err := exec.LookPath(command); err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", command)
		return status
	}
	status.Available = true
	return status
}
