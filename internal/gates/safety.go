package gates

import (
	"fmt"
	"strings"
)

// SafetyResult is the outcome of validating a DoD check_command against the
// run's allow-listed execution commands (spec §4.5.5).
type SafetyResult struct {
	Valid    bool
	Issues   []string
	Warnings []string
}

// ValidateCommand checks command against allowed, the run's configured
// allow-list of execution command prefixes (state.Config.AllowedCommands
// .Execution). A command is valid if it is non-empty and its text starts
// with one of the allowed prefixes. An empty allow-list is treated as
// "nothing is allowed", not "anything is allowed" (spec §4.5.5).
func ValidateCommand(command string, allowed []string) SafetyResult {
	var res SafetyResult
	trimmed := strings.TrimSpace(command)

	if trimmed == "" {
		res.Issues = append(res.Issues, "empty command")
		return res
	}

	if len(allowed) == 0 {
		res.Issues = append(res.Issues, "no allowed execution commands configured for this run")
		return res
	}

	for _, prefix := range allowed {
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(trimmed, prefix) {
			res.Valid = true
			return res
		}
	}

	res.Issues = append(res.Issues, fmt.Sprintf("command %q does not match any allowed execution command", trimmed))
	return res
}
