package gates

import (
	"fmt"
	"os"
	"time"
)

// RunEnvConsistencyGate counts subdirectories under probesDir and always
// passes; it exists to surface the probe inventory alongside the other
// gates, not to block a run (spec §4.5.4 "env-consistency gate").
func RunEnvConsistencyGate(probesDir string) Result {
	now := time.Now()
	entries, err := os.ReadDir(probesDir)
	if err != nil {
		return Result{
			Gate:      GateEnvConsistency,
			Passed:    true,
			Message:   fmt.Sprintf("probes directory unavailable: %v", err),
			Timestamp: now,
		}
	}

	count := 0
	for _, e := range entries {
		if e.IsDir() {
			count++
		}
	}

	return Result{
		Gate:      GateEnvConsistency,
		Passed:    true,
		Message:   fmt.Sprintf("%d probe director(y/ies) present", count),
		Timestamp: now,
	}
}
