package gates

import (
	"fmt"
	"time"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/state"
)

// RunEvidenceGate counts unverified acceptance criteria across every done
// task and passes iff that count is zero. It must run after the DoD gate,
// which is the only gate that can flip AcceptanceCriterion.Verified to true
// (spec §4.5.4 "evidence gate").
func RunEvidenceGate(tasks []state.Task) Result {
	now := time.Now()
	var evidence []Evidence

	for _, t := range tasks {
		if t.Status != state.TaskDone {
			continue
		}
		for _, ac := range t.Acceptance {
			if !ac.Verified {
				evidence = append(evidence, Evidence{
					Type:      EvidenceFile,
					Output:    fmt.Sprintf("task %s: unverified acceptance criterion %q", t.ID, ac.Description),
					Timestamp: now,
				})
			}
		}
	}

	if len(evidence) == 0 {
		return Result{Gate: GateEvidence, Passed: true, Message: "all acceptance criteria verified", Timestamp: now}
	}
	return Result{
		Gate:      GateEvidence,
		Passed:    false,
		Message:   fmt.Sprintf("%d unverified acceptance criterion/criteria remain", len(evidence)),
		Evidence:  evidence,
		Timestamp: now,
	}
}
