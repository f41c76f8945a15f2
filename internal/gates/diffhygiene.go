package gates

import (
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/state"
)

// RunDiffHygieneGate flags executions of done tasks that produced a commit
// but whose task declared zero expected files, a coarse heuristic for a
// silent, undeclared refactor riding along with the task's real change. It
// also flags any declared file matching one of the project's
// boundaries.never_touch globs (spec §6 "boundaries"). Both checks are
// warning-only signals, not a precise diff analyzer, and the gate passes
// iff zero suspects are found across either check (spec §4.5.4
// "diff-hygiene gate").
func RunDiffHygieneGate(tasks []state.Task, executions []state.Execution, neverTouch []string) Result {
	now := time.Now()
	doneByID := make(map[string]state.Task, len(tasks))
	for _, t := range tasks {
		if t.Status == state.TaskDone {
			doneByID[t.ID] = t
		}
	}

	var evidence []Evidence
	for _, exec := range executions {
		task, ok := doneByID[exec.TaskID]
		if !ok {
			continue
		}
		if exec.Branch != "" && len(task.Files) == 0 {
			evidence = append(evidence, Evidence{
				Type:      EvidenceCommand,
				Command:   exec.CommitSHA,
				Output:    fmt.Sprintf("task %s produced a commit but declared no files", task.ID),
				Timestamp: now,
			})
		}
	}

	for _, t := range tasks {
		if t.Status != state.TaskDone {
			continue
		}
		for _, f := range t.Files {
			for _, glob := range neverTouch {
				matched, err := doublestar.Match(glob, f)
				if err != nil || !matched {
					continue
				}
				evidence = append(evidence, Evidence{
					Type:      EvidenceFile,
					File:      f,
					Output:    fmt.Sprintf("task %s touched boundary-protected path %q (matches %q)", t.ID, f, glob),
					Timestamp: now,
				})
			}
		}
	}

	if len(evidence) == 0 {
		return Result{Gate: GateDiffHygiene, Passed: true, Message: "no undeclared-change suspects found", Timestamp: now}
	}
	return Result{
		Gate:      GateDiffHygiene,
		Passed:    false,
		Message:   fmt.Sprintf("%d possible silent refactor(s) found", len(evidence)),
		Evidence:  evidence,
		Timestamp: now,
	}
}
