package gates

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/itchyny/gojq"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/review"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/state"
)

// dodCheckTimeout is the fixed per-check_command deadline (spec §4.5.4
// "DoD gate").
const dodCheckTimeout = 30 * time.Second

// RunDoDGate validates and executes each done task's acceptance-criteria
// check_commands, persisting newly-verified criteria back through store.
// It returns the gate result and the tasks slice with Acceptance entries
// updated in place, which the evidence gate (run immediately after) reads
// (spec §4.5.4 "gate 3 mutates state, gate 4 reads").
//
// unsafeOverride skips the command-safety check but still executes the
// command; skipped (unsafe, non-overridden) checks contribute a warning,
// not a gate failure (spec §4.5.5).
func RunDoDGate(
	ctx context.Context,
	workDir string,
	tasks []state.Task,
	allowedCommands []string,
	unsafeOverride bool,
	store *state.RunStore,
	logger *log.Logger,
) (Result, []state.Task) {
	now := time.Now()
	runner := review.NewVerificationRunner(nil, workDir, dodCheckTimeout, logger)

	var evidence []Evidence
	allVerifiedOrAbsent := true
	changed := false
	anyCriteria := false

	for ti := range tasks {
		if tasks[ti].Status != state.TaskDone {
			continue
		}
		for ci := range tasks[ti].Acceptance {
			ac := &tasks[ti].Acceptance[ci]
			anyCriteria = true

			if ac.Verified {
				continue
			}

			if ac.CheckCommand == "" {
				allVerifiedOrAbsent = false
				evidence = append(evidence, Evidence{
					Type:      EvidenceCommand,
					Output:    fmt.Sprintf("task %s: %q has no check defined", tasks[ti].ID, ac.Description),
					Timestamp: now,
				})
				continue
			}

			if !unsafeOverride {
				safety := ValidateCommand(ac.CheckCommand, allowedCommands)
				if !safety.Valid {
					allVerifiedOrAbsent = false
					evidence = append(evidence, Evidence{
						Type:      EvidenceCommand,
						Command:   ac.CheckCommand,
						Output:    fmt.Sprintf("skipped: %v", safety.Issues),
						Timestamp: now,
					})
					if logger != nil {
						logger.Warn("gates: dod: check_command skipped by safety policy", "task_id", tasks[ti].ID, "command", ac.CheckCommand)
					}
					continue
				}
			}

			result, err := runner.RunSingle(ctx, ac.CheckCommand)
			if err != nil {
				allVerifiedOrAbsent = false
				evidence = append(evidence, Evidence{
					Type:      EvidenceCommand,
					Command:   ac.CheckCommand,
					Output:    err.Error(),
					Timestamp: now,
				})
				continue
			}

			evidence = append(evidence, Evidence{
				Type:      EvidenceCommand,
				Command:   ac.CheckCommand,
				Output:    result.Stdout + result.Stderr,
				Timestamp: now,
			})

			verified := result.Passed
			if verified && ac.EvidenceQuery != "" {
				queryOK, queryErr := evaluateEvidenceQuery(ac.EvidenceQuery, result.Stdout)
				if queryErr != nil {
					verified = false
					evidence = append(evidence, Evidence{
						Type:      EvidenceCommand,
						Command:   ac.CheckCommand,
						Output:    fmt.Sprintf("evidence_query %q: %v", ac.EvidenceQuery, queryErr),
						Timestamp: now,
					})
				} else if !queryOK {
					verified = false
				}
			}

			if verified {
				ac.Verified = true
				changed = true
			} else {
				allVerifiedOrAbsent = false
			}
		}
	}

	if changed && store != nil {
		if err := store.SaveTasks(tasks); err != nil && logger != nil {
			logger.Warn("gates: dod: persisting verified acceptance criteria failed", "error", err)
		}
	}

	passed := !anyCriteria || allVerifiedOrAbsent
	message := "all acceptance criteria verified or none exist"
	if !passed {
		message = "one or more acceptance criteria failed or could not be verified"
	}

	return Result{
		Gate:      GateDoD,
		Passed:    passed,
		Message:   message,
		Evidence:  evidence,
		Timestamp: now,
	}, tasks
}

// evaluateEvidenceQuery decodes stdout as JSON and runs query against it,
// returning whether the first result is truthy. A query producing no
// results, a decode error, or a query evaluation error is treated as
// failure, reported through the returned error.
func evaluateEvidenceQuery(query, stdout string) (bool, error) {
	var input interface{}
	if err := json.Unmarshal([]byte(stdout), &input); err != nil {
		return false, fmt.Errorf("decoding check_command stdout as JSON: %w", err)
	}

	parsed, err := gojq.Parse(query)
	if err != nil {
		return false, fmt.Errorf("parsing jq expression: %w", err)
	}

	iter := parsed.Run(input)
	v, ok := iter.Next()
	if !ok {
		return false, fmt.Errorf("jq expression produced no result")
	}
	if err, ok := v.(error); ok {
		return false, fmt.Errorf("evaluating jq expression: %w", err)
	}

	return truthy(v), nil
}

// truthy mirrors jq's own truthiness rule: everything is truthy except
// false and null.
func truthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
