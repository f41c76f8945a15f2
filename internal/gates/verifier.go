package gates

import (
	"context"
	"fmt"
	"strings"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/engine"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/executor"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/jsonutil"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/state"
)

// buildVerifierPrompt composes the Truth Verifier (TV) role prompt from
// project context, completed/failed task counts, the task list, and the
// pre-check issues surfaced by any failed deterministic gate (spec §4.5.6).
func buildVerifierPrompt(tasks []state.Task, gateResults []Result) string {
	var b strings.Builder
	b.WriteString("## Role: Truth Verifier (TV)\n\n")

	var done, failed, mergeErr, other int
	for _, t := range tasks {
		switch t.Status {
		case state.TaskDone:
			done++
		case state.TaskFailed:
			failed++
		case state.TaskMergeError:
			mergeErr++
		default:
			other++
		}
	}
	fmt.Fprintf(&b, "## Task summary\n\n- done: %d\n- failed: %d\n- merge_error: %d\n- other: %d\n\n", done, failed, mergeErr, other)

	b.WriteString("## Tasks\n\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "- %s [%s]: %s\n", t.ID, t.Status, t.Title)
	}
	b.WriteString("\n")

	b.WriteString("## Pre-check issues from deterministic gates\n\n")
	anyFailed := false
	for _, g := range gateResults {
		if g.Passed {
			continue
		}
		anyFailed = true
		fmt.Fprintf(&b, "- %s: %s\n", g.Gate, g.Message)
	}
	if !anyFailed {
		b.WriteString("(none — all deterministic gates passed)\n")
	}
	b.WriteString("\n")

	b.WriteString("Respond with a single JSON object: " +
		"{\"overall_pass\": bool, \"gates\": [{\"gate\": string, \"passed\": bool, \"message\": string, \"evidence\": []}], " +
		"\"recommendations\": [string], \"regressions_found\": bool, \"summary\": string}.\n")

	return b.String()
}

// RunVerifier invokes the engine in the Truth Verifier role and extracts its
// structured response. The caller combines the response with the
// deterministic gate results through Success (spec §4.5.6, §9): the
// verifier's own Gates array is advisory only.
func RunVerifier(
	ctx context.Context,
	plugins []engine.Plugin,
	newExecutor func(engine.Plugin) *executor.Executor,
	workDir, runID string,
	tasks []state.Task,
	gateResults []Result,
) (*VerifierResponse, error) {
	prompt := buildVerifierPrompt(tasks, gateResults)

	req := executor.Request{
		Prompt:           prompt,
		WorkDir:          workDir,
		RunID:            runID,
		AgentRole:        engine.RoleTruthVerifier,
		PipelinePhase:    "verify",
		StructuredOutput: true,
	}

	result, err := executor.FallbackExecute(ctx, plugins, req, newExecutor)
	if err != nil {
		return nil, fmt.Errorf("gates: verifier: engine invocation failed: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("gates: verifier: engine invocation did not succeed: %w", result.Error)
	}

	var resp VerifierResponse
	if err := jsonutil.ExtractInto(result.FinalResponse, &resp); err != nil {
		return nil, fmt.Errorf("gates: verifier: extracting JSON response: %w", err)
	}
	return &resp, nil
}

// Success computes the spec's overall-success formula: zero gate failures,
// the verifier's own overall_pass flag, and zero failed tasks (spec §4.5.6
// "overall success").
func Success(gateResults []Result, verifier *VerifierResponse, tasks []state.Task) bool {
	for _, g := range gateResults {
		if !g.Passed {
			return false
		}
	}
	if verifier == nil || !verifier.OverallPass {
		return false
	}
	for _, t := range tasks {
		if t.Status == state.TaskFailed {
			return false
		}
	}
	return true
}
