package exec

import (
	"fmt"
	"strings"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/state"
)

// buildTaskPrompt composes the Executor-role (EX) prompt for one task from
// the task record and the parent issue's fields (ID, severity, symptom,
// hypothesis, strategy) (spec §4.5.2 step 3). The per-issue WBS markdown is
// not read; nothing from it appears in the prompt.
func buildTaskPrompt(issue state.Issue, task state.Task) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Role: Executor (EX)\n\n")
	fmt.Fprintf(&b, "## Issue\n\n- ID: %s\n- Severity: %s\n- Symptom: %s\n", issue.ID, issue.Severity, issue.Symptom)
	if issue.Hypothesis != "" {
		fmt.Fprintf(&b, "- Hypothesis: %s\n", issue.Hypothesis)
	}
	if issue.Strategy != "" {
		fmt.Fprintf(&b, "- Strategy: %s\n", issue.Strategy)
	}

	fmt.Fprintf(&b, "\n## Task %s: %s\n\n", task.ID, task.Title)
	if task.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", task.Description)
	}

	if len(task.Files) > 0 {
		b.WriteString("## Expected files\n\n")
		for _, f := range task.Files {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}

	if len(task.Acceptance) > 0 {
		b.WriteString("## Acceptance criteria\n\n")
		for _, ac := range task.Acceptance {
			fmt.Fprintf(&b, "- %s\n", ac.Description)
		}
		b.WriteString("\n")
	}

	if len(task.Checks) > 0 {
		b.WriteString("## Checks\n\n")
		for _, c := range task.Checks {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}

	b.WriteString("Implement this task directly in the working tree. Make only the changes this task requires.\n")

	return b.String()
}

// commitMessage is the fixed `[<issue-id>] <task.id>: <task.title>` format
// used both when committing a task's changes and when scanning commit
// history for partial-completion detection (spec §4.5.2 steps 3 and 4).
func commitMessage(issueID string, task state.Task) string {
	return fmt.Sprintf("[%s] %s: %s", issueID, task.ID, task.Title)
}
