// Package exec schedules and runs tasks across issue-scoped worktrees: it
// groups tasks by issue, runs a bounded pool of per-issue workers that
// execute tasks in dependency order, commits changes, and merges each
// issue's branch back onto the base branch (spec §4.5 "exec phase").
package exec

import (
	"time"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/state"
)

// BranchStatus summarizes the outcome of one issue's worker after task
// execution and the merge attempt (spec §4.5.2 step 6).
type BranchStatus string

const (
	BranchComplete BranchStatus = "complete"
	BranchPartial  BranchStatus = "partial"
	BranchFailed   BranchStatus = "failed"
)

// GroupResult is the outcome of running one issue's task group: its
// worktree branch, whether it merged cleanly, and the final status of every
// task in the group.
type GroupResult struct {
	IssueID   string
	Branch    string
	Status    BranchStatus
	Merged    bool
	StartedAt time.Time
	EndedAt   time.Time
	TaskIDs   []string
	Error     error
}

// Options configures the scheduler (spec §4.5.1, §4.5.3).
type Options struct {
	// MaxConcurrent bounds the number of issue workers running at once.
	// Defaults to 4 when zero or negative.
	MaxConcurrent int
	// BaseBranch is the branch worktree branches are created from and
	// rebased/merged onto. Defaults to the repository's current branch
	// when empty.
	BaseBranch string
	// RunID identifies the run whose worktrees and state are being acted on.
	RunID string
	// IssueIDs restricts the scheduler to these issues when non-empty; a
	// task whose issue is not listed is dropped before grouping (spec §6
	// "--issues").
	IssueIDs []string
	// TaskID restricts the scheduler to the single named task when
	// non-empty, implicitly restricting to that task's issue (spec §6
	// "--task-id").
	TaskID string
}

// scopeTasks applies IssueIDs/TaskID scoping to tasks, returning the subset
// that should be scheduled. An Options with neither field set returns tasks
// unfiltered.
func (o Options) scopeTasks(tasks []state.Task) []state.Task {
	if len(o.IssueIDs) == 0 && o.TaskID == "" {
		return tasks
	}
	wanted := make(map[string]bool, len(o.IssueIDs))
	for _, id := range o.IssueIDs {
		wanted[id] = true
	}
	var out []state.Task
	for _, t := range tasks {
		if o.TaskID != "" && t.ID != o.TaskID {
			continue
		}
		if len(wanted) > 0 && !wanted[t.IssueID] {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (o Options) concurrency() int {
	if o.MaxConcurrent <= 0 {
		return 4
	}
	return o.MaxConcurrent
}
