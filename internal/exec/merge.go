package exec

import (
	"context"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/git"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/state"
)

// mergePhase rebases branch onto base, falling back to a direct three-way
// merge if the rebase conflicts, and finally merges into base. A conflict
// in either path leaves branch and its worktree untouched so the work is
// never lost; the caller still reports the run as partial, never aborts
// (spec §4.5.2 step 5).
//
// It returns whether branch ended up merged into base, and the overall
// BranchStatus for the issue given tasks' final persisted state.
func (w *Worker) mergePhase(ctx context.Context, wt *worktreeHandle, issueID, branch, base string, tasks []state.Task) (merged bool, status BranchStatus) {
	outcome, rebaseErr := wt.git.Rebase(ctx, branch, base)
	if rebaseErr != nil {
		return false, classifyStatus(issueID, tasks, false)
	}

	if outcome == git.MergeConflict {
		_ = wt.git.RebaseAbort(ctx)
		merged = w.attemptDirectMerge(ctx, issueID, branch, base)
	} else {
		merged = w.finishMerge(ctx, issueID, branch, base)
	}

	if !merged {
		w.markMergeErrors(issueID, tasks)
	} else {
		w.cleanupBranch(ctx, wt, branch)
	}

	return merged, classifyStatus(issueID, tasks, merged)
}

// attemptDirectMerge tries a straight merge of branch into base when the
// rebase path conflicted, returning whether it succeeded.
func (w *Worker) attemptDirectMerge(ctx context.Context, issueID, branch, base string) bool {
	return w.finishMerge(ctx, issueID, branch, base)
}

// finishMerge serializes on baseMu (the single "merger" draining completed
// workers, spec §5), checks out base in the main repo checkout, and merges
// branch into it. A conflict is aborted immediately so the main checkout
// never remains dirty; branch itself is never touched on failure.
func (w *Worker) finishMerge(ctx context.Context, issueID, branch, base string) bool {
	w.baseMu.Lock()
	defer w.baseMu.Unlock()

	if err := w.repo.Checkout(ctx, base); err != nil {
		if w.logger != nil {
			w.logger.Warn("exec: worker: checking out base before merge failed", "issue_id", issueID, "error", err)
		}
		return false
	}

	outcome, err := w.repo.Merge(ctx, branch)
	if err != nil {
		if w.logger != nil {
			w.logger.Warn("exec: worker: merge failed", "issue_id", issueID, "branch", branch, "error", err)
		}
		return false
	}

	switch outcome {
	case git.MergeClean, git.MergeNoOp:
		return true
	case git.MergeConflict:
		_ = w.repo.MergeAbort(ctx)
		if w.logger != nil {
			w.logger.Warn("exec: worker: merge conflict, branch preserved for manual resolution", "issue_id", issueID, "branch", branch)
		}
		return false
	default:
		return false
	}
}

// cleanupBranch deletes the merged worker branch and removes its worktree.
// Called only after a confirmed clean merge; never invoked when the branch
// still carries unmerged work.
func (w *Worker) cleanupBranch(ctx context.Context, wt *worktreeHandle, branch string) {
	w.baseMu.Lock()
	defer w.baseMu.Unlock()

	if err := w.repo.WorktreeRemove(ctx, wt.path, true); err != nil && w.logger != nil {
		w.logger.Warn("exec: worker: removing worktree after merge failed", "path", wt.path, "error", err)
	}
	if err := w.repo.DeleteBranch(ctx, branch, true); err != nil && w.logger != nil {
		w.logger.Warn("exec: worker: deleting merged branch failed", "branch", branch, "error", err)
	}
}

// markMergeErrors flips every still-done task in this issue's group to
// merge_error, since their commits exist on an unmerged branch (spec
// §4.5.2 step 5).
func (w *Worker) markMergeErrors(issueID string, tasks []state.Task) {
	for _, t := range tasks {
		if t.IssueID != issueID || t.Status != state.TaskDone {
			continue
		}
		if err := w.store.UpdateTaskStatus(t.ID, state.TaskMergeError); err != nil && w.logger != nil {
			w.logger.Warn("exec: worker: marking task merge_error failed", "task_id", t.ID, "error", err)
		}
	}
}

// classifyStatus derives the issue's final BranchStatus from its tasks'
// persisted statuses (spec §4.5.2 step 6): complete when every task in the
// group is done and the branch merged; failed when none completed; partial
// otherwise.
func classifyStatus(issueID string, tasks []state.Task, merged bool) BranchStatus {
	var done, other int
	for _, t := range tasks {
		if t.IssueID != issueID {
			continue
		}
		switch t.Status {
		case state.TaskDone:
			done++
		default:
			other++
		}
	}

	switch {
	case done == 0:
		return BranchFailed
	case merged && other == 0:
		return BranchComplete
	default:
		return BranchPartial
	}
}
