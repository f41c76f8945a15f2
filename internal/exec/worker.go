package exec

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/engine"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/executor"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/git"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/state"
)

// autostashBranch collects dirty-tree snapshots taken before worktree
// provisioning, kept as ordinary commits rather than stash-stack entries so
// concurrent workers never race on a single shared stash (spec §4.5.2
// step 1, §5 "VCS repo shared").
const autostashBranch = "milhouse-autostash"

// branchPrefix is prepended to every issue ID to form its worktree branch
// name (spec §4.5.2 step 1).
const branchPrefix = "milhouse/"

func worktreeBranch(issueID string) string {
	return branchPrefix + issueID
}

// Worker runs one issue's task group to completion: worktree provisioning,
// topological task execution, and the rebase/merge-fallback phase.
type Worker struct {
	repo           *git.GitClient
	newWorktreeGit func(path string) (*git.GitClient, error)
	store          *state.RunStore
	layout         state.Layout
	plugins        []engine.Plugin
	newExecutor    func(engine.Plugin) *executor.Executor
	logger         *log.Logger

	// baseMu serializes operations that touch the shared base branch in the
	// main repository checkout: autostash, rebase-fallback merge, and
	// branch deletion. Worktree creation/removal and per-task commits do
	// not need it since they operate on each worker's own isolated
	// worktree (spec §5, "base-branch ops must serialize via a single
	// merger draining completed workers").
	baseMu *sync.Mutex
}

// NewWorker builds a Worker. plugins is tried in order via the executor's
// fallback helper for every task invocation (spec §4.3 "Fallback helper").
func NewWorker(
	repo *git.GitClient,
	store *state.RunStore,
	layout state.Layout,
	plugins []engine.Plugin,
	newExecutor func(engine.Plugin) *executor.Executor,
	logger *log.Logger,
) *Worker {
	return &Worker{
		repo:           repo,
		store:          store,
		layout:         layout,
		plugins:        plugins,
		newExecutor:    newExecutor,
		logger:         logger,
		baseMu:         &sync.Mutex{},
		newWorktreeGit: git.NewGitClient,
	}
}

// Run executes issue's task group end to end, never returning an error: any
// failure is captured in the returned GroupResult so one issue's problems
// never abort its siblings (spec §4.5.2, §4.5.3).
func (w *Worker) Run(ctx context.Context, issue state.Issue, tasks []state.Task, opts Options) GroupResult {
	res := GroupResult{IssueID: issue.ID, StartedAt: time.Now()}
	for _, t := range tasks {
		res.TaskIDs = append(res.TaskIDs, t.ID)
	}

	if len(tasks) == 0 {
		res.Status = BranchComplete
		res.Merged = false
		res.EndedAt = time.Now()
		return res
	}

	branch := worktreeBranch(issue.ID)
	res.Branch = branch

	ordered, err := topoOrder(tasks)
	if err != nil {
		res.Status = BranchFailed
		res.Error = err
		res.EndedAt = time.Now()
		return res
	}

	base := opts.BaseBranch
	if base == "" {
		if b, err := w.repo.CurrentBranch(ctx); err == nil {
			base = b
		} else {
			res.Status = BranchFailed
			res.Error = fmt.Errorf("exec: worker %s: resolving base branch: %w", issue.ID, err)
			res.EndedAt = time.Now()
			return res
		}
	}

	worktreePath := w.layout.RunWorktreePath(opts.RunID, issue.ID)
	wt, err := w.provisionWorktree(ctx, worktreePath, branch, base)
	if err != nil {
		res.Status = BranchFailed
		res.Error = fmt.Errorf("exec: worker %s: provisioning worktree: %w", issue.ID, err)
		res.EndedAt = time.Now()
		return res
	}

	w.detectPartialCompletion(ctx, wt, issue.ID, branch, ordered)

	for _, task := range ordered {
		if task.Status == state.TaskDone {
			continue
		}
		w.runTask(ctx, wt, issue, task, opts)
	}

	finalTasks, err := w.store.LoadTasks()
	if err != nil && w.logger != nil {
		w.logger.Warn("exec: worker: reloading tasks after execution failed", "issue_id", issue.ID, "error", err)
	}

	merged, status := w.mergePhase(ctx, wt, issue.ID, branch, base, finalTasks)
	res.Merged = merged
	res.Status = status
	res.EndedAt = time.Now()
	return res
}

// worktreeHandle bundles a provisioned worktree's path and a GitClient
// scoped to it.
type worktreeHandle struct {
	path string
	git  *git.GitClient
}

// provisionWorktree force-removes any stale worktree at path, auto-stashes
// a dirty main checkout onto autostashBranch, and creates a fresh worktree
// on branch cut from base (spec §4.5.2 step 1).
func (w *Worker) provisionWorktree(ctx context.Context, path, branch, base string) (*worktreeHandle, error) {
	w.baseMu.Lock()
	defer w.baseMu.Unlock()

	if _, err := os.Stat(path); err == nil {
		if err := w.repo.WorktreeRemove(ctx, path, true); err != nil && w.logger != nil {
			w.logger.Warn("exec: worker: removing stale worktree", "path", path, "error", err)
		}
	}

	if err := w.autostashIfDirty(ctx); err != nil && w.logger != nil {
		w.logger.Warn("exec: worker: autostash before worktree provisioning failed", "error", err)
	}

	exists, err := w.repo.BranchExists(ctx, branch)
	if err != nil {
		return nil, fmt.Errorf("checking branch %q: %w", branch, err)
	}
	if exists {
		if err := w.repo.WorktreeAdd(ctx, path, branch); err != nil {
			return nil, err
		}
	} else {
		if err := w.repo.WorktreeAddFrom(ctx, path, branch, base); err != nil {
			return nil, err
		}
	}

	wtGit, err := w.newWorktreeGit(path)
	if err != nil {
		return nil, fmt.Errorf("opening worktree client: %w", err)
	}
	return &worktreeHandle{path: path, git: wtGit}, nil
}

// autostashIfDirty preserves uncommitted changes in the main checkout as a
// commit on autostashBranch rather than the shared stash stack, then
// restores the original branch (spec §4.5.2 step 1).
func (w *Worker) autostashIfDirty(ctx context.Context) error {
	dirty, err := w.repo.HasUncommittedChanges(ctx)
	if err != nil || !dirty {
		return err
	}

	original, err := w.repo.CurrentBranch(ctx)
	if err != nil {
		return err
	}

	ref, stashed, err := w.repo.StashPush(ctx, "milhouse: autostash before worktree provisioning")
	if err != nil || !stashed {
		return err
	}

	exists, err := w.repo.BranchExists(ctx, autostashBranch)
	if err != nil {
		return err
	}
	if exists {
		if err := w.repo.Checkout(ctx, autostashBranch); err != nil {
			return err
		}
	} else if err := w.repo.CreateBranch(ctx, autostashBranch, original); err != nil {
		return err
	}

	if err := w.repo.StashPopRef(ctx, ref); err != nil {
		return err
	}
	if err := w.repo.AddAll(ctx); err != nil {
		return err
	}
	if err := w.repo.Commit(ctx, fmt.Sprintf("milhouse: autostash from %s", original)); err != nil {
		return err
	}
	return w.repo.Checkout(ctx, original)
}

// partialCompletionRe matches the fixed commit message format used by
// runTask, extracting the task ID (spec §4.5.2 step 4).
var partialCompletionRe = regexp.MustCompile(`^\[\S+\]\s+(\S+):`)

// detectPartialCompletion scans branch's commit log for the fixed
// "[<issue-id>] <task.id>: ..." format and marks any still-pending task
// that already has a matching commit as done, without re-executing it
// (spec §4.5.2 step 4). It mutates the task.Status fields in place (the
// caller's ordered slice) so the execution loop can skip them, and persists
// the status change through the store.
func (w *Worker) detectPartialCompletion(ctx context.Context, wt *worktreeHandle, issueID, branch string, tasks []state.Task) {
	entries, err := wt.git.LogBranch(ctx, branch, 1000)
	if err != nil {
		return
	}

	completed := make(map[string]bool)
	for _, e := range entries {
		m := partialCompletionRe.FindStringSubmatch(e.Message)
		if m != nil {
			completed[m[1]] = true
		}
	}

	for i := range tasks {
		if tasks[i].Status == state.TaskPending && completed[tasks[i].ID] {
			if w.logger != nil {
				w.logger.Warn("exec: worker: task already has a completing commit, skipping re-execution",
					"issue_id", issueID, "task_id", tasks[i].ID)
			}
			tasks[i].Status = state.TaskDone
			if err := w.store.UpdateTaskStatus(tasks[i].ID, state.TaskDone); err != nil && w.logger != nil {
				w.logger.Warn("exec: worker: persisting partial-completion status failed", "task_id", tasks[i].ID, "error", err)
			}
		}
	}
}

// runTask executes one task inside the worktree: build the prompt, validate
// it, invoke the engine, commit on file changes, and record the execution
// (spec §4.5.2 step 3).
func (w *Worker) runTask(ctx context.Context, wt *worktreeHandle, issue state.Issue, task state.Task, opts Options) {
	if err := w.store.UpdateTaskStatus(task.ID, state.TaskInProgress); err != nil && w.logger != nil {
		w.logger.Warn("exec: worker: marking task in_progress failed", "task_id", task.ID, "error", err)
	}

	prompt := buildTaskPrompt(issue, task)
	validation := engine.ValidatePrompt(prompt, engine.RoleExecutor)
	if !validation.Valid {
		w.failTask(task, fmt.Errorf("prompt validation failed: %v", validation.Issues))
		return
	}

	req := executor.Request{
		Prompt:        prompt,
		WorkDir:       wt.path,
		RunID:         opts.RunID,
		AgentRole:     engine.RoleExecutor,
		PipelinePhase: "exec",
	}

	started := time.Now()
	result, err := executor.FallbackExecute(ctx, w.plugins, req, w.newExecutor)
	if err != nil || !result.Success {
		if err == nil {
			err = result.Error
		}
		w.failTask(task, err)
		return
	}

	var commitSHA string
	changed, chErr := wt.git.HasChanges(ctx)
	if chErr == nil && changed {
		if addErr := wt.git.AddAll(ctx); addErr == nil {
			if commitErr := wt.git.Commit(ctx, commitMessage(issue.ID, task)); commitErr == nil {
				if sha, shaErr := wt.git.HeadCommit(ctx); shaErr == nil {
					commitSHA = sha
				}
			} else if w.logger != nil {
				w.logger.Warn("exec: worker: committing task changes failed", "task_id", task.ID, "error", commitErr)
			}
		} else if w.logger != nil {
			w.logger.Warn("exec: worker: staging task changes failed", "task_id", task.ID, "error", addErr)
		}
	}

	exec := state.Execution{
		ID:           uuid.NewString(),
		TaskID:       task.ID,
		Branch:       worktreeBranch(issue.ID),
		StartedAt:    started,
		EndedAt:      time.Now(),
		Success:      true,
		InputTokens:  result.Tokens.Input,
		OutputTokens: result.Tokens.Output,
		CommitSHA:    commitSHA,
	}
	if err := w.store.RecordExecution(exec); err != nil && w.logger != nil {
		w.logger.Warn("exec: worker: recording execution failed", "task_id", task.ID, "error", err)
	}
	if err := w.store.UpdateTaskStatus(task.ID, state.TaskDone); err != nil && w.logger != nil {
		w.logger.Warn("exec: worker: marking task done failed", "task_id", task.ID, "error", err)
	}
}

func (w *Worker) failTask(task state.Task, cause error) {
	exec := state.Execution{
		ID:        uuid.NewString(),
		TaskID:    task.ID,
		StartedAt: time.Now(),
		EndedAt:   time.Now(),
		Success:   false,
		Error:     cause.Error(),
	}
	if err := w.store.RecordExecution(exec); err != nil && w.logger != nil {
		w.logger.Warn("exec: worker: recording failed execution failed", "task_id", task.ID, "error", err)
	}
	if err := w.store.UpdateTaskStatus(task.ID, state.TaskFailed); err != nil && w.logger != nil {
		w.logger.Warn("exec: worker: marking task failed failed", "task_id", task.ID, "error", err)
	}
}
