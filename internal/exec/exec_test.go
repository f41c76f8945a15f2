package exec

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/engine"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/executor"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/git"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/state"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/stream"
)

// ---------------------------------------------------------------------------
// test fixtures
// ---------------------------------------------------------------------------

func newTestRepo(t *testing.T) *git.GitClient {
	t.Helper()
	dir := t.TempDir()

	mustRun(t, dir, "git", "init", "-b", "main")
	mustRun(t, dir, "git", "config", "user.email", "test@example.com")
	mustRun(t, dir, "git", "config", "user.name", "Test")

	writeFile(t, dir, "README.md", "# Test\n")
	mustRun(t, dir, "git", "add", ".")
	mustRun(t, dir, "git", "commit", "-m", "Initial commit")

	c, err := git.NewGitClient(dir)
	require.NoError(t, err)
	return c
}

func mustRun(t *testing.T, dir, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "command failed: %s %v\n%s", name, args, out)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// fakePlugin is a minimal engine.Plugin backed by "sh", mirroring the
// executor package's own test fixture so the worker can be exercised
// without any real vendor CLI on PATH.
type fakePlugin struct {
	name   string
	script string
}

func (p *fakePlugin) Name() string              { return p.name }
func (p *fakePlugin) Config() engine.Config      { return engine.Config{Command: "sh"} }
func (p *fakePlugin) IsAvailable() bool          { return true }
func (p *fakePlugin) BuildArgs(engine.Request) []string {
	return []string{"-c", p.script}
}
func (p *fakePlugin) ParseOutput(data []byte) stream.Result { return stream.Parse(data) }
func (p *fakePlugin) Env(engine.Request) []string           { return nil }
func (p *fakePlugin) UsesStdinForPrompt() bool               { return true }

// writingPlugin writes "done" into fileName (baked into the script) so
// tests can assert a real working-tree change occurred.
func writingPlugin(fileName string) *fakePlugin {
	return &fakePlugin{
		name:   "fake",
		script: "cat >/dev/null; echo done > " + fileName,
	}
}

func failingPlugin() *fakePlugin {
	return &fakePlugin{name: "fake-fail", script: "cat >/dev/null; exit 1"}
}

func newTestExecutorFactory() func(engine.Plugin) *executor.Executor {
	return func(p engine.Plugin) *executor.Executor {
		return executor.New(p, executor.WithMaxRetries(0))
	}
}

// ---------------------------------------------------------------------------
// groupTasks / topoOrder
// ---------------------------------------------------------------------------

func TestGroupTasks_SortsBySeverityThenParallelGroupThenID(t *testing.T) {
	issues := []state.Issue{
		{ID: "P-2", Severity: state.SeverityLow},
		{ID: "P-1", Severity: state.SeverityCritical},
		{ID: "P-3", Severity: state.SeverityCritical},
	}
	tasks := []state.Task{
		{ID: "T-1", IssueID: "P-2", ParallelGroup: 0},
		{ID: "T-2", IssueID: "P-1", ParallelGroup: 1},
		{ID: "T-3", IssueID: "P-3", ParallelGroup: 0},
	}

	groups := groupTasks(issues, tasks, nil)
	require.Len(t, groups, 3)
	assert.Equal(t, "P-3", groups[0].issue.ID)
	assert.Equal(t, "P-1", groups[1].issue.ID)
	assert.Equal(t, "P-2", groups[2].issue.ID)
}

func TestGroupTasks_DropsTaskWithMissingIssue(t *testing.T) {
	issues := []state.Issue{{ID: "P-1", Severity: state.SeverityMedium}}
	tasks := []state.Task{
		{ID: "T-1", IssueID: "P-1"},
		{ID: "T-2", IssueID: "P-missing"},
	}

	groups := groupTasks(issues, tasks, nil)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].tasks, 1)
	assert.Equal(t, "T-1", groups[0].tasks[0].ID)
}

func TestTopoOrder_RespectsDependencies(t *testing.T) {
	tasks := []state.Task{
		{ID: "T-2", DependsOn: []string{"T-1"}},
		{ID: "T-1"},
		{ID: "T-3", DependsOn: []string{"T-2"}},
	}
	ordered, err := topoOrder(tasks)
	require.NoError(t, err)
	require.Len(t, ordered, 3)
	assert.Equal(t, []string{"T-1", "T-2", "T-3"}, []string{ordered[0].ID, ordered[1].ID, ordered[2].ID})
}

func TestTopoOrder_IgnoresCrossGroupDependency(t *testing.T) {
	tasks := []state.Task{
		{ID: "T-1", DependsOn: []string{"T-outside-group"}},
	}
	ordered, err := topoOrder(tasks)
	require.NoError(t, err)
	require.Len(t, ordered, 1)
}

func TestTopoOrder_CycleIsAnError(t *testing.T) {
	tasks := []state.Task{
		{ID: "T-1", DependsOn: []string{"T-2"}},
		{ID: "T-2", DependsOn: []string{"T-1"}},
	}
	_, err := topoOrder(tasks)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Worker: end-to-end via a worker branch that merges cleanly
// ---------------------------------------------------------------------------

func TestWorker_Run_CompletesAndMergesCleanly(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	runID := "run-test-clean"
	layout := state.NewLayout(t.TempDir(), ".milhouse")
	store := state.OpenRunStore(layout, runID)
	require.NoError(t, store.CreateRun(state.Run{ID: runID, Phase: state.PhaseExec}))

	issue := state.Issue{ID: "P-1", Severity: state.SeverityHigh, Symptom: "bug"}
	task := state.Task{ID: "T-1", IssueID: "P-1", Title: "fix it", Status: state.TaskPending}
	require.NoError(t, store.SaveIssues([]state.Issue{issue}))
	require.NoError(t, store.SaveTasks([]state.Task{task}))

	plugin := writingPlugin("change.txt")
	worker := NewWorker(repo, store, layout, []engine.Plugin{plugin}, newTestExecutorFactory(), nil)

	result := worker.Run(ctx, issue, []state.Task{task}, Options{RunID: runID, BaseBranch: "main"})

	assert.Equal(t, BranchComplete, result.Status)
	assert.True(t, result.Merged)

	tasks, err := store.LoadTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, state.TaskDone, tasks[0].Status)

	exists, err := repo.BranchExists(ctx, "milhouse/P-1")
	require.NoError(t, err)
	assert.False(t, exists, "merged worker branch should be deleted")

	_, err = os.Stat(filepath.Join(repo.WorkDir, "change.txt"))
	assert.NoError(t, err, "merged change should be present in the base branch checkout")
}

func TestWorker_Run_FailedTaskYieldsFailedBranchStatus(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	runID := "run-test-fail"
	layout := state.NewLayout(t.TempDir(), ".milhouse")
	store := state.OpenRunStore(layout, runID)
	require.NoError(t, store.CreateRun(state.Run{ID: runID, Phase: state.PhaseExec}))

	issue := state.Issue{ID: "P-2", Severity: state.SeverityMedium}
	task := state.Task{ID: "T-1", IssueID: "P-2", Title: "will fail", Status: state.TaskPending}
	require.NoError(t, store.SaveIssues([]state.Issue{issue}))
	require.NoError(t, store.SaveTasks([]state.Task{task}))

	worker := NewWorker(repo, store, layout, []engine.Plugin{failingPlugin()}, newTestExecutorFactory(), nil)
	result := worker.Run(ctx, issue, []state.Task{task}, Options{RunID: runID, BaseBranch: "main"})

	assert.Equal(t, BranchFailed, result.Status)

	tasks, err := store.LoadTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, state.TaskFailed, tasks[0].Status)
}

func TestWorker_Run_EmptyTaskGroupNeverTouchesVCS(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	layout := state.NewLayout(t.TempDir(), ".milhouse")
	store := state.OpenRunStore(layout, "run-empty")
	require.NoError(t, store.CreateRun(state.Run{ID: "run-empty", Phase: state.PhaseExec}))

	worker := NewWorker(repo, store, layout, nil, newTestExecutorFactory(), nil)
	result := worker.Run(ctx, state.Issue{ID: "P-empty"}, nil, Options{RunID: "run-empty"})

	assert.Equal(t, BranchComplete, result.Status)
	assert.False(t, result.Merged)

	branches, err := repo.BranchExists(ctx, "milhouse/P-empty")
	require.NoError(t, err)
	assert.False(t, branches)
}

// ---------------------------------------------------------------------------
// Merge conflict: branch preserved, tasks marked merge_error
// ---------------------------------------------------------------------------

func TestWorker_Run_ConflictPreservesBranchAndMarksMergeError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Base branch already has a commit touching the same file the worker's
	// plugin will also write, forcing the eventual merge into conflict.
	writeFile(t, repo.WorkDir, "shared.txt", "base version\n")
	require.NoError(t, repo.AddAll(ctx))
	require.NoError(t, repo.Commit(ctx, "base edit"))

	runID := "run-test-conflict"
	layout := state.NewLayout(t.TempDir(), ".milhouse")
	store := state.OpenRunStore(layout, runID)
	require.NoError(t, store.CreateRun(state.Run{ID: runID, Phase: state.PhaseExec}))

	issue := state.Issue{ID: "P-3", Severity: state.SeverityHigh}
	task := state.Task{ID: "T-1", IssueID: "P-3", Title: "conflicting change", Status: state.TaskPending}
	require.NoError(t, store.SaveIssues([]state.Issue{issue}))
	require.NoError(t, store.SaveTasks([]state.Task{task}))

	// Worker branch is cut from the commit BEFORE "base edit", so its
	// change to shared.txt conflicts with the base's own edit.
	require.NoError(t, repo.CreateBranch(ctx, "milhouse/P-3", "HEAD~1"))
	require.NoError(t, repo.Checkout(ctx, "main"))

	plugin := &fakePlugin{name: "fake", script: "cat >/dev/null; printf 'worker version\\n' > shared.txt"}
	worker := NewWorker(repo, store, layout, []engine.Plugin{plugin}, newTestExecutorFactory(), nil)

	result := worker.Run(ctx, issue, []state.Task{task}, Options{RunID: runID, BaseBranch: "main"})

	assert.Equal(t, BranchPartial, result.Status)
	assert.False(t, result.Merged)

	exists, err := repo.BranchExists(ctx, "milhouse/P-3")
	require.NoError(t, err)
	assert.True(t, exists, "conflicted branch must be preserved, never deleted")

	tasks, err := store.LoadTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, state.TaskMergeError, tasks[0].Status)

	dirty, err := repo.HasUncommittedChanges(ctx)
	require.NoError(t, err)
	assert.False(t, dirty, "main checkout must be restored to clean after the aborted merge")
}
