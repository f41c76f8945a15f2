package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RunStore, Layout) {
	t.Helper()
	layout := NewLayout(t.TempDir(), DefaultRootDir)
	runID := "run-20260305-103000-abcd"
	store := OpenRunStore(layout, runID)
	require.NoError(t, store.CreateRun(Run{
		ID:        runID,
		Phase:     PhaseScan,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}))
	return store, layout
}

func TestRunStore_CreateAndLoadRun(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	run, ok, err := store.LoadRun()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PhaseScan, run.Phase)
}

func TestRunStore_TransitionPhase_ValidMovesForward(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	require.NoError(t, store.TransitionPhase(PhaseValidate))

	run, _, err := store.LoadRun()
	require.NoError(t, err)
	assert.Equal(t, PhaseValidate, run.Phase)

	entries, _, err := store.Audit().Query(AuditQuery{Action: ActionRunPhaseChanged})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRunStore_TransitionPhase_RejectsBackwardMove(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	require.NoError(t, store.TransitionPhase(PhasePlan))
	err := store.TransitionPhase(PhaseScan)
	assert.Error(t, err)
}

func TestRunStore_SaveAndLoadTasks(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	tasks := []Task{
		{ID: "T-a1-01", Title: "first", Status: TaskPending, IssueID: "P-a1"},
		{ID: "T-a1-02", Title: "second", Status: TaskPending, IssueID: "P-a1"},
	}
	require.NoError(t, store.SaveTasks(tasks))

	loaded, err := store.LoadTasks()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "first", loaded[0].Title)
}

func TestRunStore_UpdateTaskStatus_RecordsAudit(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	require.NoError(t, store.SaveTasks([]Task{
		{ID: "T-a1-01", Title: "first", Status: TaskPending, IssueID: "P-a1"},
	}))

	require.NoError(t, store.UpdateTaskStatus("T-a1-01", TaskDone))

	tasks, err := store.LoadTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskDone, tasks[0].Status)

	entries, _, err := store.Audit().Query(AuditQuery{Action: ActionTaskStatusChanged})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "T-a1-01", entries[0].EntityID)
}

func TestRunStore_UpdateTaskStatus_UnknownTaskFails(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	err := store.UpdateTaskStatus("T-missing-01", TaskDone)
	assert.Error(t, err)
}

func TestRunStore_RecordExecution_SuccessAndFailureAudit(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	require.NoError(t, store.RecordExecution(Execution{ID: "exec-1", TaskID: "T-a1-01", Success: true}))
	require.NoError(t, store.RecordExecution(Execution{ID: "exec-2", TaskID: "T-a1-02", Success: false, Error: "boom"}))

	executions, err := store.LoadExecutions()
	require.NoError(t, err)
	require.Len(t, executions, 2)

	completed, _, err := store.Audit().Query(AuditQuery{Action: ActionExecutionCompleted})
	require.NoError(t, err)
	assert.Len(t, completed, 1)

	failed, _, err := store.Audit().Query(AuditQuery{Action: ActionExecutionFailed})
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}
