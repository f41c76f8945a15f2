package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_AppendAndQuery(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := NewAuditLog(filepath.Join(dir, "audit.jsonl"))

	require.NoError(t, log.Append(RunCreated(Run{ID: "run-1"})))
	require.NoError(t, log.Append(RunPhaseChanged("run-1", PhaseScan, PhaseValidate)))
	require.NoError(t, log.Append(TaskStatusChanged("T-1-01", TaskPending, TaskDone)))

	entries, warnings, err := log.Query(AuditQuery{})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, entries, 3)

	// newest first
	assert.Equal(t, ActionTaskStatusChanged, entries[0].Action)
	assert.Equal(t, ActionRunCreated, entries[2].Action)
}

func TestAuditLog_QueryFiltersByEntityType(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := NewAuditLog(filepath.Join(dir, "audit.jsonl"))

	require.NoError(t, log.Append(RunCreated(Run{ID: "run-1"})))
	require.NoError(t, log.Append(TaskStatusChanged("T-1-01", TaskPending, TaskDone)))

	entries, _, err := log.Query(AuditQuery{EntityType: "task"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "T-1-01", entries[0].EntityID)
}

func TestAuditLog_QueryOnMissingFileReturnsEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := NewAuditLog(filepath.Join(dir, "nonexistent.jsonl"))

	entries, warnings, err := log.Query(AuditQuery{})
	require.NoError(t, err)
	assert.Nil(t, entries)
	assert.Nil(t, warnings)
}

func TestAuditLog_SkipsCorruptedLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	log := NewAuditLog(path)

	require.NoError(t, log.Append(RunCreated(Run{ID: "run-1"})))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not valid json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, log.Append(RunCreated(Run{ID: "run-2"})))

	entries, warnings, err := log.Query(AuditQuery{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Len(t, warnings, 1)
}

func TestAuditLog_QueryRespectsLimitAndOffset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := NewAuditLog(filepath.Join(dir, "audit.jsonl"))

	for i := 0; i < 5; i++ {
		require.NoError(t, log.Append(RunCreated(Run{ID: "run-1"})))
	}

	entries, _, err := log.Query(AuditQuery{Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
