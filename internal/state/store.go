package state

import (
	"fmt"
	"os"
	"time"
)

// RunStore manages persistence of a single run's entities: the run
// metadata, issues, tasks, and executions, plus its audit log. Every entity
// write goes through WriteYAMLAtomic (WriteJSONAtomic for the run metadata)
// under an advisory lock so concurrent issue
// workers sharing a run directory serialize on a given file without
// corrupting it (spec §5, "Shared resources").
type RunStore struct {
	layout Layout
	runID  string
	audit  *AuditLog
}

// OpenRunStore returns a RunStore for runID under layout. It does not touch
// the filesystem; callers create the run directory via CreateRun or load an
// existing one via LoadRun.
func OpenRunStore(layout Layout, runID string) *RunStore {
	return &RunStore{
		layout: layout,
		runID:  runID,
		audit:  NewAuditLog(layout.AuditLogPath(runID)),
	}
}

// Audit returns the run's audit log.
func (s *RunStore) Audit() *AuditLog { return s.audit }

// CreateRun initializes a new run's directory structure and persists its
// initial metadata, recording a run:created audit entry.
func (s *RunStore) CreateRun(run Run) error {
	dirs := []string{
		s.layout.RunStateDir(s.runID),
		s.layout.RunPlansDir(s.runID),
		s.layout.RunReportsDir(s.runID),
		s.layout.RunWorktreesDir(s.runID),
		s.layout.RunSnapshotsDir(s.runID),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("state: creating run directory %q: %w", d, err)
		}
	}

	if err := s.SaveRun(run); err != nil {
		return err
	}
	return s.audit.Append(RunCreated(run))
}

// SaveRun persists run metadata atomically.
func (s *RunStore) SaveRun(run Run) error {
	return WriteJSONAtomic(s.layout.RunMetaPath(s.runID), run, AtomicWriteOpts{Lock: true})
}

// LoadRun reads run metadata. The second return value is false if the run
// has no persisted metadata yet.
func (s *RunStore) LoadRun() (Run, bool, error) {
	var run Run
	ok, err := ReadJSON(s.layout.RunMetaPath(s.runID), &run)
	return run, ok, err
}

// TransitionPhase validates and applies a run phase transition, persisting
// the new state and recording a run:phase:changed audit entry. It returns
// an error without writing anything if the transition is invalid per
// CanTransition.
func (s *RunStore) TransitionPhase(to Phase) error {
	run, ok, err := s.LoadRun()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("state: run %q has no persisted metadata", s.runID)
	}
	if !CanTransition(run.Phase, to) {
		return fmt.Errorf("state: run %q: invalid phase transition %s -> %s", s.runID, run.Phase, to)
	}

	before := run.Phase
	run.Phase = to
	run.UpdatedAt = time.Now().UTC()
	if err := s.SaveRun(run); err != nil {
		return err
	}
	return s.audit.Append(RunPhaseChanged(s.runID, before, to))
}

// issueDocument and taskDocument wrap their entity slices so each YAML file
// has a stable top-level shape instead of a bare list.
type issueDocument struct {
	Issues []Issue `yaml:"issues"`
}

type taskDocument struct {
	Tasks []Task `yaml:"tasks"`
}

type executionDocument struct {
	Executions []Execution `yaml:"executions"`
}

// SaveIssues persists the full issue list atomically.
func (s *RunStore) SaveIssues(issues []Issue) error {
	return WriteYAMLAtomic(s.layout.RunIssuesPath(s.runID), issueDocument{Issues: issues}, AtomicWriteOpts{Lock: true})
}

// LoadIssues reads the issue list. A missing file yields an empty slice.
func (s *RunStore) LoadIssues() ([]Issue, error) {
	var doc issueDocument
	if _, err := ReadYAML(s.layout.RunIssuesPath(s.runID), &doc); err != nil {
		return nil, err
	}
	return doc.Issues, nil
}

// SaveTasks persists the full task list atomically.
func (s *RunStore) SaveTasks(tasks []Task) error {
	return WriteYAMLAtomic(s.layout.RunTasksPath(s.runID), taskDocument{Tasks: tasks}, AtomicWriteOpts{Lock: true})
}

// LoadTasks reads the task list. A missing file yields an empty slice.
func (s *RunStore) LoadTasks() ([]Task, error) {
	var doc taskDocument
	if _, err := ReadYAML(s.layout.RunTasksPath(s.runID), &doc); err != nil {
		return nil, err
	}
	return doc.Tasks, nil
}

// SaveExecutions persists the full execution list atomically.
func (s *RunStore) SaveExecutions(executions []Execution) error {
	return WriteYAMLAtomic(s.layout.RunExecutionsPath(s.runID), executionDocument{Executions: executions}, AtomicWriteOpts{Lock: true})
}

// LoadExecutions reads the execution list. A missing file yields an empty
// slice.
func (s *RunStore) LoadExecutions() ([]Execution, error) {
	var doc executionDocument
	if _, err := ReadYAML(s.layout.RunExecutionsPath(s.runID), &doc); err != nil {
		return nil, err
	}
	return doc.Executions, nil
}

// UpdateTaskStatus loads the task list, mutates the status of taskID, saves
// the list back, and records a task:status:changed audit entry. It is the
// read-modify-write unit executors call after each attempt; callers running
// concurrently on disjoint tasks still serialize on this file's lock.
func (s *RunStore) UpdateTaskStatus(taskID string, to TaskStatus) error {
	path := s.layout.RunTasksPath(s.runID)
	lock := NewFileLock(path)
	if err := lock.Acquire(lockRetryCeiling); err != nil {
		return err
	}
	defer lock.Release() //nolint:errcheck

	tasks, err := s.LoadTasks()
	if err != nil {
		return err
	}

	var before TaskStatus
	found := false
	for i := range tasks {
		if tasks[i].ID == taskID {
			before = tasks[i].Status
			tasks[i].Status = to
			tasks[i].UpdatedAt = time.Now().UTC()
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("state: task %q not found in run %q", taskID, s.runID)
	}

	// The lock is already held, so write without taking it again.
	if err := WriteYAMLAtomic(path, taskDocument{Tasks: tasks}, AtomicWriteOpts{}); err != nil {
		return err
	}
	return s.audit.Append(TaskStatusChanged(taskID, before, to))
}

// UpdateIssueStatus is the issue-scoped analogue of UpdateTaskStatus.
func (s *RunStore) UpdateIssueStatus(issueID string, to IssueStatus) error {
	issues, err := s.LoadIssues()
	if err != nil {
		return err
	}

	var before IssueStatus
	found := false
	for i := range issues {
		if issues[i].ID == issueID {
			before = issues[i].Status
			issues[i].Status = to
			issues[i].UpdatedAt = time.Now().UTC()
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("state: issue %q not found in run %q", issueID, s.runID)
	}

	if err := s.SaveIssues(issues); err != nil {
		return err
	}
	return s.audit.Append(IssueValidated(issueID, before, to))
}

// RecordExecution appends a completed or failed execution record and emits
// the matching audit entry.
func (s *RunStore) RecordExecution(exec Execution) error {
	executions, err := s.LoadExecutions()
	if err != nil {
		return err
	}
	executions = append(executions, exec)
	if err := s.SaveExecutions(executions); err != nil {
		return err
	}
	if exec.Success {
		return s.audit.Append(ExecutionCompleted(exec))
	}
	return s.audit.Append(ExecutionFailed(exec))
}
