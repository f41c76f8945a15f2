// Package state implements the per-run state store and audit log: the
// directory layout, entity types, and atomic persistence primitives that
// back runs, issues, tasks, and executions.
package state

import (
	"strings"
	"time"
)

// Phase identifies where a run sits in the scan -> validate -> plan ->
// consolidate -> exec -> verify pipeline.
type Phase string

const (
	PhaseScan         Phase = "scan"
	PhaseValidate     Phase = "validate"
	PhasePlan         Phase = "plan"
	PhaseConsolidate  Phase = "consolidate"
	PhaseExec         Phase = "exec"
	PhaseVerify       Phase = "verify"
	PhaseCompleted    Phase = "completed"
	PhaseFailed       Phase = "failed"
)

// phaseOrder gives the monotonic pipeline order used to validate transitions.
// Completed/Failed are terminal and reachable from any phase.
var phaseOrder = map[Phase]int{
	PhaseScan:        0,
	PhaseValidate:    1,
	PhasePlan:        2,
	PhaseConsolidate: 3,
	PhaseExec:        4,
	PhaseVerify:      5,
}

// CanTransition reports whether moving from 'from' to 'to' respects the
// pipeline's monotonic ordering invariant (spec §3, Run invariant).
// Completed and Failed are reachable from any phase; otherwise the target
// phase's order must be >= the source phase's order.
func CanTransition(from, to Phase) bool {
	if to == PhaseCompleted || to == PhaseFailed {
		return true
	}
	fromOrd, fromOK := phaseOrder[from]
	toOrd, toOK := phaseOrder[to]
	if !fromOK || !toOK {
		return false
	}
	return toOrd >= fromOrd
}

// CleanupPolicy controls when completed runs are evicted from the runs
// directory.
type CleanupPolicy string

const (
	CleanupManual    CleanupPolicy = "manual"
	CleanupOnSuccess CleanupPolicy = "on-success"
	CleanupAlways    CleanupPolicy = "always"
)

// RunStats aggregates counts tracked across a run's lifetime.
type RunStats struct {
	IssuesFound     int `json:"issues_found" yaml:"issues_found"`
	IssuesValidated int `json:"issues_validated" yaml:"issues_validated"`
	TasksTotal      int `json:"tasks_total" yaml:"tasks_total"`
	TasksCompleted  int `json:"tasks_completed" yaml:"tasks_completed"`
	TasksFailed     int `json:"tasks_failed" yaml:"tasks_failed"`
}

// Run is the top-level unit of work: one end-to-end pipeline invocation.
type Run struct {
	ID        string    `json:"id" yaml:"id"`
	Scope     string    `json:"scope,omitempty" yaml:"scope,omitempty"`
	Name      string    `json:"name,omitempty" yaml:"name,omitempty"`
	Phase     Phase     `json:"phase" yaml:"phase"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
	Stats     RunStats  `json:"stats" yaml:"stats"`
}

// Severity buckets an issue's criticality; defaults to Medium when the AI
// supplies an invalid or unrecognised value (spec §3, Issue).
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// severityRank orders severities from most to least critical for group
// scheduling (spec §4.5.1).
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// Rank returns the scheduling priority of s (lower sorts first). Unknown
// values rank as Medium, matching NormalizeSeverity's default-on-invalid
// behavior.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return severityRank[SeverityMedium]
}

// NormalizeSeverity coerces an arbitrary string into a known Severity,
// defaulting to Medium for anything the scanner produced that isn't one of
// the four known buckets (spec §3, Issue; spec §8 boundary behavior).
// Matching ignores case.
func NormalizeSeverity(s string) Severity {
	switch sev := Severity(strings.ToUpper(s)); sev {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return sev
	default:
		return SeverityMedium
	}
}

// IssueStatus is the validation outcome of a candidate issue.
type IssueStatus string

const (
	IssueUnvalidated IssueStatus = "UNVALIDATED"
	IssueConfirmed   IssueStatus = "CONFIRMED"
	IssueFalse       IssueStatus = "FALSE"
	IssuePartial     IssueStatus = "PARTIAL"
	IssueMisdiagnosed IssueStatus = "MISDIAGNOSED"
)

// Issue is a candidate problem produced by the scanner and refined by the
// validator.
type Issue struct {
	ID              string      `json:"id" yaml:"id"`
	Symptom         string      `json:"symptom" yaml:"symptom"`
	Hypothesis      string      `json:"hypothesis,omitempty" yaml:"hypothesis,omitempty"`
	Severity        Severity    `json:"severity" yaml:"severity"`
	Frequency       string      `json:"frequency,omitempty" yaml:"frequency,omitempty"`
	BlastRadius     string      `json:"blast_radius,omitempty" yaml:"blast_radius,omitempty"`
	Strategy        string      `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Status          IssueStatus `json:"status" yaml:"status"`
	Evidence        []string    `json:"evidence,omitempty" yaml:"evidence,omitempty"`
	RelatedTaskIDs  []string    `json:"related_task_ids,omitempty" yaml:"related_task_ids,omitempty"`
	CreatedAt       time.Time   `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" yaml:"updated_at"`
}

// AcceptanceCriterion is one verifiable condition a task must satisfy.
//
// EvidenceQuery is an optional jq expression evaluated against
// CheckCommand's stdout, parsed as JSON. When set, a non-error, truthy
// query result is required in addition to a zero exit code before the
// criterion is marked Verified; this lets a criterion assert on a specific
// field of structured check output (e.g. a coverage percentage) rather than
// exit status alone.
type AcceptanceCriterion struct {
	Description   string `json:"description" yaml:"description"`
	CheckCommand  string `json:"check_command,omitempty" yaml:"check_command,omitempty"`
	EvidenceQuery string `json:"evidence_query,omitempty" yaml:"evidence_query,omitempty"`
	Verified      bool   `json:"verified" yaml:"verified"`
}

// TaskStatus is the lifecycle status of a unit of code change.
type TaskStatus string

const (
	TaskPending     TaskStatus = "pending"
	TaskInProgress  TaskStatus = "in_progress"
	TaskDone        TaskStatus = "done"
	TaskFailed      TaskStatus = "failed"
	TaskMergeError  TaskStatus = "merge_error"
)

// Task is a unit of code change produced by the planner and consolidated
// into the global task graph.
type Task struct {
	ID             string                `json:"id" yaml:"id"`
	Title          string                `json:"title" yaml:"title"`
	Description    string                `json:"description,omitempty" yaml:"description,omitempty"`
	Files          []string              `json:"files,omitempty" yaml:"files,omitempty"`
	DependsOn      []string              `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Checks         []string              `json:"checks,omitempty" yaml:"checks,omitempty"`
	Acceptance     []AcceptanceCriterion `json:"acceptance,omitempty" yaml:"acceptance,omitempty"`
	ParallelGroup  int                   `json:"parallel_group" yaml:"parallel_group"`
	IssueID        string                `json:"issue_id" yaml:"issue_id"`
	Status         TaskStatus            `json:"status" yaml:"status"`
	CreatedAt      time.Time             `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at" yaml:"updated_at"`
}

// Execution is the record of one engine invocation for one task.
type Execution struct {
	ID           string    `json:"id" yaml:"id"`
	TaskID       string    `json:"task_id" yaml:"task_id"`
	Branch       string    `json:"branch,omitempty" yaml:"branch,omitempty"`
	StartedAt    time.Time `json:"started_at" yaml:"started_at"`
	EndedAt      time.Time `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	Success      bool      `json:"success" yaml:"success"`
	InputTokens  int       `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int       `json:"output_tokens" yaml:"output_tokens"`
	Error        string    `json:"error,omitempty" yaml:"error,omitempty"`
	CommitSHA    string    `json:"commit_sha,omitempty" yaml:"commit_sha,omitempty"`
}
