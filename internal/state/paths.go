package state

import "path/filepath"

// DefaultRootDir is the name of the milhouse state directory created under
// the repo root (spec §3).
const DefaultRootDir = ".milhouse"

// Layout resolves the directory layout for a repo root + configured root
// dir, following spec §4.4. All paths are relative to the repo root; callers
// must never persist an absolute path derived from Layout into a state file.
type Layout struct {
	RepoRoot string
	RootDir  string // absolute path to <repo>/<root-dir>
}

// NewLayout returns a Layout rooted at repoRoot/rootDirName. rootDirName
// defaults to DefaultRootDir when empty.
func NewLayout(repoRoot, rootDirName string) Layout {
	if rootDirName == "" {
		rootDirName = DefaultRootDir
	}
	return Layout{
		RepoRoot: repoRoot,
		RootDir:  filepath.Join(repoRoot, rootDirName),
	}
}

// ConfigPath returns <root>/config.yaml.
func (l Layout) ConfigPath() string { return filepath.Join(l.RootDir, "config.yaml") }

// RunsDir returns <root>/runs.
func (l Layout) RunsDir() string { return filepath.Join(l.RootDir, "runs") }

// RunDir returns <root>/runs/<run-id>.
func (l Layout) RunDir(runID string) string { return filepath.Join(l.RunsDir(), runID) }

// RunStateDir returns <root>/runs/<run-id>/state.
func (l Layout) RunStateDir(runID string) string { return filepath.Join(l.RunDir(runID), "state") }

// RunPlansDir returns <root>/runs/<run-id>/plans.
func (l Layout) RunPlansDir(runID string) string { return filepath.Join(l.RunDir(runID), "plans") }

// RunReportsDir returns <root>/runs/<run-id>/reports.
func (l Layout) RunReportsDir(runID string) string {
	return filepath.Join(l.RunDir(runID), "reports")
}

// RunWorktreesDir returns <root>/runs/<run-id>/worktrees.
func (l Layout) RunWorktreesDir(runID string) string {
	return filepath.Join(l.RunDir(runID), "worktrees")
}

// RunWorktreePath returns <root>/runs/<run-id>/worktrees/<id>.
func (l Layout) RunWorktreePath(runID, id string) string {
	return filepath.Join(l.RunWorktreesDir(runID), id)
}

// AuditLogPath returns <root>/runs/<run-id>/audit.jsonl.
func (l Layout) AuditLogPath(runID string) string {
	return filepath.Join(l.RunDir(runID), "audit.jsonl")
}

// RunMetaPath returns <root>/runs/<run-id>/meta.json.
func (l Layout) RunMetaPath(runID string) string {
	return filepath.Join(l.RunDir(runID), "meta.json")
}

// RunTasksPath returns <root>/runs/<run-id>/state/tasks.yaml.
func (l Layout) RunTasksPath(runID string) string {
	return filepath.Join(l.RunStateDir(runID), "tasks.yaml")
}

// RunIssuesPath returns <root>/runs/<run-id>/state/issues.yaml.
func (l Layout) RunIssuesPath(runID string) string {
	return filepath.Join(l.RunStateDir(runID), "issues.yaml")
}

// RunExecutionsPath returns <root>/runs/<run-id>/state/executions.yaml.
func (l Layout) RunExecutionsPath(runID string) string {
	return filepath.Join(l.RunStateDir(runID), "executions.yaml")
}

// RunSnapshotsDir returns <root>/runs/<run-id>/state/snapshots.
func (l Layout) RunSnapshotsDir(runID string) string {
	return filepath.Join(l.RunStateDir(runID), "snapshots")
}

// --- legacy (pre-run-scoped) fallback locations, read-only migration paths ---

// LegacyProbesDir returns <root>/probes.
func (l Layout) LegacyProbesDir() string { return filepath.Join(l.RootDir, "probes") }

// LegacyPlansDir returns <root>/plans.
func (l Layout) LegacyPlansDir() string { return filepath.Join(l.RootDir, "plans") }

// LegacyWorkDir returns <root>/work.
func (l Layout) LegacyWorkDir() string { return filepath.Join(l.RootDir, "work") }

// LegacyRulesDir returns <root>/rules.
func (l Layout) LegacyRulesDir() string { return filepath.Join(l.RootDir, "rules") }
