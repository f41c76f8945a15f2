package exec

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/state"
)

// issueGroup is one issue's tasks, ready for a worker to claim.
type issueGroup struct {
	issue state.Issue
	tasks []state.Task
}

// minParallelGroup returns the smallest ParallelGroup value across a group's
// tasks, used as the secondary sort key (spec §4.5.1).
func (g issueGroup) minParallelGroup() int {
	min := 0
	first := true
	for _, t := range g.tasks {
		if first || t.ParallelGroup < min {
			min = t.ParallelGroup
			first = false
		}
	}
	return min
}

// groupTasks partitions tasks by IssueID, dropping (with a warning) any task
// whose issue is not present in issues (spec §4.5.1). Groups are returned
// sorted by issue severity (most critical first), tied by the group's
// smallest parallel_group, tied by issue ID.
func groupTasks(issues []state.Issue, tasks []state.Task, logger *log.Logger) []issueGroup {
	byID := make(map[string]state.Issue, len(issues))
	for _, is := range issues {
		byID[is.ID] = is
	}

	groupsByIssue := make(map[string]*issueGroup)
	var order []string
	for _, t := range tasks {
		issue, ok := byID[t.IssueID]
		if !ok {
			if logger != nil {
				logger.Warn("dropping task with missing issue", "task_id", t.ID, "issue_id", t.IssueID)
			}
			continue
		}
		g, exists := groupsByIssue[t.IssueID]
		if !exists {
			g = &issueGroup{issue: issue}
			groupsByIssue[t.IssueID] = g
			order = append(order, t.IssueID)
		}
		g.tasks = append(g.tasks, t)
	}

	groups := make([]issueGroup, 0, len(order))
	for _, id := range order {
		groups = append(groups, *groupsByIssue[id])
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if ra, rb := a.issue.Severity.Rank(), b.issue.Severity.Rank(); ra != rb {
			return ra < rb
		}
		if pa, pb := a.minParallelGroup(), b.minParallelGroup(); pa != pb {
			return pa < pb
		}
		return a.issue.ID < b.issue.ID
	})
	return groups
}

// Scheduler fans issue groups out to a bounded pool of Worker invocations
// (spec §4.5.1, §4.5.3). Distinct issue workers never touch the same files
// by planner contract; the scheduler itself enforces only the concurrency
// cap, not file disjointness.
type Scheduler struct {
	store   *state.RunStore
	worker  *Worker
	logger  *log.Logger
	options Options
}

// NewScheduler builds a Scheduler that persists through store and runs each
// issue group through worker.
func NewScheduler(store *state.RunStore, worker *Worker, logger *log.Logger, opts Options) *Scheduler {
	return &Scheduler{store: store, worker: worker, logger: logger, options: opts}
}

// Run loads issues and tasks from the store, groups them, and executes each
// group through a bounded worker pool. It returns every group's result in
// scheduling order (not completion order), even when some groups fail:
// a single issue's worker error never aborts the others. Run respects ctx
// cancellation by refusing to start new groups and propagating cancellation
// into in-flight workers; it still waits for in-flight workers to finish
// their best-effort cleanup before returning.
func (s *Scheduler) Run(ctx context.Context) ([]GroupResult, error) {
	issues, err := s.store.LoadIssues()
	if err != nil {
		return nil, fmt.Errorf("exec: scheduler: loading issues: %w", err)
	}
	tasks, err := s.store.LoadTasks()
	if err != nil {
		return nil, fmt.Errorf("exec: scheduler: loading tasks: %w", err)
	}
	tasks = s.options.scopeTasks(tasks)

	groups := groupTasks(issues, tasks, s.logger)
	if len(groups) == 0 {
		return nil, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.options.concurrency())

	results := make([]GroupResult, len(groups))
	var mu sync.Mutex

	for i, grp := range groups {
		i, grp := i, grp
		g.Go(func() error {
			res := s.worker.Run(gctx, grp.issue, grp.tasks, s.options)

			mu.Lock()
			results[i] = res
			mu.Unlock()

			// Per-issue failures are captured in the result, never
			// propagated to the errgroup: one issue's worker must not
			// cancel siblings still in flight.
			return nil
		})
	}

	// errgroup.Wait only returns an error if a Go func itself returned one,
	// which never happens here by construction.
	_ = g.Wait()

	return results, nil
}
