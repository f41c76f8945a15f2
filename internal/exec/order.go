package exec

import (
	"fmt"
	"sort"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/state"
)

// topoOrder orders tasks within a single issue group by DependsOn, honoring
// only dependencies on sibling tasks in the same group (cross-group
// dependencies are outside a worker's authority and are ignored, spec
// §4.5.2 step 2). Ties are broken by ParallelGroup ascending, then task ID.
// Returns an error if the group's dependency graph contains a cycle.
func topoOrder(tasks []state.Task) ([]state.Task, error) {
	inGroup := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		inGroup[t.ID] = true
	}

	remaining := make([]state.Task, len(tasks))
	copy(remaining, tasks)
	done := make(map[string]bool, len(tasks))

	ordered := make([]state.Task, 0, len(tasks))

	for len(remaining) > 0 {
		sort.SliceStable(remaining, func(i, j int) bool {
			if remaining[i].ParallelGroup != remaining[j].ParallelGroup {
				return remaining[i].ParallelGroup < remaining[j].ParallelGroup
			}
			return remaining[i].ID < remaining[j].ID
		})

		progressed := false
		var next []state.Task
		for _, t := range remaining {
			ready := true
			for _, dep := range t.DependsOn {
				if !inGroup[dep] {
					continue
				}
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, t)
				done[t.ID] = true
				progressed = true
			} else {
				next = append(next, t)
			}
		}

		if !progressed {
			return nil, fmt.Errorf("exec: dependency cycle detected among tasks: %s", taskIDs(next))
		}
		remaining = next
	}

	return ordered, nil
}

func taskIDs(tasks []state.Task) string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return fmt.Sprintf("%v", ids)
}
