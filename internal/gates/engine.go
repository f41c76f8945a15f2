package gates

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/engine"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/executor"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/state"
)

// Options configures a GateEngine run.
type Options struct {
	WorkDir         string
	ProbesDir       string
	RunID           string
	AllowedCommands []string
	UnsafeOverride  bool
	Gates           state.GatesConfig
	NeverTouch      []string
}

// GateEngine runs the five deterministic gates in their fixed order, then
// the AI truth-verifier, and assembles the combined Report (spec §4.5.4,
// §4.5.6).
type GateEngine struct {
	store       *state.RunStore
	plugins     []engine.Plugin
	newExecutor func(engine.Plugin) *executor.Executor
	logger      *log.Logger
}

func NewGateEngine(store *state.RunStore, plugins []engine.Plugin, newExecutor func(engine.Plugin) *executor.Executor, logger *log.Logger) *GateEngine {
	return &GateEngine{store: store, plugins: plugins, newExecutor: newExecutor, logger: logger}
}

// Run loads tasks and executions for the current run, executes every
// enabled gate in Order, threading the DoD gate's mutated tasks into the
// evidence gate, invokes the truth verifier, and returns the combined
// Report along with the final overall pass/fail.
func (e *GateEngine) Run(ctx context.Context, opts Options) (Report, bool, error) {
	tasks, err := e.store.LoadTasks()
	if err != nil {
		return Report{}, false, err
	}
	executions, err := e.store.LoadExecutions()
	if err != nil {
		return Report{}, false, err
	}

	var results []Result

	for _, name := range Order {
		switch name {
		case GatePlaceholder:
			if !opts.Gates.PlaceholderCheck {
				continue
			}
			results = append(results, RunPlaceholderGate(opts.WorkDir, tasks))

		case GateDiffHygiene:
			if !opts.Gates.DiffHygiene {
				continue
			}
			results = append(results, RunDiffHygieneGate(tasks, executions, opts.NeverTouch))

		case GateDoD:
			if !opts.Gates.DoDVerification {
				continue
			}
			var res Result
			res, tasks = RunDoDGate(ctx, opts.WorkDir, tasks, opts.AllowedCommands, opts.UnsafeOverride, e.store, e.logger)
			results = append(results, res)

		case GateEvidence:
			if !opts.Gates.EvidenceRequired {
				continue
			}
			results = append(results, RunEvidenceGate(tasks))

		case GateEnvConsistency:
			if !opts.Gates.EnvConsistency {
				continue
			}
			results = append(results, RunEnvConsistencyGate(opts.ProbesDir))
		}
	}

	verifier, verifierErr := RunVerifier(ctx, e.plugins, e.newExecutor, opts.WorkDir, opts.RunID, tasks, results)
	if verifierErr != nil && e.logger != nil {
		e.logger.Warn("gates: engine: truth verifier invocation failed", "error", verifierErr)
	}

	overall := Success(results, verifier, tasks)

	report := Report{
		Gates:       results,
		Verifier:    verifier,
		OverallPass: overall,
	}

	return report, overall, nil
}
