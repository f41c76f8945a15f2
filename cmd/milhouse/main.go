// Command milhouse drives the exec and verify phases of the AI pipeline
// orchestrator core: it loads an existing run's state, runs the
// issue-parallel task executor or the verification gate engine against it,
// and reports the outcome through its exit code (spec §6).
//
// Phase flags outside exec/verify (scan, validate, plan, consolidate,
// export) identify an external front-end's responsibility; this binary
// recognizes them so existing invocations do not fail flag parsing, but it
// does not implement their prompt-driven business logic itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/buildinfo"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/engine"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/exec"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/executor"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/gates"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/git"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/logging"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/state"
)

// Exit codes (spec §6 "exit codes").
const (
	exitSuccess        = 0
	exitGenericFailure = 1
	exitNoActiveRun    = 2
	exitEngineUnavail  = 3
	exitGateFailure    = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("milhouse", flag.ContinueOnError)

	var (
		doScan        = fs.Bool("scan", false, "scan phase (external front-end responsibility)")
		doValidate    = fs.Bool("validate", false, "validate phase (external front-end responsibility)")
		doPlan        = fs.Bool("plan", false, "plan phase (external front-end responsibility)")
		doConsolidate = fs.Bool("consolidate", false, "consolidate phase (external front-end responsibility)")
		doExec        = fs.Bool("exec", false, "run the exec phase against an existing run")
		doVerify      = fs.Bool("verify", false, "run the verify phase against an existing run")
		doExport      = fs.String("export", "", "export phase (external front-end responsibility)")
		scope         = fs.String("scope", "", "scope restricting which issues/tasks are acted on")
		issues        = fs.String("issues", "", "comma-separated issue IDs to restrict exec to")
		taskID        = fs.String("task-id", "", "single task ID to restrict exec to")
		runID         = fs.String("run", "", "run ID to operate against; defaults to the run whose directory was most recently modified")
		parallel      = fs.Int("parallel", 0, "maximum concurrent issue workers (0 uses config default)")
		model         = fs.String("model", "", "preferred engine name, tried before the configured fallback order")
		unsafeDoD     = fs.Bool("unsafe-dod-checks", false, "skip the DoD gate's check_command allow-list")
		tmux          = fs.Bool("tmux", false, "attach/observe mode (external front-end responsibility)")
		autoInstall   = fs.Bool("auto-install", false, "auto-install missing engine CLIs (external front-end responsibility)")
		verbose       = fs.Bool("verbose", false, "enable debug logging")
		showVersion   = fs.Bool("version", false, "print version information and exit")
	)

	if err := fs.Parse(args); err != nil {
		return exitGenericFailure
	}

	logging.Setup(*verbose, false, false)
	logger := logging.New("main")

	if *showVersion {
		fmt.Println(buildinfo.GetInfo().String())
		return exitSuccess
	}

	_ = tmux
	_ = autoInstall

	if *doScan || *doValidate || *doPlan || *doConsolidate || *doExport != "" {
		fmt.Fprintln(os.Stderr, "milhouse: scan/validate/plan/consolidate/export are implemented by an external front-end; this binary only runs --exec and --verify")
		return exitGenericFailure
	}

	if !*doExec && !*doVerify {
		fmt.Fprintln(os.Stderr, "milhouse: one of --exec or --verify is required")
		return exitGenericFailure
	}

	workDir, err := os.Getwd()
	if err != nil {
		logger.Error("resolving working directory", "error", err)
		return exitGenericFailure
	}

	cfg, err := state.LoadConfig(workDir)
	if err != nil {
		logger.Error("loading config", "error", err)
		return exitGenericFailure
	}

	layout := state.NewLayout(workDir, ".milhouse")

	resolvedRunID := *runID
	if resolvedRunID == "" {
		resolvedRunID, err = latestRunID(layout)
		if err != nil {
			logger.Error("resolving active run", "error", err)
			return exitNoActiveRun
		}
	}
	if resolvedRunID == "" {
		fmt.Fprintln(os.Stderr, "milhouse: no active run found; pass --run or create one first")
		return exitNoActiveRun
	}

	store := state.OpenRunStore(layout, resolvedRunID)
	if _, ok, err := store.LoadRun(); err != nil || !ok {
		if err != nil {
			logger.Error("loading run", "run_id", resolvedRunID, "error", err)
		}
		fmt.Fprintf(os.Stderr, "milhouse: run %q not found\n", resolvedRunID)
		return exitNoActiveRun
	}

	registry := engine.NewDefaultRegistry()
	plugins, err := resolvePlugins(registry, *model)
	if err != nil {
		logger.Error("resolving engine plugins", "error", err)
		return exitEngineUnavail
	}

	newExecutor := func(p engine.Plugin) *executor.Executor {
		return executor.New(p, executor.WithLogger(logger))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = scope // reserved for the external front-end's scan/validate/plan phases

	if *doExec {
		code := runExecPhase(ctx, store, layout, plugins, newExecutor, logger, execFlags{
			parallel: *parallel,
			issues:   *issues,
			taskID:   *taskID,
		})
		if code != exitSuccess {
			return code
		}
	}

	if *doVerify {
		return runVerifyPhase(ctx, store, plugins, newExecutor, logger, workDir, resolvedRunID, cfg, *unsafeDoD, layout.LegacyProbesDir())
	}

	return exitSuccess
}

type execFlags struct {
	parallel int
	issues   string
	taskID   string
}

func runExecPhase(
	ctx context.Context,
	store *state.RunStore,
	layout state.Layout,
	plugins []engine.Plugin,
	newExecutor func(engine.Plugin) *executor.Executor,
	logger *log.Logger,
	flags execFlags,
) int {
	repo, err := git.NewGitClient(layout.RootDir)
	if err != nil {
		logger.Error("opening git repository", "error", err)
		return exitGenericFailure
	}

	worker := exec.NewWorker(repo, store, layout, plugins, newExecutor, logger)
	scheduler := exec.NewScheduler(store, worker, logger, exec.Options{
		MaxConcurrent: flags.parallel,
		IssueIDs:      splitCSV(flags.issues),
		TaskID:        flags.taskID,
	})

	results, err := scheduler.Run(ctx)
	if err != nil {
		logger.Error("exec phase", "error", err)
		return exitGenericFailure
	}

	failed := 0
	for _, r := range results {
		if r.Status != exec.BranchComplete {
			failed++
		}
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "milhouse: exec phase finished with %d incomplete issue(s) of %d\n", failed, len(results))
		return exitGenericFailure
	}

	return exitSuccess
}

func runVerifyPhase(
	ctx context.Context,
	store *state.RunStore,
	plugins []engine.Plugin,
	newExecutor func(engine.Plugin) *executor.Executor,
	logger *log.Logger,
	workDir, runID string,
	cfg *state.Config,
	unsafeDoD bool,
	probesDir string,
) int {
	engineGate := gates.NewGateEngine(store, plugins, newExecutor, logger)
	report, overall, err := engineGate.Run(ctx, gates.Options{
		WorkDir:         workDir,
		ProbesDir:       probesDir,
		RunID:           runID,
		AllowedCommands: cfg.AllowedCommands.Execution,
		UnsafeOverride:  unsafeDoD,
		Gates:           cfg.ActiveGates(),
		NeverTouch:      cfg.Boundaries.NeverTouch,
	})
	if err != nil {
		logger.Error("verify phase", "error", err)
		return exitGenericFailure
	}

	for _, g := range report.Gates {
		status := "pass"
		if !g.Passed {
			status = "fail"
		}
		fmt.Printf("%-16s %s\n", g.Gate, status)
	}
	if report.Verifier != nil {
		fmt.Printf("verifier: overall_pass=%v summary=%q\n", report.Verifier.OverallPass, report.Verifier.Summary)
	}

	if !overall {
		return exitGateFailure
	}
	return exitSuccess
}

// resolvePlugins returns the registered plugins in their fallback order,
// putting preferred first (when non-empty and registered) ahead of the
// rest, and filtering to plugins whose underlying CLI is currently
// available on PATH.
func resolvePlugins(registry *engine.Registry, preferred string) ([]engine.Plugin, error) {
	names := registry.List()
	if len(names) == 0 {
		return nil, fmt.Errorf("main: no engine plugins registered")
	}

	ordered := make([]string, 0, len(names))
	if preferred != "" {
		for _, n := range names {
			if n == preferred {
				ordered = append(ordered, n)
				break
			}
		}
	}
	for _, n := range names {
		if n == preferred {
			continue
		}
		ordered = append(ordered, n)
	}

	var plugins []engine.Plugin
	for _, n := range ordered {
		p, err := registry.Get(n)
		if err != nil {
			continue
		}
		if p.IsAvailable() {
			plugins = append(plugins, p)
		}
	}
	if len(plugins) == 0 {
		return nil, fmt.Errorf("main: no engine CLI is available on PATH")
	}
	return plugins, nil
}

// latestRunID returns the run under layout whose directory has the newest
// modification time, or an empty string if none exist.
func latestRunID(layout state.Layout) (string, error) {
	entries, err := os.ReadDir(layout.RunsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	var latest string
	var latestMod int64
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mt := info.ModTime().Unix(); mt >= latestMod {
			latestMod = mt
			latest = e.Name()
		}
	}
	return latest, nil
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
