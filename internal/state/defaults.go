package state

import "time"

// NewDefaultConfig returns a Config populated with every default value this
// build assumes when a key is absent from config.yaml.
func NewDefaultConfig() *Config {
	return &Config{
		Version: ConfigVersion,
		Commands: Commands{
			Test:  "go test ./...",
			Lint:  "go vet ./...",
			Build: "go build ./...",
		},
		Boundaries: Boundaries{
			NeverTouch: []string{".git/**", "**/.milhouse/**"},
		},
		AllowedCommands: AllowedCommands{
			Probes:    []string{"go", "git", "grep", "find", "cat", "ls"},
			Execution: []string{"go", "git"},
		},
		Execution: ExecutionConfig{
			Mode:     ExecutionModeWorktree,
			Parallel: 1,
		},
		Gates: GatesConfig{
			EvidenceRequired: true,
			DiffHygiene:      true,
			PlaceholderCheck: true,
			EnvConsistency:   true,
			DoDVerification:  true,
		},
		Pipeline: PipelineConfig{
			DefaultPhases: []string{"scan", "validate", "plan", "consolidate", "exec", "verify"},
			PhaseTimeouts: map[string]time.Duration{
				"scan":        10 * time.Minute,
				"validate":    10 * time.Minute,
				"plan":        15 * time.Minute,
				"consolidate": 5 * time.Minute,
				"exec":        60 * time.Minute,
				"verify":      20 * time.Minute,
			},
			RetryPolicy: RetryPolicy{
				MaxAttempts:  3,
				InitialDelay: 500 * time.Millisecond,
				MaxDelay:     30 * time.Second,
				Multiplier:   2.0,
			},
		},
		Runs: RunsConfig{
			RunsDir:       "runs",
			MaxRunsToKeep: 20,
			CleanupPolicy: CleanupManual,
		},
	}
}

// ApplyDefaults deep-merges cfg onto a freshly built default configuration:
// any zero-valued field in cfg is replaced by its default, but any value the
// caller set is preserved. This is the same defaults-then-override pattern
// used for the legacy TOML config, generalized to the nested YAML shape.
func ApplyDefaults(cfg *Config) *Config {
	defaults := NewDefaultConfig()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Commands.Test == "" {
		cfg.Commands.Test = defaults.Commands.Test
	}
	if cfg.Commands.Lint == "" {
		cfg.Commands.Lint = defaults.Commands.Lint
	}
	if cfg.Commands.Build == "" {
		cfg.Commands.Build = defaults.Commands.Build
	}
	if cfg.Commands.Compile == "" {
		cfg.Commands.Compile = defaults.Commands.Compile
	}
	if len(cfg.Boundaries.NeverTouch) == 0 {
		cfg.Boundaries.NeverTouch = defaults.Boundaries.NeverTouch
	}
	if len(cfg.AllowedCommands.Probes) == 0 {
		cfg.AllowedCommands.Probes = defaults.AllowedCommands.Probes
	}
	if len(cfg.AllowedCommands.Execution) == 0 {
		cfg.AllowedCommands.Execution = defaults.AllowedCommands.Execution
	}
	if cfg.Execution.Mode == "" {
		cfg.Execution.Mode = defaults.Execution.Mode
	}
	if cfg.Execution.Parallel == 0 {
		cfg.Execution.Parallel = defaults.Execution.Parallel
	}
	if cfg.Gates == (GatesConfig{}) {
		cfg.Gates = defaults.Gates
	}
	if len(cfg.Pipeline.DefaultPhases) == 0 {
		cfg.Pipeline.DefaultPhases = defaults.Pipeline.DefaultPhases
	}
	if cfg.Pipeline.PhaseTimeouts == nil {
		cfg.Pipeline.PhaseTimeouts = defaults.Pipeline.PhaseTimeouts
	} else {
		for phase, timeout := range defaults.Pipeline.PhaseTimeouts {
			if _, ok := cfg.Pipeline.PhaseTimeouts[phase]; !ok {
				cfg.Pipeline.PhaseTimeouts[phase] = timeout
			}
		}
	}
	if cfg.Pipeline.RetryPolicy == (RetryPolicy{}) {
		cfg.Pipeline.RetryPolicy = defaults.Pipeline.RetryPolicy
	}
	if cfg.Runs.RunsDir == "" {
		cfg.Runs.RunsDir = defaults.Runs.RunsDir
	}
	if cfg.Runs.MaxRunsToKeep == 0 {
		cfg.Runs.MaxRunsToKeep = defaults.Runs.MaxRunsToKeep
	}
	if cfg.Runs.CleanupPolicy == "" {
		cfg.Runs.CleanupPolicy = defaults.Runs.CleanupPolicy
	}

	return cfg
}
