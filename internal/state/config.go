package state

import (
	"fmt"
	"time"
)

// ConfigVersion is the current SemVer MAJOR.MINOR version this build writes
// and understands natively. Older versions are migrated in-place via the
// chain registered in migrate.go; newer or otherwise unrecognized versions
// fail with ErrUnknownConfigVersion.
const ConfigVersion = "1.0"

// Config is the top-level structure of <root>/config.yaml (spec §6).
// Every key besides Version is optional; zero values are filled in by
// ApplyDefaults.
type Config struct {
	Version         string                   `yaml:"version"`
	Project         ProjectInfo              `yaml:"project"`
	Commands        Commands                 `yaml:"commands"`
	Rules           []string                 `yaml:"rules,omitempty"`
	Boundaries      Boundaries               `yaml:"boundaries"`
	AllowedCommands AllowedCommands          `yaml:"allowed_commands"`
	Probes          map[string]ProbeConfig   `yaml:"probes,omitempty"`
	Execution       ExecutionConfig          `yaml:"execution"`
	Gates           GatesConfig              `yaml:"gates"`
	Pipeline        PipelineConfig           `yaml:"pipeline"`
	Runs            RunsConfig               `yaml:"runs"`
	ProbePresets    ProbePresets             `yaml:"probePresets,omitempty"`
	GateProfiles    GateProfiles             `yaml:"gateProfiles,omitempty"`
}

// ProjectInfo is the `project` section.
type ProjectInfo struct {
	Name        string `yaml:"name,omitempty"`
	Language    string `yaml:"language,omitempty"`
	Framework   string `yaml:"framework,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Commands is the `commands` section: shell commands the orchestrator may
// invoke on the project (not to be confused with AllowedCommands, which
// governs what probes/executions themselves are permitted to run).
type Commands struct {
	Test    string `yaml:"test,omitempty"`
	Lint    string `yaml:"lint,omitempty"`
	Build   string `yaml:"build,omitempty"`
	Compile string `yaml:"compile,omitempty"`
}

// Boundaries is the `boundaries` section.
type Boundaries struct {
	NeverTouch []string `yaml:"never_touch,omitempty"`
}

// AllowedCommands is the `allowed_commands` section: an allow-list of
// command names/prefixes the DoD gate and probe runner may execute.
type AllowedCommands struct {
	Probes    []string `yaml:"probes,omitempty"`
	Execution []string `yaml:"execution,omitempty"`
}

// ProbeConfig configures a single named probe under `probes.<name>`.
type ProbeConfig struct {
	Enabled   bool `yaml:"enabled"`
	ReadOnly  bool `yaml:"read_only"`
	TimeoutMS int  `yaml:"timeout_ms"`
}

// ExecutionMode enumerates the `execution.mode` values.
type ExecutionMode string

const (
	ExecutionModeInPlace  ExecutionMode = "in-place"
	ExecutionModeBranch   ExecutionMode = "branch"
	ExecutionModeWorktree ExecutionMode = "worktree"
	ExecutionModePR       ExecutionMode = "pr"
)

// ExecutionConfig is the `execution` section.
type ExecutionConfig struct {
	Mode       ExecutionMode `yaml:"mode"`
	Parallel   int           `yaml:"parallel"`
	AutoCommit bool          `yaml:"auto_commit"`
	CreatePR   bool          `yaml:"create_pr"`
	DraftPR    bool          `yaml:"draft_pr"`
}

// GatesConfig is the `gates` section: enable/disable flags for the five
// deterministic verification gates (spec §3, "Gate").
type GatesConfig struct {
	EvidenceRequired bool `yaml:"evidence_required"`
	DiffHygiene      bool `yaml:"diff_hygiene"`
	PlaceholderCheck bool `yaml:"placeholder_check"`
	EnvConsistency   bool `yaml:"env_consistency"`
	DoDVerification  bool `yaml:"dod_verification"`
}

// RetryPolicy configures the executor's retry middleware.
type RetryPolicy struct {
	MaxAttempts  int           `yaml:"maxAttempts"`
	InitialDelay time.Duration `yaml:"initialDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay"`
	Multiplier   float64       `yaml:"multiplier"`
}

// PipelineConfig is the `pipeline` section.
type PipelineConfig struct {
	DefaultPhases []string                 `yaml:"defaultPhases,omitempty"`
	PhaseTimeouts map[string]time.Duration `yaml:"phaseTimeouts,omitempty"`
	RetryPolicy   RetryPolicy              `yaml:"retryPolicy"`
}

// RunsConfig is the `runs` section, governing retention of run directories.
type RunsConfig struct {
	RunsDir        string        `yaml:"runsDir,omitempty"`
	MaxRunsToKeep  int           `yaml:"maxRunsToKeep"`
	CleanupPolicy  CleanupPolicy `yaml:"cleanupPolicy"`
}

// ProbePresets is the `probePresets` section: named bundles of probe
// configuration that can be switched between via ActivePreset.
type ProbePresets struct {
	ActivePreset string                            `yaml:"activePreset,omitempty"`
	Presets      map[string]map[string]ProbeConfig `yaml:"presets,omitempty"`
}

// GateProfiles is the `gateProfiles` section: named bundles of gate flags.
type GateProfiles struct {
	ActiveProfile string                 `yaml:"activeProfile,omitempty"`
	Profiles      map[string]GatesConfig `yaml:"profiles,omitempty"`
}

// ErrUnknownConfigVersion is returned by Migrate when a config's version is
// newer than ConfigVersion or not found in the registered migration chain.
type ErrUnknownConfigVersion struct {
	Version string
}

func (e *ErrUnknownConfigVersion) Error() string {
	return fmt.Sprintf("state: config: unrecognized version %q", e.Version)
}

// ActiveProbes resolves the effective per-probe configuration, applying the
// active probe preset (if any) as a base that explicit `probes` entries
// override.
func (c *Config) ActiveProbes() map[string]ProbeConfig {
	merged := map[string]ProbeConfig{}
	if c.ProbePresets.ActivePreset != "" {
		if preset, ok := c.ProbePresets.Presets[c.ProbePresets.ActivePreset]; ok {
			for name, pc := range preset {
				merged[name] = pc
			}
		}
	}
	for name, pc := range c.Probes {
		merged[name] = pc
	}
	return merged
}

// ActiveGates resolves the effective gate flags, applying the active gate
// profile (if any) as a base that the top-level `gates` section overrides
// field-by-field is not attempted (gates is all-or-nothing per profile);
// an explicitly non-zero top-level Gates always wins in full.
func (c *Config) ActiveGates() GatesConfig {
	if c.GateProfiles.ActiveProfile != "" {
		if profile, ok := c.GateProfiles.Profiles[c.GateProfiles.ActiveProfile]; ok {
			if c.Gates == (GatesConfig{}) {
				return profile
			}
		}
	}
	return c.Gates
}
