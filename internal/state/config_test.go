package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_FillsZeroValuesOnly(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Version: "1.0",
		Commands: Commands{
			Test: "make test",
		},
	}
	cfg = ApplyDefaults(cfg)

	assert.Equal(t, "make test", cfg.Commands.Test, "explicit value must survive defaulting")
	assert.Equal(t, "go vet ./...", cfg.Commands.Lint, "unset value must be defaulted")
	assert.NotEmpty(t, cfg.Boundaries.NeverTouch)
	assert.Equal(t, ExecutionModeWorktree, cfg.Execution.Mode)
	assert.True(t, cfg.Gates.DoDVerification)
}

func TestActiveProbes_PresetThenOverride(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		ProbePresets: ProbePresets{
			ActivePreset: "thorough",
			Presets: map[string]map[string]ProbeConfig{
				"thorough": {
					"lint": {Enabled: true, TimeoutMS: 5000},
					"test": {Enabled: true, TimeoutMS: 60000},
				},
			},
		},
		Probes: map[string]ProbeConfig{
			"lint": {Enabled: false, TimeoutMS: 1000},
		},
	}

	active := cfg.ActiveProbes()
	assert.False(t, active["lint"].Enabled, "explicit probes entry overrides the preset")
	assert.True(t, active["test"].Enabled, "preset entry applies when not overridden")
}

func TestActiveGates_ProfileAppliesWhenTopLevelUnset(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		GateProfiles: GateProfiles{
			ActiveProfile: "strict",
			Profiles: map[string]GatesConfig{
				"strict": {EvidenceRequired: true, DiffHygiene: true, DoDVerification: true},
			},
		},
	}

	assert.Equal(t, cfg.GateProfiles.Profiles["strict"], cfg.ActiveGates())
}

func TestActiveGates_TopLevelWinsWhenSet(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Gates: GatesConfig{EvidenceRequired: true},
		GateProfiles: GateProfiles{
			ActiveProfile: "strict",
			Profiles: map[string]GatesConfig{
				"strict": {EvidenceRequired: true, DiffHygiene: true, DoDVerification: true},
			},
		},
	}

	assert.Equal(t, cfg.Gates, cfg.ActiveGates())
}
