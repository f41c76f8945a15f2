package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the name of the versioned YAML config file (spec §6).
const ConfigFileName = "config.yaml"

// legacyConfigFileName is the pre-migration TOML config format, still
// readable via LoadLegacyTOML so existing projects migrate forward instead
// of losing their settings outright.
const legacyConfigFileName = "raven.toml"

// migrationStep migrates a config one version forward. From/To name the
// versions this step bridges; Migrate performs the transformation in place.
type migrationStep struct {
	From    string
	To      string
	Migrate func(*Config) error
}

// migrationChain is the registered, ordered set of version migrations this
// build knows how to apply. Each entry's From must match the prior entry's
// To, terminating at ConfigVersion.
var migrationChain = []migrationStep{
	{
		From: "legacy-toml",
		To:   "1.0",
		Migrate: func(cfg *Config) error {
			cfg.Version = "1.0"
			return nil
		},
	},
}

// FindConfigFile walks up from startDir looking for config.yaml, falling
// back to the legacy raven.toml if no YAML config is found. It stops at the
// filesystem root. Returns an empty path if neither file exists anywhere in
// the ancestor chain.
func FindConfigFile(startDir string) (path string, legacy bool, err error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("state: resolving path: %w", err)
	}
	for {
		yamlCandidate := filepath.Join(dir, ConfigFileName)
		if _, statErr := os.Stat(yamlCandidate); statErr == nil {
			return yamlCandidate, false, nil
		}
		tomlCandidate := filepath.Join(dir, legacyConfigFileName)
		if _, statErr := os.Stat(tomlCandidate); statErr == nil {
			return tomlCandidate, true, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// legacyTOML mirrors the shape of the legacy raven.toml well enough to
// recover the handful of fields that carry meaning in the new schema; any
// field the legacy format lacks is left to ApplyDefaults.
type legacyTOML struct {
	Project struct {
		Name     string `toml:"name"`
		Language string `toml:"language"`
	} `toml:"project"`
}

// LoadLegacyTOML reads a raven.toml-shaped file and produces a Config
// carrying version "legacy-toml", ready to be passed through Migrate. This
// is the oldest step in the migration chain and the only one that reads a
// foreign file format rather than an older YAML shape.
func LoadLegacyTOML(path string) (*Config, error) {
	var legacy legacyTOML
	if _, err := toml.DecodeFile(path, &legacy); err != nil {
		return nil, fmt.Errorf("state: reading legacy config %q: %w", path, err)
	}
	cfg := &Config{
		Version: "legacy-toml",
		Project: ProjectInfo{
			Name:     legacy.Project.Name,
			Language: legacy.Project.Language,
		},
	}
	return cfg, nil
}

// Migrate walks cfg forward through the registered migration chain until it
// reaches ConfigVersion. A config already at ConfigVersion is returned
// unmodified. A version with no matching step fails with
// ErrUnknownConfigVersion.
func Migrate(cfg *Config) (*Config, error) {
	for cfg.Version != ConfigVersion {
		step := findStep(cfg.Version)
		if step == nil {
			return nil, &ErrUnknownConfigVersion{Version: cfg.Version}
		}
		if err := step.Migrate(cfg); err != nil {
			return nil, fmt.Errorf("state: migrating config from %q to %q: %w", step.From, step.To, err)
		}
		if cfg.Version != step.To {
			return nil, fmt.Errorf("state: migration step %q->%q did not set version to %q", step.From, step.To, step.To)
		}
	}
	return cfg, nil
}

func findStep(from string) *migrationStep {
	for i := range migrationChain {
		if migrationChain[i].From == from {
			return &migrationChain[i]
		}
	}
	return nil
}

// LoadConfig finds and loads the effective config for the project rooted at
// startDir, migrating a legacy TOML file forward and applying defaults to
// whatever results. A project with no config file at all gets
// NewDefaultConfig() verbatim.
func LoadConfig(startDir string) (*Config, error) {
	path, legacy, err := FindConfigFile(startDir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return NewDefaultConfig(), nil
	}

	var cfg *Config
	if legacy {
		cfg, err = LoadLegacyTOML(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = &Config{}
		if _, err := ReadYAML(path, cfg); err != nil {
			return nil, err
		}
		if cfg.Version == "" {
			return nil, &ErrUnknownConfigVersion{Version: ""}
		}
	}

	cfg, err = Migrate(cfg)
	if err != nil {
		return nil, err
	}
	return ApplyDefaults(cfg), nil
}
