package engine

import "time"

// OpenCodePlugin adapts the OpenCode CLI.
type OpenCodePlugin struct{ basePlugin }

// NewOpenCodePlugin returns a Plugin for the "opencode" vendor.
func NewOpenCodePlugin() *OpenCodePlugin {
	return &OpenCodePlugin{basePlugin{
		name: "opencode",
		config: Config{
			Command:        "opencode",
			DefaultArgs:    []string{"run"},
			DefaultTimeout: 10 * time.Minute,
			MaxConcurrency: 2,
		},
	}}
}

// BuildArgs targets the "opencode run" subcommand; the prompt is piped on
// stdin and a model is selected via the provider/model pair syntax.
func (p *OpenCodePlugin) BuildArgs(req Request) []string {
	args := append([]string{}, p.config.DefaultArgs...)
	args = append(args, "--print-logs", "--format", "json")

	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	for _, dir := range req.AuxDirs {
		args = append(args, "--agent-dir", dir)
	}
	if req.AutonomyMode == "auto" {
		args = append(args, "--share", "none")
	}

	return append(args, req.ExtraArgs...)
}
