package engine

import "time"

// CursorPlugin adapts the Cursor agent CLI. Unlike Claude/Codex, Cursor
// takes its prompt as a positional argument rather than on stdin.
type CursorPlugin struct{ basePlugin }

// NewCursorPlugin returns a Plugin for the "cursor" vendor.
func NewCursorPlugin() *CursorPlugin {
	return &CursorPlugin{basePlugin{
		name: "cursor",
		config: Config{
			Command:        "cursor-agent",
			DefaultArgs:    []string{"agent"},
			DefaultTimeout: 10 * time.Minute,
			MaxConcurrency: 2,
		},
	}}
}

func (p *CursorPlugin) UsesStdinForPrompt() bool { return false }

// BuildArgs appends the prompt itself as the final positional argument
// since this plugin does not use stdin.
func (p *CursorPlugin) BuildArgs(req Request) []string {
	args := append([]string{}, p.config.DefaultArgs...)
	args = append(args, "-p")

	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	if req.OutputFormat != "" {
		args = append(args, "--output-format", req.OutputFormat)
	}
	if req.AutonomyMode == "auto" {
		args = append(args, "--force")
	}
	for _, dir := range req.AuxDirs {
		args = append(args, "--dir", dir)
	}

	args = append(args, req.ExtraArgs...)
	return append(args, req.Prompt)
}
