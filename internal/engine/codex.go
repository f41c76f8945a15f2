package engine

import "time"

// CodexPlugin adapts the OpenAI Codex CLI.
type CodexPlugin struct{ basePlugin }

// NewCodexPlugin returns a Plugin for the "codex" vendor.
func NewCodexPlugin() *CodexPlugin {
	return &CodexPlugin{basePlugin{
		name: "codex",
		config: Config{
			Command:        "codex",
			DefaultArgs:    []string{"exec"},
			DefaultTimeout: 10 * time.Minute,
			MaxConcurrency: 2,
			RateLimit: RateLimitEnvelope{
				ReservoirRefill:  60 * time.Second,
				MinTaskSpacing:   100 * time.Millisecond,
				OverflowStrategy: "block",
			},
		},
	}}
}

// BuildArgs targets the "codex exec" one-shot subcommand with JSON output,
// sandbox/autonomy flags, and working-directory overrides for auxiliary
// directories.
func (p *CodexPlugin) BuildArgs(req Request) []string {
	args := append([]string{}, p.config.DefaultArgs...)
	args = append(args, "--json")

	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}

	switch req.AutonomyMode {
	case "auto":
		args = append(args, "--dangerously-bypass-approvals-and-sandbox")
	default:
		args = append(args, "--sandbox", "workspace-write")
	}

	if req.ResumeSession != "" {
		args = append(args, "--resume", req.ResumeSession)
	}

	for _, dir := range req.AuxDirs {
		args = append(args, "--with-dir", dir)
	}

	if req.StructuredOutput && req.JSONSchema != "" {
		args = append(args, "--output-schema", req.JSONSchema)
	}

	return append(args, req.ExtraArgs...)
}
