package engine

import "time"

// ClaudePlugin adapts the Claude Code CLI.
type ClaudePlugin struct{ basePlugin }

// NewClaudePlugin returns a Plugin for the "claude" vendor.
func NewClaudePlugin() *ClaudePlugin {
	return &ClaudePlugin{basePlugin{
		name: "claude",
		config: Config{
			Command:        "claude",
			DefaultArgs:    []string{"--print"},
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

// BuildArgs incorporates model override, prompt-delivery (stdin, so the
// prompt itself never appears here), session continue/resume, autonomy
// mode, auxiliary directories, and structured-output flags.
func (p *ClaudePlugin) BuildArgs(req Request) []string {
	args := append([]string{}, p.config.DefaultArgs...)

	outputFormat := req.OutputFormat
	if outputFormat == "" {
		outputFormat = "stream-json"
	}
	args = append(args, "--output-format", outputFormat)

	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	if req.AllowedTools != "" {
		args = append(args, "--allowedTools", req.AllowedTools)
	}
	if req.DisallowedTools != "" {
		args = append(args, "--disallowedTools", req.DisallowedTools)
	}

	switch {
	case req.ResumeSession != "":
		args = append(args, "--resume", req.ResumeSession)
	case req.ContinueSession:
		args = append(args, "--continue")
	}

	for _, dir := range req.AuxDirs {
		args = append(args, "--add-dir", dir)
	}

	if req.StructuredOutput && req.JSONSchema != "" {
		args = append(args, "--json-schema", req.JSONSchema)
	}

	if req.AutonomyMode == "auto" {
		args = append(args, "--dangerously-skip-permissions")
	} else {
		args = append(args, "--permission-mode", "accept")
	}

	return append(args, req.ExtraArgs...)
}
