package engine

import "time"

// AiderPlugin adapts the Aider CLI, which favors plain-text/markdown chat
// output over a vendor JSON envelope.
type AiderPlugin struct{ basePlugin }

// NewAiderPlugin returns a Plugin for the "aider" vendor.
func NewAiderPlugin() *AiderPlugin {
	return &AiderPlugin{basePlugin{
		name: "aider",
		config: Config{
			Command:        "aider",
			DefaultTimeout: 10 * time.Minute,
			MaxConcurrency: 1,
		},
	}}
}

// BuildArgs answers aider's confirmations automatically and disables its
// pretty and streaming output; outside "auto" autonomy mode it also turns
// off aider's own auto-commits. The prompt is not sent on stdin: it is the
// final --message argument.
func (p *AiderPlugin) BuildArgs(req Request) []string {
	args := []string{"--yes-always", "--no-pretty", "--no-stream"}

	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	for _, dir := range req.AuxDirs {
		args = append(args, "--read", dir)
	}
	if req.AutonomyMode != "auto" {
		args = append(args, "--no-auto-commits")
	}

	args = append(args, req.ExtraArgs...)
	return append(args, "--message", req.Prompt)
}

func (p *AiderPlugin) UsesStdinForPrompt() bool { return false }
