package engine

import "time"

// GeminiPlugin adapts the Google Gemini CLI. It takes its prompt as a
// positional flag argument rather than on stdin.
type GeminiPlugin struct{ basePlugin }

// NewGeminiPlugin returns a Plugin for the "gemini" vendor.
func NewGeminiPlugin() *GeminiPlugin {
	return &GeminiPlugin{basePlugin{
		name: "gemini",
		config: Config{
			Command:        "gemini",
			DefaultTimeout: 10 * time.Minute,
			MaxConcurrency: 2,
		},
	}}
}

func (p *GeminiPlugin) UsesStdinForPrompt() bool { return false }

func (p *GeminiPlugin) BuildArgs(req Request) []string {
	var args []string
	args = append(args, "--output-format", "json")

	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	if req.AutonomyMode == "auto" {
		args = append(args, "--yolo")
	}
	for _, dir := range req.AuxDirs {
		args = append(args, "--include-directories", dir)
	}

	args = append(args, req.ExtraArgs...)
	return append(args, "-p", req.Prompt)
}
