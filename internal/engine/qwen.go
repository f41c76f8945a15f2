package engine

import "time"

// QwenPlugin adapts the Qwen Code CLI, a Gemini-CLI-derived agent that
// shares most of its flag surface.
type QwenPlugin struct{ basePlugin }

// NewQwenPlugin returns a Plugin for the "qwen" vendor.
func NewQwenPlugin() *QwenPlugin {
	return &QwenPlugin{basePlugin{
		name: "qwen",
		config: Config{
			Command:        "qwen",
			DefaultTimeout: 10 * time.Minute,
			MaxConcurrency: 2,
		},
	}}
}

func (p *QwenPlugin) UsesStdinForPrompt() bool { return false }

func (p *QwenPlugin) BuildArgs(req Request) []string {
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
