package engine

import "time"

// DroidPlugin adapts the Factory Droid CLI.
type DroidPlugin struct{ basePlugin }

// NewDroidPlugin returns a Plugin for the "droid" vendor.
func NewDroidPlugin() *DroidPlugin {
	return &DroidPlugin{basePlugin{
		name: "droid",
		config: Config{
			Command:        "droid",
			DefaultArgs:    []string{"exec"},
			DefaultTimeout: 10 * time.Minute,
			MaxConcurrency: 2,
		},
	}}
}

// BuildArgs sets the autonomy level via --auto, a JSON-streaming output
// format, and a model override; the prompt arrives on stdin.
func (p *DroidPlugin) BuildArgs(req Request) []string {
	args := append([]string{}, p.config.DefaultArgs...)
	args = append(args, "--output-format", "json")

	autoLevel := "low"
	if req.AutonomyMode == "auto" {
		autoLevel = "high"
	}
	args = append(args, "--auto", autoLevel)

	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	for _, dir := range req.AuxDirs {
		args = append(args, "--add-dir", dir)
	}

	return append(args, req.ExtraArgs...)
}
