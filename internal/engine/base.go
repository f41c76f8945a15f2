package engine

import (
	"os"
	"os/exec"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/stream"
)

// apiKeyEnvVars lists host environment variables forwarded to a child
// process when set, so a vendor CLI relying on an API key picks up the
// same credentials the orchestrator's own environment has (spec §4.2,
// "may forward selected API-key variables if set in the host
// environment").
var apiKeyEnvVars = []string{
	"ANTHROPIC_API_KEY",
	"OPENAI_API_KEY",
	"GEMINI_API_KEY",
	"GOOGLE_API_KEY",
	"CURSOR_API_KEY",
	"OPENROUTER_API_KEY",
}

// basePlugin implements the parts of Plugin shared by every vendor adapter:
// PATH-based availability, CI/NO_COLOR + forwarded API keys, stdin-delivered
// prompts, and stream.Parse's auto-detecting output normalization. Concrete
// plugins embed basePlugin and override BuildArgs (and, rarely, Env or
// UsesStdinForPrompt).
type basePlugin struct {
	name   string
	config Config
}

func (b *basePlugin) Name() string  { return b.name }
func (b *basePlugin) Config() Config { return b.config }

func (b *basePlugin) IsAvailable() bool {
	_, err := exec.LookPath(b.config.Command)
	return err == nil
}

func (b *basePlugin) ParseOutput(data []byte) stream.Result {
	return stream.Parse(data)
}

func (b *basePlugin) Env(req Request) []string {
	env := []string{"CI=true", "NO_COLOR=1"}
	for _, key := range apiKeyEnvVars {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			env = append(env, key+"="+v)
		}
	}
	return env
}

func (b *basePlugin) UsesStdinForPrompt() bool { return true }
