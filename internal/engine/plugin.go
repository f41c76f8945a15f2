// Package engine adapts the eight supported AI CLI vendors behind a single
// plugin contract: availability probing, argv construction, environment
// overrides, output parsing, and prompt delivery convention.
package engine

import (
	"time"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/stream"
)

// RateLimitEnvelope configures a plugin's default rate-limit behavior,
// consumed by the executor's rate-limit middleware (spec §4.3).
type RateLimitEnvelope struct {
	ReservoirRefill   time.Duration
	MinTaskSpacing    time.Duration
	OverflowStrategy  string // "leak" | "overflow" | "block"
}

// Config is a plugin's static configuration: command binary, default argv,
// default timeout, concurrency ceiling, and rate-limit envelope (spec §4.2).
type Config struct {
	Command        string
	DefaultArgs    []string
	DefaultTimeout time.Duration
	MaxConcurrency int
	RateLimit      RateLimitEnvelope
}

// AgentRole identifies which pipeline role is issuing a request (spec §4.3).
type AgentRole string

const (
	RoleLeadInvestigator AgentRole = "LI"
	RoleIssueValidator   AgentRole = "IV"
	RolePlanner          AgentRole = "PL"
	RoleExecutor         AgentRole = "EX"
	RoleTruthVerifier    AgentRole = "TV"
	RoleConsolidator     AgentRole = "CDM"
	RolePRWriter         AgentRole = "PR"
)

// Request is the vendor-neutral description of one engine invocation,
// handed to a plugin's BuildArgs (spec §4.2, §4.3 "Execution request").
type Request struct {
	Prompt            string
	WorkDir           string
	Model             string
	SessionID         string
	ContinueSession   bool
	ResumeSession     string
	AllowedTools      string
	DisallowedTools   string
	OutputFormat      string // "json" | "stream-json" | ""
	AuxDirs           []string
	StructuredOutput  bool
	JSONSchema        string
	RunID             string
	AgentRole         AgentRole
	PipelinePhase     string
	AutonomyMode      string // vendor-specific approval/autonomy knob, e.g. "auto" | "approve-all"
	ExtraArgs         []string
}

// Plugin is the contract every vendor adapter implements (spec §4.2).
type Plugin interface {
	// Name is the plugin's registry key, e.g. "claude".
	Name() string

	// Config returns the plugin's static configuration.
	Config() Config

	// IsAvailable reports whether the vendor's CLI binary is in PATH.
	IsAvailable() bool

	// BuildArgs returns the final argv for this invocation.
	BuildArgs(req Request) []string

	// ParseOutput normalizes raw child-process output into a stream.Result.
	ParseOutput(data []byte) stream.Result

	// Env returns key/value overrides to merge onto the base environment.
	Env(req Request) []string

	// UsesStdinForPrompt reports whether the prompt is written to stdin
	// (true, the default) or appended to argv (false).
	UsesStdinForPrompt() bool
}
