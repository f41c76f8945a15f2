// Package executor wraps engine.Plugin invocations in an ordered middleware
// stack: logging, timeout, retry, rate-limit, concurrency, and an optional
// circuit breaker, before spawning and reading the vendor CLI subprocess.
package executor

import (
	"time"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/engine"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/stream"
)

// Request is the vendor-neutral execution request validated before dispatch
// (spec §4.3).
type Request struct {
	Prompt           string
	WorkDir          string
	Timeout          time.Duration
	MaxRetries       int
	StreamOutput     bool
	OutputFormat     string
	ModelOverride    string
	SessionID        string
	ContinueSession  bool
	ResumeSession    string
	AllowedTools     string
	DisallowedTools  string
	RunID            string
	AgentRole        engine.AgentRole
	PipelinePhase    string
	AutonomyMode     string
	AuxDirs          []string
	StructuredOutput bool
	JSONSchema       string
	ExtraArgs        []string
}

// Context is built once per invocation and threaded through the middleware
// stack (spec §4.3 "Execution context").
type Context struct {
	RunID         string
	AgentRole     engine.AgentRole
	PipelinePhase string
	Evidence      map[string]any
	StartedAt     time.Time
	Attempt       int
	Metadata      map[string]any
}

// NewContext builds a Context for req, generating a RunID when absent.
func NewContext(req Request, runIDGen func() string) *Context {
	runID := req.RunID
	if runID == "" && runIDGen != nil {
		runID = runIDGen()
	}
	return &Context{
		RunID:         runID,
		AgentRole:     req.AgentRole,
		PipelinePhase: req.PipelinePhase,
		Evidence:      make(map[string]any),
		StartedAt:     time.Now(),
		Attempt:       0,
		Metadata:      make(map[string]any),
	}
}

// Tokens mirrors stream.Tokens for the observed output contract.
type Tokens = stream.Tokens

// Result is the observed output contract of a successful (or failed)
// execution (spec §4.3 "Observed output contract").
type Result struct {
	Success       bool
	FinalResponse string
	Steps         []stream.Step
	Duration      time.Duration
	ExitCode      int
	Tokens        Tokens
	Error         error
	Metadata      map[string]any
}

// StepCallback receives each parsed step synchronously as it is produced,
// used by the streaming variant of Execute.
type StepCallback func(stream.Step)

// Next is the continuation a middleware calls exactly once.
type Next func(req Request, ctx *Context) (Result, error)

// Middleware wraps a Next, optionally short-circuiting or modifying the
// request/context/result around the call (spec §4.3 "Middleware contract").
type Middleware func(req Request, next Next, ctx *Context) (Result, error)
