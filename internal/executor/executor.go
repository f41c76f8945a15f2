package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sony/gobreaker"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/engine"
	"github.com/AbdelazizMoustafa10m/milhouse/internal/stream"
)

// Executor dispatches Requests to a single engine.Plugin through the
// middleware stack built by New.
type Executor struct {
	plugin   engine.Plugin
	stack    []Middleware
	runIDGen func() string
}

// Option configures an Executor.
type Option func(*executorConfig)

type executorConfig struct {
	logger         *log.Logger
	timeout        time.Duration
	timeoutCeiling time.Duration
	progressive    bool
	maxRetries     int
	limiter        *RateLimiter
	sem            *Semaphore
	global         *Semaphore
	breaker        *gobreaker.CircuitBreaker
	runIDGen       func() string
}

// WithLogger sets the logging middleware's logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *executorConfig) { c.logger = logger }
}

// WithTimeout sets the default/ceiling timeout and whether it grows
// progressively with ctx.Attempt. In New's stack the timeout middleware
// wraps the retry middleware, so it sees attempt 0 and the progressive
// growth does not take effect there.
func WithTimeout(def, ceiling time.Duration, progressive bool) Option {
	return func(c *executorConfig) {
		c.timeout = def
		c.timeoutCeiling = ceiling
		c.progressive = progressive
	}
}

// WithMaxRetries overrides the retry middleware's default ceiling.
func WithMaxRetries(n int) Option {
	return func(c *executorConfig) { c.maxRetries = n }
}

// WithRateLimiter installs a shared rate limiter.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(c *executorConfig) { c.limiter = rl }
}

// WithConcurrency installs per-executor and optional global semaphores.
func WithConcurrency(sem, global *Semaphore) Option {
	return func(c *executorConfig) { c.sem, c.global = sem, global }
}

// WithCircuitBreaker installs an optional circuit breaker.
func WithCircuitBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *executorConfig) { c.breaker = cb }
}

// WithRunIDGenerator overrides how a missing RunID is generated.
func WithRunIDGenerator(gen func() string) Option {
	return func(c *executorConfig) { c.runIDGen = gen }
}

// New builds an Executor for plugin with the default middleware order:
// logging, timeout, retry, rate-limit, concurrency, circuit-breaker (spec
// §4.3 "The default stack, in execution order").
func New(plugin engine.Plugin, opts ...Option) *Executor {
	cfg := executorConfig{
		timeout:        DefaultTimeout,
		timeoutCeiling: DefaultTimeout * 4,
		maxRetries:     DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	stack := []Middleware{
		LoggingMiddleware(cfg.logger),
		TimeoutMiddleware(cfg.timeout, cfg.timeoutCeiling, cfg.progressive),
		RetryMiddleware(cfg.maxRetries),
		RateLimitMiddleware(cfg.limiter),
		ConcurrencyMiddleware(cfg.sem, cfg.global),
		CircuitBreakerMiddleware(cfg.breaker),
	}

	return &Executor{plugin: plugin, stack: stack, runIDGen: cfg.runIDGen}
}

// Execute runs req through the middleware stack and the plugin's subprocess
// lifecycle, returning the synthesized Result.
func (e *Executor) Execute(ctx context.Context, req Request) (Result, error) {
	execCtx := NewContext(req, e.runIDGen)
	next := Chain(e.stack, func(req Request, c *Context) (Result, error) {
		return e.spawn(ctx, req, c, nil)
	})
	return next(req, execCtx)
}

// ExecuteStreaming is the streaming variant: each parsed step is forwarded
// to cb synchronously as it is produced (spec §4.3 "Streaming variant").
func (e *Executor) ExecuteStreaming(ctx context.Context, req Request, cb StepCallback) (Result, error) {
	execCtx := NewContext(req, e.runIDGen)
	next := Chain(e.stack, func(req Request, c *Context) (Result, error) {
		return e.spawn(ctx, req, c, cb)
	})
	return next(req, execCtx)
}

// spawn implements the process lifecycle: build argv/env, start the
// subprocess, write-then-close or close-immediately stdin depending on
// UsesStdinForPrompt, concurrently drain stdout/stderr, wait on exit, and
// synthesize the Result (spec §4.3 "Process lifecycle").
func (e *Executor) spawn(ctx context.Context, req Request, execCtx *Context, cb StepCallback) (Result, error) {
	start := time.Now()

	if !e.plugin.IsAvailable() {
		return Result{}, &EngineError{Kind: "unavailable", Err: fmt.Errorf("%s not found in PATH", e.plugin.Name())}
	}

	pluginReq := engine.Request{
		Prompt:           req.Prompt,
		WorkDir:          req.WorkDir,
		Model:            req.ModelOverride,
		SessionID:        req.SessionID,
		ContinueSession:  req.ContinueSession,
		ResumeSession:    req.ResumeSession,
		AllowedTools:     req.AllowedTools,
		DisallowedTools:  req.DisallowedTools,
		OutputFormat:     req.OutputFormat,
		AuxDirs:          req.AuxDirs,
		StructuredOutput: req.StructuredOutput,
		JSONSchema:       req.JSONSchema,
		RunID:            execCtx.RunID,
		AgentRole:        req.AgentRole,
		PipelinePhase:    req.PipelinePhase,
		AutonomyMode:     req.AutonomyMode,
		ExtraArgs:        req.ExtraArgs,
	}

	args := e.plugin.BuildArgs(pluginReq)
	cmd := exec.CommandContext(ctx, e.plugin.Config().Command, args...)
	if req.WorkDir != "" {
		cmd.Dir = req.WorkDir
	}
	cmd.Env = append(os.Environ(), e.plugin.Env(pluginReq)...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, &EngineError{Kind: "spawn", Err: err}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, &EngineError{Kind: "spawn", Err: err}
	}

	var stdinPipe io.WriteCloser
	if e.plugin.UsesStdinForPrompt() {
		stdinPipe, err = cmd.StdinPipe()
		if err != nil {
			return Result{}, &EngineError{Kind: "spawn", Err: err}
		}
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)

	var parser *stream.IncrementalParser
	if cb != nil {
		parser = stream.NewIncrementalParser()
	}

	go func() {
		defer wg.Done()
		if parser != nil {
			buf := make([]byte, 4096)
			for {
				n, readErr := stdoutPipe.Read(buf)
				if n > 0 {
					chunk := append([]byte(nil), buf[:n]...)
					stdoutBuf.Write(chunk)
					for _, step := range parser.Feed(chunk) {
						cb(step)
					}
				}
				if readErr != nil {
					break
				}
			}
			for _, step := range parser.Flush() {
				cb(step)
			}
		} else {
			_, _ = stdoutBuf.ReadFrom(stdoutPipe)
		}
	}()
	go func() {
		defer wg.Done()
		_, _ = stderrBuf.ReadFrom(stderrPipe)
	}()

	if err := cmd.Start(); err != nil {
		wg.Wait()
		return Result{}, &EngineError{Kind: "spawn", Err: err}
	}

	if stdinPipe != nil {
		_, _ = io.WriteString(stdinPipe, req.Prompt)
		_ = stdinPipe.Close()
	}

	wg.Wait()
	waitErr := cmd.Wait()
	duration := time.Since(start)

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return Result{}, &EngineError{Kind: "spawn", Err: waitErr}
		}
	}

	parsed := e.plugin.ParseOutput(stdoutBuf.Bytes())

	metadata := map[string]any{
		"run_id":        execCtx.RunID,
		"agent_role":    string(execCtx.AgentRole),
		"phase":         execCtx.PipelinePhase,
		"attempt":       execCtx.Attempt,
		"engine":        e.plugin.Name(),
		"evidence":      execCtx.Evidence,
		"evidence_count": len(execCtx.Evidence),
	}
	for k, v := range execCtx.Metadata {
		metadata[k] = v
	}

	result := Result{
		Success:       exitCode == 0,
		FinalResponse: parsed.FinalResponse,
		Steps:         parsed.Steps,
		Duration:      duration,
		ExitCode:      exitCode,
		Tokens:        parsed.Tokens,
		Metadata:      metadata,
	}

	if exitCode != 0 {
		result.Error = &EngineError{
			Kind: "non-zero-exit",
			Err:  fmt.Errorf("%s exited with code %d: %s", e.plugin.Name(), exitCode, stderrBuf.String()),
		}
	}

	return result, nil
}
