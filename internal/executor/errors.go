package executor

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrCircuitOpen is returned by the circuit-breaker middleware when the
// breaker is open and rejecting calls immediately.
var ErrCircuitOpen = errors.New("executor: circuit breaker open")

// ErrRateLimitOverflow is returned by the rate-limit middleware under the
// "overflow" strategy when the reservoir is empty.
var ErrRateLimitOverflow = errors.New("executor: rate limit reservoir exhausted")

// TimeoutError is raised when a single-shot timer expires before next()
// returns (spec §4.3 middleware #2).
type TimeoutError struct {
	Kind    string // "per-engine" | "per-check-command" | "per-lock"
	Timeout time.Duration
	TaskID  string
}

func (e *TimeoutError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("executor: %s timeout after %s (task %s)", e.Kind, e.Timeout, e.TaskID)
	}
	return fmt.Sprintf("executor: %s timeout after %s", e.Kind, e.Timeout)
}

// reNonRetryable matches error messages that must never be retried (spec
// §4.3 middleware #3).
var reNonRetryable = regexp.MustCompile(`(?i)validation|unauthorized|forbidden|not found|invalid|permission denied|authentication|api key`)

// IsRetryable reports whether err's message indicates a transient failure
// worth retrying. nil errors are not retryable (nothing to retry).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !reNonRetryable.MatchString(err.Error())
}

// EngineError wraps a structured engine-level failure (spec §7 EngineError).
type EngineError struct {
	Kind string // "unavailable" | "spawn" | "non-zero-exit" | "malformed-output" | "json-extraction-failed"
	Err  error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("executor: engine error (%s): %v", e.Kind, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
