package executor

import (
	"context"
	"fmt"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/engine"
)

// FallbackExecute tries each plugin in order: it skips unavailable plugins
// and advances past a non-retryable error, returning the first successful
// (or retry-exhausted) result. If every plugin is unavailable or fails
// non-retryably, the last encountered error is returned (spec §4.3
// "Fallback helper").
func FallbackExecute(ctx context.Context, plugins []engine.Plugin, req Request, newExecutor func(engine.Plugin) *Executor) (Result, error) {
	var lastErr error

	for _, p := range plugins {
		if !p.IsAvailable() {
			lastErr = &EngineError{Kind: "unavailable", Err: fmt.Errorf("%s not found in PATH", p.Name())}
			continue
		}

		exec := newExecutor(p)
		result, err := exec.Execute(ctx, req)
		if err == nil {
			return result, nil
		}

		// A retryable error means the executor's own retry middleware
		// already exhausted retries for this plugin: return that result.
		// Only non-retryable failures advance to the next vendor.
		lastErr = err
		if IsRetryable(err) {
			return result, err
		}
	}

	return Result{}, lastErr
}
