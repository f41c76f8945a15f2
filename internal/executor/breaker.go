package executor

import (
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig configures the optional circuit-breaker middleware (spec
// §4.3 middleware #6).
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	ResetTimeout     time.Duration
	HalfOpenMaxCalls uint32
	OnStateChange    func(name string, from, to gobreaker.State)
}

// NewBreaker builds a gobreaker.CircuitBreaker from cfg: it counts
// consecutive failures (a success resets the count), opens once they reach
// FailureThreshold, stays open for ResetTimeout, then allows
// HalfOpenMaxCalls trial requests before deciding whether to close again.
func NewBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker {
	maxRequests := cfg.HalfOpenMaxCalls
	if maxRequests == 0 {
		maxRequests = 1
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	resetTimeout := cfg.ResetTimeout
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: maxRequests,
		Timeout:     resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: cfg.OnStateChange,
	})
}

// CircuitBreakerMiddleware wraps next() with cb. When cb is nil the
// middleware is a pass-through (the breaker is optional per spec).
func CircuitBreakerMiddleware(cb *gobreaker.CircuitBreaker) Middleware {
	return func(req Request, next Next, ctx *Context) (Result, error) {
		if cb == nil {
			return next(req, ctx)
		}

		out, err := cb.Execute(func() (any, error) {
			result, callErr := next(req, ctx)
			if callErr == nil && !result.Success {
				callErr = &EngineError{Kind: "non-zero-exit", Err: result.Error}
			}
			return result, callErr
		})

		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return Result{}, ErrCircuitOpen
		}

		result, _ := out.(Result)
		return result, err
	}
}
