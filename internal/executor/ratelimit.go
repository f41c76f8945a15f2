package executor

import (
	"sync"
	"time"
)

// Overflow strategies for the rate-limit middleware (spec §4.3 middleware #4).
const (
	OverflowLeak     = "leak"
	OverflowOverflow = "overflow"
	OverflowBlock    = "block"
)

// RateLimiter is a token-bucket reservoir that refills continuously at one
// full bucket per refillInterval, capped at a capacity derived from
// refillInterval/minSpacing, and additionally enforces a minimum spacing
// between consumed tasks. It is safe for concurrent use.
type RateLimiter struct {
	mu             sync.Mutex
	capacity       float64
	tokens         float64
	refillInterval time.Duration
	minSpacing     time.Duration
	overflow       string
	lastRefill     time.Time
	lastConsumedAt time.Time
}

// NewRateLimiter builds a RateLimiter refilling one full reservoir every
// refillInterval, enforcing minSpacing between consumed tasks, and applying
// overflow when the reservoir is empty.
func NewRateLimiter(refillInterval, minSpacing time.Duration, overflow string) *RateLimiter {
	if refillInterval <= 0 {
		refillInterval = 60 * time.Second
	}
	if minSpacing <= 0 {
		minSpacing = 100 * time.Millisecond
	}
	if overflow == "" {
		overflow = OverflowBlock
	}

	capacity := float64(refillInterval) / float64(minSpacing)
	if capacity < 1 {
		capacity = 1
	}

	return &RateLimiter{
		capacity:       capacity,
		tokens:         capacity,
		refillInterval: refillInterval,
		minSpacing:     minSpacing,
		overflow:       overflow,
		lastRefill:     time.Now(),
	}
}

// Acquire blocks (for OverflowBlock or OverflowLeak, which both wait for
// the next token) or returns ErrRateLimitOverflow (for OverflowOverflow)
// when the reservoir is empty. It always enforces the minimum spacing
// between consumed tasks first.
func (rl *RateLimiter) Acquire() error {
	for {
		rl.mu.Lock()
		rl.refillLocked()

		if since := time.Since(rl.lastConsumedAt); !rl.lastConsumedAt.IsZero() && since < rl.minSpacing {
			wait := rl.minSpacing - since
			rl.mu.Unlock()
			time.Sleep(wait)
			continue
		}

		if rl.tokens >= 1 {
			rl.tokens--
			rl.lastConsumedAt = time.Now()
			rl.mu.Unlock()
			return nil
		}

		switch rl.overflow {
		case OverflowOverflow:
			rl.mu.Unlock()
			return ErrRateLimitOverflow
		case OverflowLeak, OverflowBlock:
			wait := rl.tokenRefillWaitLocked()
			rl.mu.Unlock()
			if wait > 0 {
				time.Sleep(wait)
			}
			continue
		default:
			rl.mu.Unlock()
			return ErrRateLimitOverflow
		}
	}
}

// refillLocked adds tokens continuously based on elapsed time since the
// last refill, at a rate of capacity tokens per refillInterval, capped at
// capacity. Caller must hold mu.
func (rl *RateLimiter) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	if elapsed <= 0 {
		return
	}
	rl.tokens += elapsed.Seconds() / rl.refillInterval.Seconds() * rl.capacity
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}
	rl.lastRefill = now
}

// tokenRefillWaitLocked returns how long until one more token accrues.
// Caller must hold mu.
func (rl *RateLimiter) tokenRefillWaitLocked() time.Duration {
	perToken := time.Duration(rl.refillInterval.Seconds() / rl.capacity * float64(time.Second))
	if perToken <= 0 {
		return rl.minSpacing
	}
	return perToken
}

// RateLimitMiddleware gates each invocation through limiter before calling
// next() (spec §4.3 middleware #4).
func RateLimitMiddleware(limiter *RateLimiter) Middleware {
	return func(req Request, next Next, ctx *Context) (Result, error) {
		if limiter == nil {
			return next(req, ctx)
		}
		if err := limiter.Acquire(); err != nil {
			return Result{}, err
		}
		return next(req, ctx)
	}
}
