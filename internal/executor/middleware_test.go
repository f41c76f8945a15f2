package executor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_OrdersOutermostFirst(t *testing.T) {
	t.Parallel()
	var order []string

	record := func(name string) Middleware {
		return func(req Request, next Next, ctx *Context) (Result, error) {
			order = append(order, name+":enter")
			result, err := next(req, ctx)
			order = append(order, name+":exit")
			return result, err
		}
	}

	terminal := func(req Request, ctx *Context) (Result, error) {
		order = append(order, "terminal")
		return Result{Success: true}, nil
	}

	next := Chain([]Middleware{record("a"), record("b")}, terminal)
	_, err := next(Request{}, &Context{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a:enter", "b:enter", "terminal", "b:exit", "a:exit"}, order)
}

func TestChain_EmptyMiddlewareCallsTerminalDirectly(t *testing.T) {
	t.Parallel()
	called := false
	terminal := func(req Request, ctx *Context) (Result, error) {
		called = true
		return Result{Success: true}, nil
	}
	next := Chain(nil, terminal)
	_, err := next(Request{}, &Context{})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRetryMiddleware_StopsOnSuccess(t *testing.T) {
	t.Parallel()
	calls := 0
	mw := RetryMiddleware(3)
	next := func(req Request, ctx *Context) (Result, error) {
		calls++
		return Result{Success: true}, nil
	}
	result, err := mw(Request{}, next, &Context{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, calls)
}

func TestRetryMiddleware_RetriesTransientFailures(t *testing.T) {
	t.Parallel()
	calls := 0
	mw := RetryMiddleware(2)
	next := func(req Request, ctx *Context) (Result, error) {
		calls++
		if calls < 3 {
			return Result{}, errors.New("temporary failure")
		}
		return Result{Success: true}, nil
	}
	start := time.Now()
	result, err := mw(Request{}, next, &Context{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, calls)
	assert.GreaterOrEqual(t, time.Since(start), time.Duration(0))
}

func TestRetryMiddleware_StopsImmediatelyOnNonRetryable(t *testing.T) {
	t.Parallel()
	calls := 0
	mw := RetryMiddleware(3)
	next := func(req Request, ctx *Context) (Result, error) {
		calls++
		return Result{}, errors.New("validation error: bad input")
	}
	_, err := mw(Request{}, next, &Context{})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoffDelay_MonotonicNonDecreasing(t *testing.T) {
	t.Parallel()
	var last time.Duration
	for attempt := 0; attempt < 6; attempt++ {
		// Recompute the pre-jitter base from the retry constants and
		// assert it is non-decreasing up to the ceiling.
		base := float64(retryBaseDelay)
		for i := 0; i < attempt; i++ {
			base *= retryMultiplier
		}
		if time.Duration(base) > retryCeiling {
			base = float64(retryCeiling)
		}
		assert.GreaterOrEqual(t, time.Duration(base), last)
		last = time.Duration(base)
	}
}

func TestTimeoutMiddleware_ExpiresOnSlowNext(t *testing.T) {
	t.Parallel()
	mw := TimeoutMiddleware(10*time.Millisecond, time.Second, false)
	next := func(req Request, ctx *Context) (Result, error) {
		time.Sleep(100 * time.Millisecond)
		return Result{Success: true}, nil
	}
	_, err := mw(Request{}, next, &Context{})
	require.Error(t, err)
	var timeoutErr *TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
}

func TestTimeoutMiddleware_SucceedsWithinTimeout(t *testing.T) {
	t.Parallel()
	mw := TimeoutMiddleware(time.Second, time.Second, false)
	next := func(req Request, ctx *Context) (Result, error) {
		return Result{Success: true}, nil
	}
	result, err := mw(Request{}, next, &Context{})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestTimeoutMiddleware_ProgressiveGrowsWithAttempt(t *testing.T) {
	t.Parallel()
	mw := TimeoutMiddleware(10*time.Millisecond, time.Second, true)
	ctx := &Context{Attempt: 3}
	next := func(req Request, ctx *Context) (Result, error) {
		time.Sleep(15 * time.Millisecond)
		return Result{Success: true}, nil
	}
	result, err := mw(Request{}, next, ctx)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestConcurrencyMiddleware_LimitsParallelCalls(t *testing.T) {
	t.Parallel()
	sem := NewSemaphore(1)
	mw := ConcurrencyMiddleware(sem, nil)

	inFlight := 0
	maxInFlight := 0
	var muErr error
	next := func(req Request, ctx *Context) (Result, error) {
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		time.Sleep(5 * time.Millisecond)
		inFlight--
		return Result{Success: true}, muErr
	}

	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			mw(Request{}, next, &Context{})
			done <- struct{}{}
		}()
	}
	<-done
	<-done
	assert.LessOrEqual(t, maxInFlight, 1)
}

func TestRateLimiter_EnforcesMinSpacing(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(time.Minute, 20*time.Millisecond, OverflowBlock)
	require.NoError(t, rl.Acquire())
	start := time.Now()
	require.NoError(t, rl.Acquire())
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
