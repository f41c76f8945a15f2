package executor

import (
	"time"

	"github.com/charmbracelet/log"
)

// Chain composes middlewares in the given order around terminal, the
// innermost Next that actually performs the work. The first middleware in
// the slice runs outermost (spec §4.3 "Middlewares compose in a strict
// order").
func Chain(middlewares []Middleware, terminal Next) Next {
	next := terminal
	for i := len(middlewares) - 1; i >= 0; i-- {
		mw := middlewares[i]
		prevNext := next
		next = func(req Request, ctx *Context) (Result, error) {
			return mw(req, prevNext, ctx)
		}
	}
	return next
}

// LoggingMiddleware emits engine:start/engine:complete/engine:error events
// carrying context fields and times the call duration (spec §4.3
// middleware #1).
func LoggingMiddleware(logger *log.Logger) Middleware {
	return func(req Request, next Next, ctx *Context) (Result, error) {
		if logger != nil {
			logger.Info("engine:start",
				"run_id", ctx.RunID,
				"agent_role", ctx.AgentRole,
				"phase", ctx.PipelinePhase,
				"attempt", ctx.Attempt,
			)
		}

		start := time.Now()
		result, err := next(req, ctx)
		duration := time.Since(start)

		if logger == nil {
			return result, err
		}

		if err != nil {
			logger.Error("engine:error",
				"run_id", ctx.RunID,
				"agent_role", ctx.AgentRole,
				"phase", ctx.PipelinePhase,
				"attempt", ctx.Attempt,
				"duration", duration,
				"error", err,
			)
			return result, err
		}

		logger.Info("engine:complete",
			"run_id", ctx.RunID,
			"agent_role", ctx.AgentRole,
			"phase", ctx.PipelinePhase,
			"attempt", ctx.Attempt,
			"duration", duration,
			"success", result.Success,
		)
		return result, err
	}
}
