package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AbdelazizMoustafa10m/milhouse/internal/engine"
)

func TestNewContext_GeneratesRunIDWhenAbsent(t *testing.T) {
	t.Parallel()
	ctx := NewContext(Request{}, func() string { return "generated-id" })
	assert.Equal(t, "generated-id", ctx.RunID)
	assert.NotNil(t, ctx.Evidence)
	assert.NotNil(t, ctx.Metadata)
	assert.Equal(t, 0, ctx.Attempt)
}

func TestNewContext_PreservesExplicitRunID(t *testing.T) {
	t.Parallel()
	ctx := NewContext(Request{RunID: "run-explicit"}, func() string { return "generated-id" })
	assert.Equal(t, "run-explicit", ctx.RunID)
}

func TestNewContext_CarriesAgentRoleAndPhase(t *testing.T) {
	t.Parallel()
	ctx := NewContext(Request{AgentRole: engine.RolePlanner, PipelinePhase: "plan"}, nil)
	assert.Equal(t, engine.RolePlanner, ctx.AgentRole)
	assert.Equal(t, "plan", ctx.PipelinePhase)
}
