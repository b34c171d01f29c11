package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/jobmesh/core"
)

func TestBaseAgent_Identity(t *testing.T) {
	b := NewBaseAgent("job_searcher")

	assert.Equal(t, "job_searcher", b.Name())
	assert.Equal(t, "Agent job_searcher", b.Description())
	assert.Empty(t, b.Capabilities())

	b.SetDescription("Searches job boards")
	assert.Equal(t, "Searches job boards", b.Description())
}

func TestBaseAgent_CapabilitiesCopy(t *testing.T) {
	b := NewBaseAgent("job_searcher")
	b.SetCapabilities("job_search", "market_analysis")

	caps := b.Capabilities()
	caps[0] = "mutated"

	assert.Equal(t, []string{"job_search", "market_analysis"}, b.Capabilities())
}

func TestFuncAgent_Process(t *testing.T) {
	a := NewFuncAgent("prep", func(ctx context.Context, state *core.State) (core.Delta, error) {
		return core.Delta{
			Scratch:        map[string]any{"prepared": true},
			CompletedAgent: "prep",
		}, nil
	}, func(o *FuncAgentOptions) {
		o.Description = "Prepares the run"
		o.Capabilities = []string{"preparation"}
	})

	assert.Equal(t, "Prepares the run", a.Description())
	assert.Equal(t, []string{"preparation"}, a.Capabilities())

	state := core.NewState("sess-1", "user-1", "job_search", "Find Go jobs")

	delta, err := a.Process(context.Background(), &state)
	require.NoError(t, err)
	assert.Equal(t, true, delta.Scratch["prepared"])
	assert.Equal(t, "prep", delta.CompletedAgent)
}

func TestFuncAgent_NilFunction(t *testing.T) {
	a := NewFuncAgent("broken", nil)

	state := core.NewState("sess-1", "user-1", "job_search", "Find Go jobs")

	_, err := a.Process(context.Background(), &state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no function")
}

func TestFuncAgent_CancelledContext(t *testing.T) {
	called := false

	a := NewFuncAgent("prep", func(ctx context.Context, state *core.State) (core.Delta, error) {
		called = true
		return core.Delta{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := core.NewState("sess-1", "user-1", "job_search", "Find Go jobs")

	_, err := a.Process(ctx, &state)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
