package agent

import (
	"context"
	"errors"

	"github.com/hupe1980/jobmesh/core"
)

// FuncAgentOptions configures a FuncAgent instance.
type FuncAgentOptions struct {
	Description  string
	Capabilities []string
}

// FuncAgent adapts a plain Go function into a core.Agent.
//
// It is the building block for deterministic pipeline steps that need no
// language model: data preparation, scoring, fixed transformations. The
// function receives the immutable run state and returns the step's Delta.
type FuncAgent struct {
	BaseAgent
	fn func(ctx context.Context, state *core.State) (core.Delta, error)
}

// NewFuncAgent creates an agent backed by the given function.
func NewFuncAgent(name string, fn func(ctx context.Context, state *core.State) (core.Delta, error), optFns ...func(o *FuncAgentOptions)) *FuncAgent {
	opts := FuncAgentOptions{}

	for _, optFn := range optFns {
		optFn(&opts)
	}

	a := &FuncAgent{
		BaseAgent: NewBaseAgent(name),
		fn:        fn,
	}

	if opts.Description != "" {
		a.SetDescription(opts.Description)
	}

	a.SetCapabilities(opts.Capabilities...)

	return a
}

// Process implements the core.Agent interface.
func (a *FuncAgent) Process(ctx context.Context, state *core.State) (core.Delta, error) {
	if a.fn == nil {
		return core.Delta{}, errors.New("func agent has no function")
	}

	if err := ctx.Err(); err != nil {
		return core.Delta{}, err
	}

	return a.fn(ctx, state)
}
