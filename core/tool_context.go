package core

import (
	"context"
	"fmt"

	"github.com/hupe1980/jobmesh/logging"
)

// ToolContext provides a constrained, auditable surface for tool / function
// implementations invoked during an agent step. It accumulates scratch
// updates and an optional handoff request without mutating run state; the
// owning agent folds the staged values into its returned Delta.
type ToolContext struct {
	ctx       context.Context
	agentName string
	callID    string
	state     *State
	scratch   map[string]any
	handoff   *Handoff
	valid     bool

	*loggerAdapter
}

// NewToolContext constructs a tool context bound to the given agent step and
// function call id. The state is the read-only snapshot the agent received.
func NewToolContext(ctx context.Context, agentName, callID string, state *State, logger logging.Logger) *ToolContext {
	return &ToolContext{
		ctx:           ctx,
		agentName:     agentName,
		callID:        callID,
		state:         state,
		scratch:       map[string]any{},
		valid:         true,
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// SessionID returns the session ID associated with the tool invocation.
func (tc *ToolContext) SessionID() string { return tc.state.SessionID }

// AgentName returns the agent name associated with the tool invocation.
func (tc *ToolContext) AgentName() string { return tc.agentName }

// CallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) CallID() string { return tc.callID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// State returns the read-only state snapshot of the current step.
func (tc *ToolContext) State() *State { return tc.state }

// UserInput returns the original user input of the run.
func (tc *ToolContext) UserInput() string { return tc.state.UserInput }

// GetScratch retrieves a scratch value, consulting the staged updates of this
// step before the snapshot.
func (tc *ToolContext) GetScratch(k string) (any, bool) {
	if v, ok := tc.scratch[k]; ok {
		return v, true
	}

	return tc.state.ScratchValue(k)
}

// SetScratch stages a scratch mutation for the delta the owning agent will
// return. The snapshot itself is never touched.
func (tc *ToolContext) SetScratch(k string, v any) { tc.scratch[k] = v }

// SetResult stages the calling agent's structured result payload under its
// "<agent>_result" scratch key.
func (tc *ToolContext) SetResult(v any) {
	tc.SetScratch(tc.agentName+ResultKeySuffix, v)
}

// RequestHandoff stages a transfer of control to another agent. The last
// request of a step wins.
func (tc *ToolContext) RequestHandoff(target, reason string) {
	tc.handoff = &Handoff{Target: target, Reason: reason}

	tc.LogInfo("tool.handoff.request", "from_agent", tc.agentName, "to_agent", target, "call_id", tc.callID)
}

// ScratchDelta returns the scratch updates staged by tools during this step.
func (tc *ToolContext) ScratchDelta() map[string]any { return tc.scratch }

// Handoff returns the staged handoff request, or nil if none was made.
func (tc *ToolContext) Handoff() *Handoff { return tc.handoff }

// Validate performs a structural sanity check of the context.
func (tc *ToolContext) Validate() error {
	if !tc.valid || tc.state == nil || tc.callID == "" {
		return fmt.Errorf("invalid ToolContext")
	}

	return nil
}

// IsValid reports whether Validate would succeed (fast path).
func (tc *ToolContext) IsValid() bool {
	return tc.valid && tc.state != nil && tc.callID != ""
}
