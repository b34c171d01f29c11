package core

import (
	"context"

	"github.com/hupe1980/jobmesh/logging"
)

// RunContext carries per-run identity and helpers threaded through the
// workflow executor. It aggregates:
//
//   - The ambient cancellation Context
//   - Identifiers (SessionID, RunID, WorkflowType)
//   - The step limiter shared by executor and status reporting
//   - An optional step event channel for observers
//
// The executor owns the run state itself; RunContext deliberately carries
// none so snapshots handed to agents stay the single source of truth.
type RunContext struct {
	Context      context.Context
	SessionID    string
	RunID        string
	WorkflowType string
	Steps        *StepLimiter
	Emit         chan<- StepEvent

	*loggerAdapter
}

// NewRunContext constructs a RunContext. A nil emit channel disables step
// event forwarding; a zero stepBudget disables the step limit.
func NewRunContext(
	ctx context.Context,
	sessionID, runID, workflowType string,
	stepBudget int,
	emit chan<- StepEvent,
	logger logging.Logger,
) *RunContext {
	return &RunContext{
		Context:       ctx,
		SessionID:     sessionID,
		RunID:         runID,
		WorkflowType:  workflowType,
		Steps:         NewStepLimiter(stepBudget),
		Emit:          emit,
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// EmitStep forwards a step event to the observer channel when one is
// configured. It never blocks past context cancellation.
func (rc *RunContext) EmitStep(ev StepEvent) {
	if rc.Emit == nil {
		return
	}

	select {
	case <-rc.Context.Done():
	case rc.Emit <- ev:
	}
}
