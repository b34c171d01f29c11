package core

import (
	"errors"
	"fmt"
)

// Terminal budget errors. The executor wraps them with %w so callers can
// match with errors.Is.
var (
	// ErrBudgetExceeded terminates a run whose accumulated agent failures
	// exceed the configured error budget.
	ErrBudgetExceeded = errors.New("error budget exceeded")

	// ErrStepBudgetExceeded terminates a run that reached the configured
	// step budget without completing.
	ErrStepBudgetExceeded = errors.New("step budget exceeded")
)

// AgentError wraps a failure produced during an agent step. The executor
// absorbs it into state (error count, failure message) instead of aborting
// the run.
type AgentError struct {
	Agent string // Name of the failing agent
	Err   error  // Underlying cause
}

// NewAgentError wraps err as a failure attributed to the named agent.
func NewAgentError(agent string, err error) *AgentError {
	return &AgentError{Agent: agent, Err: err}
}

// Error implements the error interface for AgentError.
func (e *AgentError) Error() string {
	return fmt.Sprintf("agent %q failed: %v", e.Agent, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *AgentError) Unwrap() error { return e.Err }

// UnknownHandoffError reports a handoff whose target is not part of the
// workflow's agent set. It is terminal: the run stops rather than guessing.
type UnknownHandoffError struct {
	Target string // The unresolvable handoff target
}

// Error implements the error interface for UnknownHandoffError.
func (e *UnknownHandoffError) Error() string {
	return fmt.Sprintf("unknown handoff target %q", e.Target)
}

// SubmissionError rejects a request before any run state is created or
// persisted, e.g. for an unknown workflow type or empty user input.
type SubmissionError struct {
	Reason string
}

// NewSubmissionError creates a SubmissionError with a formatted reason.
func NewSubmissionError(format string, args ...any) *SubmissionError {
	return &SubmissionError{Reason: fmt.Sprintf(format, args...)}
}

// Error implements the error interface for SubmissionError.
func (e *SubmissionError) Error() string {
	return fmt.Sprintf("invalid submission: %s", e.Reason)
}
