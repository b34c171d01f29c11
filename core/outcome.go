package core

import "time"

// StepOutcome is the result of executing a single agent step. Concrete
// outcome types implement the unexported isStepOutcome marker enabling a
// closed set; the executor dispatches on them with an exhaustive type switch.
type StepOutcome interface{ isStepOutcome() }

// Continue reports a step that produced a delta and leaves the next hop to
// the workflow sequence.
type Continue struct {
	Delta Delta
}

// isStepOutcome implements the StepOutcome interface for Continue.
func (Continue) isStepOutcome() {}

// HandoffTo reports a step whose delta carries a routing request to another
// agent. Target duplicates Delta.Handoff.Target for convenient dispatch.
type HandoffTo struct {
	Delta  Delta
	Target string
}

// isStepOutcome implements the StepOutcome interface for HandoffTo.
func (HandoffTo) isStepOutcome() {}

// Fail reports an absorbed agent failure. The run continues; the delta
// carries the error count increment and failure message.
type Fail struct {
	Delta Delta
	Err   error
}

// isStepOutcome implements the StepOutcome interface for Fail.
func (Fail) isStepOutcome() {}

// Outcome labels used in step events, logs and metrics.
const (
	OutcomeContinue = "continue"
	OutcomeHandoff  = "handoff"
	OutcomeFail     = "fail"
)

// OutcomeLabel returns the string label for a step outcome.
func OutcomeLabel(o StepOutcome) string {
	switch o.(type) {
	case Continue:
		return OutcomeContinue
	case HandoffTo:
		return OutcomeHandoff
	case Fail:
		return OutcomeFail
	default:
		return "unknown"
	}
}

// StepEvent describes one completed executor step for observers. After
// emission it should be treated as immutable.
type StepEvent struct {
	SessionID    string    `json:"session_id"`
	RunID        string    `json:"run_id"`
	WorkflowType string    `json:"workflow_type"`
	Step         int       `json:"step"`
	Agent        string    `json:"agent"`
	Outcome      string    `json:"outcome"`
	Target       string    `json:"target,omitempty"` // Handoff target when Outcome is "handoff"
	Err          string    `json:"error,omitempty"`  // Absorbed failure message when Outcome is "fail"
	ErrorCount   int       `json:"error_count"`
	TokensUsed   int       `json:"tokens_used"`
	Timestamp    time.Time `json:"timestamp"`
}
