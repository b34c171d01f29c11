package core

import "maps"

// Handoff asks the orchestrator to route control to another agent. It is
// advisory data riding inside a Delta, not control flow: the executor
// validates Target against the workflow's agent set before following it.
type Handoff struct {
	Target string `json:"target"`           // Agent name to transfer control to
	Reason string `json:"reason,omitempty"` // Free-form motivation, kept for the transcript
}

// Delta describes the effect of one agent step. It is the only vehicle for
// state change: agents return a Delta, the executor folds it in via Apply.
// All fields are optional; the zero Delta is a valid no-op.
type Delta struct {
	Messages        []Message      `json:"messages,omitempty"`          // Appended to the transcript
	Scratch         map[string]any `json:"scratch,omitempty"`           // Merged into scratch, last write wins per key
	CompletedAgent  string         `json:"completed_agent,omitempty"`   // Appended to CompletedAgents when non-empty
	ErrorCountDelta int            `json:"error_count_delta,omitempty"` // Added to ErrorCount, negative values ignored
	TokensUsed      int            `json:"tokens_used,omitempty"`       // Added to the token total
	NextAgent       string         `json:"next_agent,omitempty"`        // Routing hint for status reporting
	Handoff         *Handoff       `json:"handoff,omitempty"`           // Consumed by the executor, not stored in state
}

// IsZero reports whether applying the delta would leave state unchanged.
func (d Delta) IsZero() bool {
	return len(d.Messages) == 0 &&
		len(d.Scratch) == 0 &&
		d.CompletedAgent == "" &&
		d.ErrorCountDelta <= 0 &&
		d.TokensUsed == 0 &&
		d.NextAgent == "" &&
		d.Handoff == nil
}

// Merge combines two deltas into one, with other applied after d: messages
// concatenate, scratch keys from other win, counters add, and other's
// CompletedAgent / NextAgent / Handoff replace d's when set.
func (d Delta) Merge(other Delta) Delta {
	out := Delta{
		Messages:        append(append([]Message{}, d.Messages...), other.Messages...),
		ErrorCountDelta: d.ErrorCountDelta + other.ErrorCountDelta,
		TokensUsed:      d.TokensUsed + other.TokensUsed,
		CompletedAgent:  d.CompletedAgent,
		NextAgent:       d.NextAgent,
		Handoff:         d.Handoff,
	}

	if len(d.Scratch) > 0 || len(other.Scratch) > 0 {
		out.Scratch = make(map[string]any, len(d.Scratch)+len(other.Scratch))
		maps.Copy(out.Scratch, d.Scratch)
		maps.Copy(out.Scratch, other.Scratch)
	}

	if other.CompletedAgent != "" {
		out.CompletedAgent = other.CompletedAgent
	}

	if other.NextAgent != "" {
		out.NextAgent = other.NextAgent
	}

	if other.Handoff != nil {
		out.Handoff = other.Handoff
	}

	return out
}

// Apply reduces a delta onto a state and returns the successor state. It is
// pure: neither argument is mutated. The reducer enforces the state
// invariants regardless of what the delta claims:
//
//   - Identity fields (SessionID, UserID, WorkflowType, UserInput, StartedAt)
//     carry over unchanged.
//   - Messages only grow.
//   - ErrorCount never decreases; negative deltas are dropped.
//   - CompletedAgents only grows, preserving completion order.
//
// Delta.Handoff is routing data for the executor and leaves no trace in the
// state itself; the transfer tool call it mirrors is already part of the
// delta's messages.
func Apply(s State, d Delta) State {
	next := s.Clone()

	next.Messages = append(next.Messages, d.Messages...)

	if len(d.Scratch) > 0 {
		maps.Copy(next.Scratch, d.Scratch)
	}

	if d.CompletedAgent != "" {
		next.CompletedAgents = append(next.CompletedAgents, d.CompletedAgent)
	}

	if d.ErrorCountDelta > 0 {
		next.ErrorCount += d.ErrorCountDelta
	}

	if d.TokensUsed > 0 {
		next.TokensUsed += d.TokensUsed
	}

	if d.NextAgent != "" {
		next.NextAgent = d.NextAgent
	}

	return next
}
