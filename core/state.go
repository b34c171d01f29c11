package core

import (
	"maps"
	"strings"
	"time"
)

// ResultKeySuffix is appended to an agent name to form the scratch key under
// which the agent's structured result payload is stored.
const ResultKeySuffix = "_result"

// State is the complete, typed state of one workflow run. Identity fields
// (SessionID, UserID, WorkflowType, UserInput, StartedAt) never change after
// creation; everything else advances exclusively through Apply. Treat values
// handed to agents as read-only snapshots.
type State struct {
	SessionID    string `json:"session_id"`
	UserID       string `json:"user_id"`
	WorkflowType string `json:"workflow_type"`
	UserInput    string `json:"user_input"`

	Messages []Message `json:"messages"` // Append-only transcript

	CurrentAgent string `json:"current_agent,omitempty"` // Agent executing the current step
	NextAgent    string `json:"next_agent,omitempty"`    // Routing decision, informational

	CompletedAgents []string `json:"completed_agents"` // Completion order, duplicates allowed on re-runs

	ErrorCount int `json:"error_count"` // Monotonically non-decreasing
	TokensUsed int `json:"tokens_used"` // Accumulated model usage

	Scratch map[string]any `json:"scratch"` // Workflow scratch space

	StartedAt time.Time `json:"started_at"`
}

// NewState creates the initial state for a run. The transcript is seeded with
// the user input as its first message.
func NewState(sessionID, userID, workflowType, userInput string) State {
	return State{
		SessionID:    sessionID,
		UserID:       userID,
		WorkflowType: workflowType,
		UserInput:    userInput,
		Messages:     []Message{NewUserMessage(userInput)},
		Scratch:      map[string]any{},
		StartedAt:    time.Now().UTC(),
	}
}

// Clone returns a copy with independent Messages, CompletedAgents and Scratch
// containers. Message values are shared; the append-only discipline makes
// that safe.
func (s State) Clone() State {
	c := s

	c.Messages = make([]Message, len(s.Messages))
	copy(c.Messages, s.Messages)

	c.CompletedAgents = make([]string, len(s.CompletedAgents))
	copy(c.CompletedAgents, s.CompletedAgents)

	c.Scratch = make(map[string]any, len(s.Scratch))
	maps.Copy(c.Scratch, s.Scratch)

	return c
}

// HasCompleted reports whether the named agent appears in CompletedAgents.
func (s State) HasCompleted(agent string) bool {
	for _, a := range s.CompletedAgents {
		if a == agent {
			return true
		}
	}

	return false
}

// ScratchValue returns the scratch entry for key, if present.
func (s State) ScratchValue(key string) (any, bool) {
	v, ok := s.Scratch[key]
	return v, ok
}

// AgentResult returns the structured result payload an agent stored under its
// "<agent>_result" scratch key, if present.
func (s State) AgentResult(agent string) (any, bool) {
	return s.ScratchValue(agent + ResultKeySuffix)
}

// Results projects all "<agent>_result" scratch entries into a fresh map
// keyed by the full scratch key.
func (s State) Results() map[string]any {
	out := map[string]any{}
	for k, v := range s.Scratch {
		if strings.HasSuffix(k, ResultKeySuffix) {
			out[k] = v
		}
	}

	return out
}

// LastMessage returns the most recent transcript message, if any.
func (s State) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}

	return s.Messages[len(s.Messages)-1], true
}
