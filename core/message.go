package core

import "time"

// Conversation roles used in the transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleSystem    = "system"
)

// ToolCall records a tool invocation requested by an agent, including the
// serialized argument payload it was given.
type ToolCall struct {
	ID        string `json:"id,omitempty"`        // Stable id correlating call and result
	Name      string `json:"name"`                // Tool name
	Arguments string `json:"arguments,omitempty"` // Serialized argument payload (JSON)
}

// Message is one entry in a run's append-only transcript. After emission it
// should be treated as immutable. Agent identifies the producing agent and is
// empty for user-authored messages.
type Message struct {
	Role      string     `json:"role"`
	Agent     string     `json:"agent,omitempty"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewUserMessage creates a user-authored transcript message.
func NewUserMessage(content string) Message {
	return Message{
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewAgentMessage creates an assistant message authored by the named agent.
func NewAgentMessage(agent, content string) Message {
	return Message{
		Role:      RoleAssistant,
		Agent:     agent,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewToolCallMessage creates an assistant message carrying one or more tool
// invocation requests alongside optional text content.
func NewToolCallMessage(agent, content string, calls ...ToolCall) Message {
	return Message{
		Role:      RoleAssistant,
		Agent:     agent,
		Content:   content,
		ToolCalls: calls,
		Timestamp: time.Now().UTC(),
	}
}

// NewToolMessage records the result of a tool invocation in the transcript.
// The call parameter links the result back to the originating request.
func NewToolMessage(agent string, call ToolCall, content string) Message {
	return Message{
		Role:      RoleTool,
		Agent:     agent,
		Content:   content,
		ToolCalls: []ToolCall{call},
		Timestamp: time.Now().UTC(),
	}
}

// HasToolCalls reports whether the message requests any tool invocations.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }
