package history

import (
	"context"
	"time"
)

// Record is one persisted transcript entry. Agent is empty for user-authored
// messages.
type Record struct {
	SessionID string    `json:"session_id"`
	Agent     string    `json:"agent,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink persists transcript records and lists them back per session.
type Sink interface {
	// Append stores a single record.
	Append(ctx context.Context, rec Record) error

	// List returns all records of a session in insertion order.
	List(ctx context.Context, sessionID string) ([]Record, error)
}
