package session

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/jobmesh/core"
)

// ErrNotFound is returned by Store.Get when no session exists for the id.
var ErrNotFound = errors.New("session not found")

// Status describes where a session's workflow run is in its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final. A terminal session is never
// transitioned again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}

	return false
}

// Session is the persisted record of one workflow run: its lifecycle status
// plus the latest state snapshot. The engine saves a fresh snapshot after
// every applied step, so Get reflects run progress while the run is still
// executing.
type Session struct {
	ID        string     `json:"id"`
	RunID     string     `json:"run_id,omitempty"`
	Status    Status     `json:"status"`
	State     core.State `json:"state"`
	Steps     int        `json:"steps"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// New constructs a pending session wrapping the initial run state.
func New(sessionID, runID string, state core.State) *Session {
	now := time.Now().UTC()

	return &Session{
		ID:        sessionID,
		RunID:     runID,
		Status:    StatusPending,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy; mutations of the clone never reach the original.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	c := *s
	c.State = s.State.Clone()

	return &c
}

// MarkRunning transitions the session into the running state.
func (s *Session) MarkRunning() {
	s.Status = StatusRunning
	s.touch()
}

// MarkCompleted transitions the session into the completed state.
func (s *Session) MarkCompleted() {
	s.Status = StatusCompleted
	s.touch()
}

// MarkFailed transitions the session into the failed state and records the
// run error.
func (s *Session) MarkFailed(err error) {
	s.Status = StatusFailed
	if err != nil {
		s.Error = err.Error()
	}

	s.touch()
}

// MarkCancelled transitions the session into the cancelled state.
func (s *Session) MarkCancelled() {
	s.Status = StatusCancelled
	s.touch()
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}

// Store persists session records keyed by session id. Save is an upsert.
// Implementations must store and return copies so callers cannot mutate
// persisted records through retained pointers.
type Store interface {
	// Save persists the session, overwriting any previous record with the
	// same id.
	Save(ctx context.Context, sess *Session) error

	// Get returns the session for the id, or ErrNotFound.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Delete removes the session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the ids of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
