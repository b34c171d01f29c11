package history

import (
	"context"
	"sync"
)

// InMemorySink is a process-local Sink keeping records per session in
// insertion order.
//
// Concurrency: protected by RWMutex. Suitable for tests, demos and
// single-process deployments; swap for the postgres or sqlite sink when
// transcripts must survive restarts.
type InMemorySink struct {
	mu      sync.RWMutex
	records map[string][]Record // sessionID -> records in insertion order
}

// NewInMemorySink creates a new in-memory history sink.
func NewInMemorySink() *InMemorySink {
	return &InMemorySink{
		records: make(map[string][]Record),
	}
}

// Append implements the Sink interface.
func (s *InMemorySink) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.SessionID] = append(s.records[rec.SessionID], rec)

	return nil
}

// List implements the Sink interface. The returned slice is a copy.
func (s *InMemorySink) List(ctx context.Context, sessionID string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records[sessionID]))
	copy(out, s.records[sessionID])

	return out, nil
}
