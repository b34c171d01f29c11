package session

import (
	"context"
	"slices"
	"sync"
)

// InMemoryStore is a volatile Store keeping sessions in a process local map.
// It is safe for concurrent use and suited for tests, demos and single
// process deployments. Records are cloned on the way in and out.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

// Save stores a clone of the session, overwriting any previous record.
func (s *InMemoryStore) Save(ctx context.Context, sess *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = sess.Clone()

	return nil
}

// Get returns a clone of the stored session, or ErrNotFound.
func (s *InMemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}

	return sess.Clone(), nil
}

// Delete removes the session. Unknown ids are ignored.
func (s *InMemoryStore) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)

	return nil
}

// List returns all stored session ids in lexical order.
func (s *InMemoryStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids, nil
}
