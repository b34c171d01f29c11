package document

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore keeps documents in a nested process local map, guarded by an
// RWMutex. Documents contain only value fields, so plain struct assignment
// isolates stored records from caller mutation.
//
// Layout: userID -> documentID -> document.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]Document
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore returns an empty in-memory document store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[string]map[string]Document)}
}

// Save stores the document under its owner, overwriting a previous version.
func (s *InMemoryStore) Save(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[doc.UserID]; !ok {
		s.docs[doc.UserID] = make(map[string]Document)
	}

	s.docs[doc.UserID][doc.ID] = doc

	return nil
}

// Get returns a copy of the stored document, or ErrNotFound.
func (s *InMemoryStore) Get(ctx context.Context, userID, documentID string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[userID][documentID]
	if !ok {
		return nil, ErrNotFound
	}

	return &doc, nil
}

// List returns the user's documents ordered newest first; ties fall back to
// the document id. Unknown users get an empty slice.
func (s *InMemoryStore) List(ctx context.Context, userID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]Document, 0, len(s.docs[userID]))
	for _, doc := range s.docs[userID] {
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.After(docs[j].UploadedAt)
		}

		return docs[i].ID < docs[j].ID
	})

	return docs, nil
}

// Delete removes the document, or returns ErrNotFound.
func (s *InMemoryStore) Delete(ctx context.Context, userID, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[userID][documentID]; !ok {
		return ErrNotFound
	}

	delete(s.docs[userID], documentID)

	return nil
}
