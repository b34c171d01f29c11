package document

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/jobmesh/internal/util"
)

// ErrNotFound is returned when no document exists for the given user and id.
var ErrNotFound = errors.New("document not found")

// Document is one stored resume: the extracted text plus upload metadata.
// Text holds the full extracted content; parsing the source file into text
// happens before the document enters the store.
type Document struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Filename   string    `json:"filename"`
	Text       string    `json:"text"`
	Size       int       `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// New builds a document with a fresh id for the given owner.
func New(userID, filename, text string) Document {
	return Document{
		ID:         util.NewID(),
		UserID:     userID,
		Filename:   filename,
		Text:       text,
		Size:       len(text),
		UploadedAt: time.Now().UTC(),
	}
}

// Store persists resume documents scoped by owner. Lookups outside the
// owner's scope behave as if the document does not exist.
type Store interface {
	// Save persists the document, overwriting a previous version with the
	// same id.
	Save(ctx context.Context, doc Document) error

	// Get returns the document, or ErrNotFound.
	Get(ctx context.Context, userID, documentID string) (*Document, error)

	// List returns the user's documents, newest first.
	List(ctx context.Context, userID string) ([]Document, error)

	// Delete removes the document, or returns ErrNotFound.
	Delete(ctx context.Context, userID, documentID string) error
}
