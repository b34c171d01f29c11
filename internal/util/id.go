package util

import "github.com/google/uuid"

// NewID returns a random unique identifier for runs, messages and tool calls.
func NewID() string { return uuid.NewString() }
