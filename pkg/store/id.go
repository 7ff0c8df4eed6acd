package store

import "github.com/google/uuid"

// NewID returns a new document identifier.
func NewID() string {
	return uuid.NewString()
}
