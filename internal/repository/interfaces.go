package repository

import (
	"context"

	"go-image-enhancer/internal/session"
)

// SessionRepository defines the interface for session storage
type SessionRepository interface {
	// Create stores a new empty session under a fresh id
	Create(ctx context.Context) (*session.Session, error)

	// Get retrieves a session by id
	Get(ctx context.Context, id string) (*session.Session, error)

	// Delete closes and removes a session
	Delete(ctx context.Context, id string) error

	// Count returns the number of live sessions
	Count() int
}
