package domain

import (
	"context"
	"errors"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExists    = errors.New("session already exists")
	ErrSessionCompleted = errors.New("session already completed")
	ErrInvalidArgument  = errors.New("invalid argument")
	// ErrCollaborator marks failures of an external generation service, as
	// opposed to persistence failures, which carry their own cause.
	ErrCollaborator = errors.New("collaborator failure")
)

// SessionStore defines session persistence. Put has merge semantics: only
// the fields set on the record are overwritten. Failures are returned to
// the caller as retryable conditions, never swallowed.
type SessionStore interface {
	Put(ctx context.Context, userID UserID, id SessionID, record *Session) error
	// Create fails with ErrSessionExists when the id is already present.
	// Used by the pre-auth migration path to guarantee exactly-once writes.
	Create(ctx context.Context, userID UserID, id SessionID, record *Session) error
	Get(ctx context.Context, userID UserID, id SessionID) (*Session, error)
	GetAll(ctx context.Context, userID UserID) ([]*Session, error)
}

// TelemetrySink receives redacted session payloads. Append failures are
// non-fatal by contract: callers log them and move on.
type TelemetrySink interface {
	Append(ctx context.Context, fields map[string]any) error
}

// DialogueClient defines how the application talks to the external
// text-generation collaborator.
type DialogueClient interface {
	Generate(ctx context.Context, transcript []ChatMessage, systemPrompt string) (string, error)
}
