package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/compass-journal/compass-api/internal/domain"
	"github.com/compass-journal/compass-api/internal/observability"
)

// Service owns session persistence and its telemetry side channel. Every
// successful session write is mirrored, redacted, into the telemetry
// stream; telemetry failures are logged and never surfaced, session
// failures are always surfaced to the caller.
type Service struct {
	store     domain.SessionStore
	telemetry domain.TelemetrySink
	now       func() time.Time

	// notices receives failures of fire-and-forget background saves.
	// Non-blocking: a full channel drops the notice (it is still logged).
	notices chan error
}

func NewService(store domain.SessionStore, telemetry domain.TelemetrySink) *Service {
	return &Service{
		store:     store,
		telemetry: telemetry,
		now:       time.Now,
		notices:   make(chan error, 16),
	}
}

// Notices exposes the non-blocking channel background save failures are
// routed to, distinct from the awaited terminal-completion write.
func (s *Service) Notices() <-chan error {
	return s.notices
}

// Save merge-writes the record and mirrors it to telemetry. A completed
// session is terminal: further writes are rejected.
func (s *Service) Save(ctx context.Context, userID domain.UserID, id domain.SessionID, rec *domain.Session) error {
	existing, err := s.store.Get(ctx, userID, id)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("checking session %s: %w", id, err)
	}
	if existing != nil && existing.Completed() {
		return fmt.Errorf("session %s: %w", id, domain.ErrSessionCompleted)
	}

	rec.ID = id
	if rec.LastUpdated.IsZero() {
		rec.LastUpdated = s.now()
	}

	if err := s.store.Put(ctx, userID, id, rec); err != nil {
		return fmt.Errorf("saving session %s: %w", id, err)
	}

	s.mirrorTelemetry(ctx, userID, rec)
	return nil
}

// SaveAsync persists in the background. Failures go to the notice channel
// and the log; the caller's flow continues either way.
func (s *Service) SaveAsync(ctx context.Context, userID domain.UserID, id domain.SessionID, rec *domain.Session) {
	log := observability.LoggerFromContext(ctx)
	go func() {
		if err := s.Save(context.WithoutCancel(ctx), userID, id, rec); err != nil {
			log.Warn("background session save failed", "session_id", id, "error", err)
			select {
			case s.notices <- err:
			default:
			}
		}
	}()
}

// List returns every persisted session of a user.
func (s *Service) List(ctx context.Context, userID domain.UserID) ([]*domain.Session, error) {
	recs, err := s.store.GetAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return recs, nil
}

// Get returns one session.
func (s *Service) Get(ctx context.Context, userID domain.UserID, id domain.SessionID) (*domain.Session, error) {
	return s.store.Get(ctx, userID, id)
}

// AppendTelemetry feeds an arbitrary payload into the telemetry stream.
// Used by the unauthenticated path: a visitor finishing the first audit
// phase before signing in still contributes an anonymized record.
func (s *Service) AppendTelemetry(ctx context.Context, fields map[string]any) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: empty telemetry payload", domain.ErrInvalidArgument)
	}
	return s.telemetry.Append(ctx, fields)
}

// MigratePendingAudit moves a locally cached pre-auth audit result into
// the store exactly once. Re-running the migration with the same id (the
// multi-tab case) is a silent no-op.
func (s *Service) MigratePendingAudit(ctx context.Context, userID domain.UserID, id domain.SessionID, rec *domain.Session) error {
	rec.ID = id
	rec.Type = domain.ModuleMeaningAudit
	if rec.LastUpdated.IsZero() {
		rec.LastUpdated = s.now()
	}

	err := s.store.Create(ctx, userID, id, rec)
	if errors.Is(err, domain.ErrSessionExists) {
		observability.LoggerFromContext(ctx).Info("pending audit already migrated", "session_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrating pending audit %s: %w", id, err)
	}

	s.mirrorTelemetry(ctx, userID, rec)
	return nil
}

func (s *Service) mirrorTelemetry(ctx context.Context, userID domain.UserID, rec *domain.Session) {
	fields := rec.Fields()
	// The sink strips this again; setting it here keeps the payload shape
	// uniform with client-submitted telemetry, so redaction is exercised
	// on every write.
	fields["userId"] = string(userID)

	if err := s.telemetry.Append(ctx, fields); err != nil {
		observability.LoggerFromContext(ctx).Warn("telemetry append failed",
			"session_id", rec.ID, "error", err)
	}
}
