package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/compass-journal/compass-api/internal/domain"
)

// SessionStore is the in-memory SessionStore used in local mode and in
// tests. Merge semantics mirror the Firestore adapter: only fields set on
// the incoming record overwrite the stored one.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.UserID]map[domain.SessionID]*domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[domain.UserID]map[domain.SessionID]*domain.Session),
	}
}

func (s *SessionStore) Put(ctx context.Context, userID domain.UserID, id domain.SessionID, rec *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.sessions[userID]
	if byID == nil {
		byID = make(map[domain.SessionID]*domain.Session)
		s.sessions[userID] = byID
	}

	existing, ok := byID[id]
	if !ok {
		cp := *rec
		cp.ID = id
		byID[id] = &cp
		return nil
	}

	merge(existing, rec)
	return nil
}

func (s *SessionStore) Create(ctx context.Context, userID domain.UserID, id domain.SessionID, rec *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.sessions[userID]
	if byID == nil {
		byID = make(map[domain.SessionID]*domain.Session)
		s.sessions[userID] = byID
	}
	if _, ok := byID[id]; ok {
		return fmt.Errorf("session %s: %w", id, domain.ErrSessionExists)
	}

	cp := *rec
	cp.ID = id
	byID[id] = &cp
	return nil
}

func (s *SessionStore) Get(ctx context.Context, userID domain.UserID, id domain.SessionID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[userID][id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (s *SessionStore) GetAll(ctx context.Context, userID domain.UserID) ([]*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Session, 0, len(s.sessions[userID]))
	for _, rec := range s.sessions[userID] {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

// merge overwrites only the fields the incoming record actually carries,
// matching the partial-write contract of the document store.
func merge(dst, src *domain.Session) {
	if src.Type != "" {
		dst.Type = src.Type
	}
	if src.Status != "" {
		dst.Status = src.Status
	}
	if !src.LastUpdated.IsZero() {
		dst.LastUpdated = src.LastUpdated
	}
	if !src.CompletedAt.IsZero() {
		dst.CompletedAt = src.CompletedAt
	}
	if src.TotalSteps > 0 {
		dst.ProgressStep = src.ProgressStep
		dst.TotalSteps = src.TotalSteps
	}
	if src.Ratings != nil {
		dst.Ratings = src.Ratings
	}
	if src.Messages != nil {
		dst.Messages = src.Messages
	}
	if src.Draft != "" {
		dst.Draft = src.Draft
	}
	if src.Experiences != nil {
		dst.Experiences = src.Experiences
	}
	if src.Reflection != "" {
		dst.Reflection = src.Reflection
	}
	if src.Experiment != nil {
		dst.Experiment = src.Experiment
	}
}
