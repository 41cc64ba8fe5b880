package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/compass-journal/compass-api/internal/domain"
)

// Store persists sessions under users/{uid}/sessions/{id} and telemetry
// into the top-level anonymized_sessions collection, mirroring the
// original document layout. One client implements both the SessionStore
// interface and the telemetry writer.
type Store struct {
	client *firestore.Client
}

func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) userDoc(userID domain.UserID) *firestore.DocumentRef {
	return s.client.Collection("users").Doc(string(userID))
}

func (s *Store) sessionDoc(userID domain.UserID, id domain.SessionID) *firestore.DocumentRef {
	return s.userDoc(userID).Collection("sessions").Doc(string(id))
}

func (s *Store) telemetryCol() *firestore.CollectionRef {
	return s.client.Collection("anonymized_sessions")
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type sessionDoc struct {
	Type         string               `firestore:"type"`
	Status       string               `firestore:"status"`
	LastUpdated  time.Time            `firestore:"lastUpdated"`
	CompletedAt  time.Time            `firestore:"completedAt"`
	ProgressStep int                  `firestore:"progressStep"`
	TotalSteps   int                  `firestore:"totalSteps"`
	Ratings      map[string]ratingDoc `firestore:"ratings"`
	Messages     []messageDoc         `firestore:"messages"`
	Draft        string               `firestore:"draft"`
	Experiences  *experiencesDoc      `firestore:"experiences"`
	Reflection   string               `firestore:"reflection"`
	Experiment   *experimentDoc       `firestore:"experiment"`
}

type ratingDoc struct {
	Importance  int `firestore:"importance"`
	Fulfillment int `firestore:"fulfillment"`
}

type messageDoc struct {
	Role    string `firestore:"role"`
	Content string `firestore:"content"`
}

type experiencesDoc struct {
	Alive    string `firestore:"alive"`
	Useful   string `firestore:"useful"`
	Yourself string `firestore:"yourself"`
}

type experimentDoc struct {
	Action               string `firestore:"action"`
	StartDate            string `firestore:"startDate"`
	CheckInDate          string `firestore:"checkInDate"`
	AccountabilityPerson string `firestore:"accountabilityPerson"`
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

// Put is a merge write: only the fields the record carries overwrite the
// stored document.
func (s *Store) Put(ctx context.Context, userID domain.UserID, id domain.SessionID, rec *domain.Session) error {
	_, err := s.sessionDoc(userID, id).Set(ctx, rec.Fields(), firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("firestore Put: %w", err)
	}
	return nil
}

// Create fails when the document already exists, which gives the
// migration path its exactly-once guarantee.
func (s *Store) Create(ctx context.Context, userID domain.UserID, id domain.SessionID, rec *domain.Session) error {
	_, err := s.sessionDoc(userID, id).Create(ctx, rec.Fields())
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("session %s: %w", id, domain.ErrSessionExists)
		}
		return fmt.Errorf("firestore Create: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, userID domain.UserID, id domain.SessionID) (*domain.Session, error) {
	snap, err := s.sessionDoc(userID, id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("firestore Get: %w", err)
	}

	return decodeSession(id, snap)
}

func (s *Store) GetAll(ctx context.Context, userID domain.UserID) ([]*domain.Session, error) {
	iter := s.userDoc(userID).Collection("sessions").Documents(ctx)
	defer iter.Stop()

	var out []*domain.Session
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore GetAll: %w", err)
		}

		rec, err := decodeSession(domain.SessionID(snap.Ref.ID), snap)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeSession(id domain.SessionID, snap *firestore.DocumentSnapshot) (*domain.Session, error) {
	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode sessionDoc: %w", err)
	}

	rec := &domain.Session{
		ID:           id,
		Type:         domain.ModuleType(doc.Type),
		Status:       domain.SessionStatus(doc.Status),
		LastUpdated:  doc.LastUpdated,
		CompletedAt:  doc.CompletedAt,
		ProgressStep: doc.ProgressStep,
		TotalSteps:   doc.TotalSteps,
		Draft:        doc.Draft,
		Reflection:   doc.Reflection,
	}

	if doc.Ratings != nil {
		rec.Ratings = make(map[string]domain.Rating, len(doc.Ratings))
		for k, v := range doc.Ratings {
			rec.Ratings[k] = domain.Rating{Importance: v.Importance, Fulfillment: v.Fulfillment}
		}
	}
	if doc.Messages != nil {
		rec.Messages = make([]domain.ChatMessage, 0, len(doc.Messages))
		for _, m := range doc.Messages {
			rec.Messages = append(rec.Messages, domain.ChatMessage{
				Role:    domain.Role(m.Role),
				Content: m.Content,
			})
		}
	}
	if doc.Experiences != nil {
		rec.Experiences = &domain.Experiences{
			Alive:    doc.Experiences.Alive,
			Useful:   doc.Experiences.Useful,
			Yourself: doc.Experiences.Yourself,
		}
	}
	if doc.Experiment != nil {
		rec.Experiment = &domain.Experiment{
			Action:               doc.Experiment.Action,
			StartDate:            doc.Experiment.StartDate,
			CheckInDate:          doc.Experiment.CheckInDate,
			AccountabilityPerson: doc.Experiment.AccountabilityPerson,
		}
	}
	return rec, nil
}

// ─────────────────────────────────────────
// Telemetry writer implementation
// ─────────────────────────────────────────

func (s *Store) AppendTelemetry(ctx context.Context, rec *domain.TelemetryRecord) error {
	fields := make(map[string]any, len(rec.Fields)+2)
	for k, v := range rec.Fields {
		fields[k] = v
	}
	fields["clientTelemetryId"] = rec.ClientID
	fields["capturedAt"] = rec.CapturedAt

	_, _, err := s.telemetryCol().Add(ctx, fields)
	if err != nil {
		return fmt.Errorf("firestore AppendTelemetry: %w", err)
	}
	return nil
}
