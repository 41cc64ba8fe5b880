package sessions_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/compass-journal/compass-api/internal/adapters/storage/memory"
	"github.com/compass-journal/compass-api/internal/adapters/telemetry"
	"github.com/compass-journal/compass-api/internal/app/sessions"
	"github.com/compass-journal/compass-api/internal/domain"
)

func newService(t *testing.T, store domain.SessionStore) (*sessions.Service, *memory.TelemetryStore) {
	t.Helper()

	telemetryStore := memory.NewTelemetryStore()
	sink, err := telemetry.NewSink(telemetryStore, filepath.Join(t.TempDir(), "client_id"))
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}
	return sessions.NewService(store, sink), telemetryStore
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, memory.NewSessionStore())

	rec := &domain.Session{
		Type:   domain.ModuleMeaningAudit,
		Status: domain.StatusInProgress,
		Ratings: map[string]domain.Rating{
			"Nature": {Importance: 9, Fulfillment: 3},
		},
	}
	if err := svc.Save(ctx, "user-1", "audit_1", rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := svc.Get(ctx, "user-1", "audit_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Ratings["Nature"].Importance != 9 {
		t.Fatalf("expected importance 9, got %d", got.Ratings["Nature"].Importance)
	}
	if got.LastUpdated.IsZero() {
		t.Fatal("expected LastUpdated to be stamped")
	}
}

func TestSaveMergesPartialRecords(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, memory.NewSessionStore())

	first := &domain.Session{
		Type: domain.ModuleMeaningAudit,
		Ratings: map[string]domain.Rating{
			"Nature": {Importance: 9, Fulfillment: 3},
		},
	}
	if err := svc.Save(ctx, "user-1", "audit_1", first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A later write without ratings must not erase them.
	second := &domain.Session{
		Type:   domain.ModuleMeaningAudit,
		Status: domain.StatusInProgress,
	}
	if err := svc.Save(ctx, "user-1", "audit_1", second); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := svc.Get(ctx, "user-1", "audit_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Ratings == nil || got.Ratings["Nature"].Importance != 9 {
		t.Fatalf("partial write erased ratings: %+v", got.Ratings)
	}
	if got.Status != domain.StatusInProgress {
		t.Fatalf("expected status to update, got %q", got.Status)
	}
}

func TestCompletedSessionIsTerminal(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, memory.NewSessionStore())

	now := time.Now()
	done := &domain.Session{
		Type:        domain.ModuleLadderingAI,
		Status:      domain.StatusCompleted,
		CompletedAt: now,
	}
	if err := svc.Save(ctx, "user-1", "laddering_1", done); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	err := svc.Save(ctx, "user-1", "laddering_1", &domain.Session{Type: domain.ModuleLadderingAI})
	if !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}
}

func TestSaveMirrorsRedactedTelemetry(t *testing.T) {
	ctx := context.Background()
	svc, telemetryStore := newService(t, memory.NewSessionStore())

	rec := &domain.Session{Type: domain.ModuleMeaningAudit}
	if err := svc.Save(ctx, "user-1", "audit_1", rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	records := telemetryStore.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 telemetry record, got %d", len(records))
	}

	tr := records[0]
	if tr.ClientID == "" {
		t.Fatal("expected a non-empty client id")
	}
	for _, banned := range []string{"userId", "email", "name"} {
		if _, ok := tr.Fields[banned]; ok {
			t.Fatalf("field %q leaked into telemetry", banned)
		}
	}
	if tr.Fields["type"] != string(domain.ModuleMeaningAudit) {
		t.Fatalf("expected module type in telemetry, got %v", tr.Fields["type"])
	}
}

func TestTelemetryFailureDoesNotFailSave(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	svc, telemetryStore := newService(t, store)

	telemetryStore.FailNext = errors.New("telemetry down")

	rec := &domain.Session{Type: domain.ModuleMeaningAudit}
	if err := svc.Save(ctx, "user-1", "audit_1", rec); err != nil {
		t.Fatalf("Save must succeed despite telemetry failure, got %v", err)
	}

	if _, err := svc.Get(ctx, "user-1", "audit_1"); err != nil {
		t.Fatalf("session was not persisted: %v", err)
	}
}

func TestSaveAsyncReportsFailuresOnNotices(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	svc, _ := newService(t, store)

	svc.SaveAsync(ctx, "user-1", "audit_1", &domain.Session{Type: domain.ModuleMeaningAudit})

	select {
	case err := <-svc.Notices():
		if err == nil {
			t.Fatal("expected a failure notice")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notice arrived for the failed background save")
	}
}

func TestMigratePendingAuditExactlyOnce(t *testing.T) {
	ctx := context.Background()
	svc, telemetryStore := newService(t, memory.NewSessionStore())

	now := time.Now()
	rec := func() *domain.Session {
		return &domain.Session{
			Status:      domain.StatusCompleted,
			CompletedAt: now,
			Ratings: map[string]domain.Rating{
				"Nature": {Importance: 8, Fulfillment: 2},
			},
		}
	}

	if err := svc.MigratePendingAudit(ctx, "user-1", "audit_pre", rec()); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	// The multi-tab case: a second migration with the same id is silent.
	if err := svc.MigratePendingAudit(ctx, "user-1", "audit_pre", rec()); err != nil {
		t.Fatalf("repeated migration must be a no-op, got %v", err)
	}

	got, err := svc.Get(ctx, "user-1", "audit_pre")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Type != domain.ModuleMeaningAudit {
		t.Fatalf("expected meaning_audit, got %q", got.Type)
	}
	if len(telemetryStore.Records()) != 1 {
		t.Fatalf("expected exactly one telemetry record, got %d", len(telemetryStore.Records()))
	}
}

func TestAppendTelemetryRejectsEmptyPayload(t *testing.T) {
	svc, _ := newService(t, memory.NewSessionStore())

	err := svc.AppendTelemetry(context.Background(), nil)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

// failingStore rejects every write.
type failingStore struct{}

func (s *failingStore) Put(context.Context, domain.UserID, domain.SessionID, *domain.Session) error {
	return errors.New("store unavailable")
}

func (s *failingStore) Create(context.Context, domain.UserID, domain.SessionID, *domain.Session) error {
	return errors.New("store unavailable")
}

func (s *failingStore) Get(context.Context, domain.UserID, domain.SessionID) (*domain.Session, error) {
	return nil, domain.ErrSessionNotFound
}

func (s *failingStore) GetAll(context.Context, domain.UserID) ([]*domain.Session, error) {
	return nil, errors.New("store unavailable")
}
