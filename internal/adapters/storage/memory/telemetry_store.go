package memory

import (
	"context"
	"sync"

	"github.com/compass-journal/compass-api/internal/domain"
)

// TelemetryStore collects telemetry records in memory. Write-only in
// production use; Records exists for tests.
type TelemetryStore struct {
	mu      sync.Mutex
	records []*domain.TelemetryRecord

	// FailNext makes the next append fail, for exercising the
	// non-fatal telemetry error path.
	FailNext error
}

func NewTelemetryStore() *TelemetryStore {
	return &TelemetryStore{}
}

func (s *TelemetryStore) AppendTelemetry(ctx context.Context, rec *domain.TelemetryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailNext != nil {
		err := s.FailNext
		s.FailNext = nil
		return err
	}

	s.records = append(s.records, rec)
	return nil
}

func (s *TelemetryStore) Records() []*domain.TelemetryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.TelemetryRecord, len(s.records))
	copy(out, s.records)
	return out
}
