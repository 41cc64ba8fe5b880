package telemetry

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/compass-journal/compass-api/internal/domain"
)

// redactedKeys are stripped from every payload before dispatch. Matching
// is by literal field name.
var redactedKeys = []string{"email", "name", "userId"}

// Writer is the destination of redacted records: the Firestore
// anonymized_sessions collection in production, memory in tests.
type Writer interface {
	AppendTelemetry(ctx context.Context, rec *domain.TelemetryRecord) error
}

// Sink redacts payloads and tags them with the locally persisted
// anonymous client identifier before handing them to the writer.
type Sink struct {
	w        Writer
	clientID string
	now      func() time.Time
}

// NewSink loads or creates the anonymous client id at idPath. The id is
// generated once and reused for every subsequent record.
func NewSink(w Writer, idPath string) (*Sink, error) {
	id, err := loadOrCreateClientID(idPath)
	if err != nil {
		return nil, err
	}
	return &Sink{w: w, clientID: id, now: time.Now}, nil
}

func (s *Sink) ClientID() string { return s.clientID }

// Append implements domain.TelemetrySink.
func (s *Sink) Append(ctx context.Context, fields map[string]any) error {
	rec := &domain.TelemetryRecord{
		ClientID:   s.clientID,
		CapturedAt: s.now(),
		Fields:     Redact(fields),
	}
	if err := s.w.AppendTelemetry(ctx, rec); err != nil {
		return fmt.Errorf("appending telemetry: %w", err)
	}
	return nil
}

// Redact returns a copy of fields without the banned keys. The input map
// is left untouched.
func Redact(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	for _, k := range redactedKeys {
		delete(out, k)
	}
	return out
}

func loadOrCreateClientID(path string) (string, error) {
	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("reading telemetry client id: %w", err)
	}

	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persisting telemetry client id: %w", err)
	}
	return id, nil
}
