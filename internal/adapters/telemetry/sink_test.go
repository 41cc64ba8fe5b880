package telemetry_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compass-journal/compass-api/internal/adapters/storage/memory"
	"github.com/compass-journal/compass-api/internal/adapters/telemetry"
)

func TestRedactStripsBannedKeys(t *testing.T) {
	in := map[string]any{
		"email":  "someone@example.com",
		"name":   "Someone",
		"userId": "uid-1",
		"type":   "meaning_audit",
		"status": "completed",
	}

	out := telemetry.Redact(in)

	assert.NotContains(t, out, "email")
	assert.NotContains(t, out, "name")
	assert.NotContains(t, out, "userId")
	assert.Equal(t, "meaning_audit", out["type"])

	// The input map is left untouched.
	assert.Contains(t, in, "email")
}

func TestSinkClientIDIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client_id")
	store := memory.NewTelemetryStore()

	first, err := telemetry.NewSink(store, path)
	require.NoError(t, err)
	require.NoError(t, uuid.Validate(first.ClientID()))

	// A second sink at the same path reuses the persisted id.
	second, err := telemetry.NewSink(store, path)
	require.NoError(t, err)
	assert.Equal(t, first.ClientID(), second.ClientID())
}

func TestSinkAppendTagsAndRedacts(t *testing.T) {
	store := memory.NewTelemetryStore()
	sink, err := telemetry.NewSink(store, filepath.Join(t.TempDir(), "client_id"))
	require.NoError(t, err)

	err = sink.Append(context.Background(), map[string]any{
		"userId": "uid-1",
		"type":   "laddering_ai",
	})
	require.NoError(t, err)

	records := store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, sink.ClientID(), records[0].ClientID)
	assert.False(t, records[0].CapturedAt.IsZero())
	assert.NotContains(t, records[0].Fields, "userId")
	assert.Equal(t, "laddering_ai", records[0].Fields["type"])
}
