package laddering_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compass-journal/compass-api/internal/adapters/llm"
	"github.com/compass-journal/compass-api/internal/adapters/storage/memory"
	"github.com/compass-journal/compass-api/internal/adapters/telemetry"
	"github.com/compass-journal/compass-api/internal/app/laddering"
	"github.com/compass-journal/compass-api/internal/app/sessions"
	"github.com/compass-journal/compass-api/internal/domain"
)

func newFixture(t *testing.T, maxTurns int) (*laddering.Service, *llm.MockLLM, *sessions.Service) {
	t.Helper()

	mock := llm.NewMockLLM()
	store := memory.NewSessionStore()
	sink, err := telemetry.NewSink(memory.NewTelemetryStore(), filepath.Join(t.TempDir(), "client_id"))
	require.NoError(t, err)

	sessionSvc := sessions.NewService(store, sink)
	svc := laddering.NewService(mock, sessionSvc, laddering.DefaultPrompts(), maxTurns)
	return svc, mock, sessionSvc
}

func TestClosingPromptOnFinalTurn(t *testing.T) {
	ctx := context.Background()
	svc, mock, _ := newFixture(t, 3)

	id, err := svc.Start(ctx, "user-1", laddering.ModeGuided)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(id), "laddering_"))

	inputs := []string{"freedom", "autonomy", "self-respect"}
	var last *laddering.Reply
	for _, in := range inputs {
		last, err = svc.Send(ctx, "user-1", id, in)
		require.NoError(t, err)
		require.NotNil(t, last)
	}

	prompts := mock.Prompts()
	require.Len(t, prompts, 3)
	assert.Equal(t, laddering.DefaultProbingPrompt, prompts[0])
	assert.Equal(t, laddering.DefaultProbingPrompt, prompts[1])
	assert.Equal(t, laddering.DefaultClosingPrompt, prompts[2])
	assert.True(t, last.Concluded)
}

func TestFreeModeNeverSendsClosingPrompt(t *testing.T) {
	ctx := context.Background()
	svc, mock, _ := newFixture(t, 2)

	id, err := svc.Start(ctx, "user-1", laddering.ModeFree)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		reply, err := svc.Send(ctx, "user-1", id, "more")
		require.NoError(t, err)
		assert.False(t, reply.Concluded)
	}
	for _, p := range mock.Prompts() {
		assert.Equal(t, laddering.DefaultProbingPrompt, p)
	}
}

func TestEmptyInputIsIgnored(t *testing.T) {
	ctx := context.Background()
	svc, mock, _ := newFixture(t, 5)

	id, err := svc.Start(ctx, "user-1", laddering.ModeGuided)
	require.NoError(t, err)

	reply, err := svc.Send(ctx, "user-1", id, "   ")
	require.NoError(t, err)
	assert.Nil(t, reply)
	assert.Empty(t, mock.Prompts(), "the collaborator must not be invoked")
}

func TestCollaboratorFailureDegrades(t *testing.T) {
	ctx := context.Background()
	svc, mock, _ := newFixture(t, 5)

	id, err := svc.Start(ctx, "user-1", laddering.ModeGuided)
	require.NoError(t, err)

	mock.Err = errors.New("model unavailable")
	reply, err := svc.Send(ctx, "user-1", id, "freedom")
	require.NoError(t, err, "collaborator failure is absorbed, not surfaced")
	assert.True(t, reply.Degraded)
	assert.Equal(t, laddering.FallbackReply, reply.Message.Content)
	assert.Equal(t, 1, reply.Turn, "a fallback is not an assistant turn")

	// The next successful exchange still counts as turn 1.
	mock.Err = nil
	reply, err = svc.Send(ctx, "user-1", id, "freedom again")
	require.NoError(t, err)
	assert.False(t, reply.Degraded)
	assert.Equal(t, 1, reply.Turn)
}

func TestFinalizePersistsTerminalSession(t *testing.T) {
	ctx := context.Background()
	svc, _, sessionSvc := newFixture(t, 5)

	id, err := svc.Start(ctx, "user-1", laddering.ModeGuided)
	require.NoError(t, err)

	_, err = svc.Send(ctx, "user-1", id, "freedom")
	require.NoError(t, err)

	require.NoError(t, svc.Finalize(ctx, "user-1", id))

	rec, err := sessionSvc.Get(ctx, "user-1", id)
	require.NoError(t, err)
	assert.Equal(t, domain.ModuleLadderingAI, rec.Type)
	assert.True(t, rec.Completed())
	assert.Len(t, rec.Messages, 2)

	// The conversation is gone after a successful finalize.
	_, err = svc.Send(ctx, "user-1", id, "more")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestFinalizeEmptyConversation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newFixture(t, 5)

	id, err := svc.Start(ctx, "user-1", laddering.ModeGuided)
	require.NoError(t, err)

	err = svc.Finalize(ctx, "user-1", id)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestStartRejectsUnknownMode(t *testing.T) {
	svc, _, _ := newFixture(t, 5)
	_, err := svc.Start(context.Background(), "user-1", laddering.Mode("telepathy"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

// gatedLLM blocks inside Generate until released, and signals entry, so
// a test can observe two conversations inside the collaborator at once.
type gatedLLM struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedLLM) Generate(ctx context.Context, transcript []domain.ChatMessage, systemPrompt string) (string, error) {
	g.entered <- struct{}{}
	<-g.release
	return "reply", nil
}

func TestConversationsDoNotBlockEachOther(t *testing.T) {
	ctx := context.Background()

	llmClient := &gatedLLM{entered: make(chan struct{}, 2), release: make(chan struct{})}
	store := memory.NewSessionStore()
	sink, err := telemetry.NewSink(memory.NewTelemetryStore(), filepath.Join(t.TempDir(), "client_id"))
	require.NoError(t, err)
	svc := laddering.NewService(llmClient, sessions.NewService(store, sink), laddering.DefaultPrompts(), 5)

	idA, err := svc.Start(ctx, "user-a", laddering.ModeGuided)
	require.NoError(t, err)
	idB, err := svc.Start(ctx, "user-b", laddering.ModeGuided)
	require.NoError(t, err)

	done := make(chan error, 2)
	go func() {
		_, err := svc.Send(ctx, "user-a", idA, "freedom")
		done <- err
	}()
	go func() {
		_, err := svc.Send(ctx, "user-b", idB, "connection")
		done <- err
	}()

	// Both sends must reach the collaborator while neither has returned.
	for i := 0; i < 2; i++ {
		select {
		case <-llmClient.entered:
		case <-time.After(2 * time.Second):
			t.Fatal("second conversation blocked behind the first collaborator call")
		}
	}
	close(llmClient.release)

	for i := 0; i < 2; i++ {
		require.NoError(t, <-done)
	}
}
