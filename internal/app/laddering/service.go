package laddering

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/compass-journal/compass-api/internal/app/sessions"
	"github.com/compass-journal/compass-api/internal/domain"
	"github.com/compass-journal/compass-api/internal/observability"
)

// Service exchanges transcripts with the dialogue collaborator and owns
// the live controllers of unfinished conversations.
type Service struct {
	// mu guards the active map only; each controller carries its own lock.
	mu       sync.Mutex
	active   map[convKey]*Controller
	llm      domain.DialogueClient
	sessions *sessions.Service
	prompts  Prompts
	maxTurns int
	now      func() time.Time
}

type convKey struct {
	user domain.UserID
	id   domain.SessionID
}

func NewService(llm domain.DialogueClient, svc *sessions.Service, prompts Prompts, maxTurns int) *Service {
	if prompts.Probing == "" {
		prompts.Probing = DefaultProbingPrompt
	}
	if prompts.Closing == "" {
		prompts.Closing = DefaultClosingPrompt
	}
	if maxTurns < 1 {
		maxTurns = 5
	}
	return &Service{
		active:   make(map[convKey]*Controller),
		llm:      llm,
		sessions: svc,
		prompts:  prompts,
		maxTurns: maxTurns,
		now:      time.Now,
	}
}

// Start opens a conversation and returns its caller-visible session id.
func (s *Service) Start(ctx context.Context, userID domain.UserID, mode Mode) (domain.SessionID, error) {
	if mode != ModeGuided && mode != ModeFree {
		return "", fmt.Errorf("%w: unknown laddering mode %q", domain.ErrInvalidArgument, mode)
	}

	id := domain.SessionID(fmt.Sprintf("laddering_%d", s.now().UnixMilli()))

	s.mu.Lock()
	s.active[convKey{userID, id}] = NewController(mode, s.maxTurns)
	s.mu.Unlock()

	observability.LoggerFromContext(ctx).Info("laddering started",
		"user_id", userID, "session_id", id, "mode", mode)
	return id, nil
}

// Reply is what one exchange hands back to the caller.
type Reply struct {
	Message   domain.ChatMessage
	Turn      int
	Concluded bool // the reply above closed the ladder
	Degraded  bool // collaborator failed, fallback reply appended
}

// Send appends the user message, invokes the collaborator with the full
// transcript and the turn-selected prompt variant, and appends the reply.
// Empty input is a no-op returning a nil Reply. Collaborator failure is
// absorbed into the fixed fallback assistant message.
func (s *Service) Send(ctx context.Context, userID domain.UserID, id domain.SessionID, text string) (*Reply, error) {
	ctrl, err := s.controller(userID, id)
	if err != nil {
		return nil, err
	}

	// Per-conversation lock: held across the collaborator call so turns
	// within one conversation stay ordered, without stalling anyone else.
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if ctrl.Finalized() {
		return nil, fmt.Errorf("laddering %s: %w", id, domain.ErrSessionCompleted)
	}

	if _, ok := ctrl.AppendUser(text); !ok {
		return nil, nil
	}

	isFinal := ctrl.IsFinalTurn()
	prompt := s.prompts.ForTurn(isFinal)

	log := observability.LoggerFromContext(ctx).With(
		"session_id", id, "turn", ctrl.Turn(), "final_turn", isFinal)

	replyText, err := s.llm.Generate(ctx, ctrl.Transcript(), prompt)
	if err != nil {
		log.Error("dialogue collaborator failed", "error", err)
		ctrl.AppendFallback()
		return &Reply{
			Message:  domain.ChatMessage{Role: domain.RoleAssistant, Content: FallbackReply},
			Turn:     ctrl.Turn(),
			Degraded: true,
		}, nil
	}

	ctrl.AppendReply(replyText)
	log.Info("assistant reply appended")

	return &Reply{
		Message:   domain.ChatMessage{Role: domain.RoleAssistant, Content: replyText},
		Turn:      ctrl.Turn() - 1,
		Concluded: isFinal,
	}, nil
}

// Transcript returns the conversation so far.
func (s *Service) Transcript(ctx context.Context, userID domain.UserID, id domain.SessionID) ([]domain.ChatMessage, error) {
	ctrl, err := s.controller(userID, id)
	if err != nil {
		return nil, err
	}
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	return ctrl.Transcript(), nil
}

// Finalize persists the transcript as a terminal laddering_ai session.
// The write is awaited; on failure the controller stays live so the user
// can retry without losing the conversation.
func (s *Service) Finalize(ctx context.Context, userID domain.UserID, id domain.SessionID) error {
	ctrl, err := s.controller(userID, id)
	if err != nil {
		return err
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	transcript := ctrl.Transcript()
	if len(transcript) == 0 {
		return fmt.Errorf("%w: nothing to save", domain.ErrInvalidArgument)
	}

	now := s.now()
	rec := &domain.Session{
		Type:        domain.ModuleLadderingAI,
		Status:      domain.StatusCompleted,
		LastUpdated: now,
		CompletedAt: now,
		Messages:    transcript,
	}

	if err := s.sessions.Save(ctx, userID, id, rec); err != nil {
		return err
	}

	ctrl.Finalize()
	s.mu.Lock()
	delete(s.active, convKey{userID, id})
	s.mu.Unlock()

	observability.LoggerFromContext(ctx).Info("laddering finalized",
		"session_id", id, "messages", len(transcript))
	return nil
}

func (s *Service) controller(userID domain.UserID, id domain.SessionID) (*Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctrl, ok := s.active[convKey{userID, id}]
	if !ok {
		return nil, fmt.Errorf("laddering %s: %w", id, domain.ErrSessionNotFound)
	}
	return ctrl, nil
}
