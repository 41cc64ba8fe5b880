package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/compass-journal/compass-api/internal/app/sessions"
	"github.com/compass-journal/compass-api/internal/domain"
	"github.com/compass-journal/compass-api/internal/observability"
)

const mtpPrompt = `Based on the following user data gathered from meaning-making exercises, synthesise a single, coherent Massive Transformational Purpose (MTP) draft for them. The MTP should be ambitious, emotionally resonant, and grounded in their peak experiences and contributions. Do not include introductory fluff, just provide the drafted MTP statement and a short paragraph explaining why it fits them.

[SYSTEM NOTE: If history grows extensive, older sessions are pre-summarized below to minimize token cost while retaining crucial backstory.]

User Data: `

// Service produces the MTP draft: one synthesis call over everything the
// user has persisted so far. Not incremental; each draft is a fresh pass.
type Service struct {
	llm      domain.DialogueClient
	sessions *sessions.Service
	now      func() time.Time
}

func NewService(llm domain.DialogueClient, svc *sessions.Service) *Service {
	return &Service{
		llm:      llm,
		sessions: svc,
		now:      time.Now,
	}
}

// Draft gathers the user's sessions and asks the collaborator for an MTP
// statement. An empty history is a client error: the model needs context.
func (s *Service) Draft(ctx context.Context, userID domain.UserID) (string, error) {
	recs, err := s.sessions.List(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		return "", fmt.Errorf("%w: no completed modules to synthesize from", domain.ErrInvalidArgument)
	}

	contextData := make([]map[string]any, 0, len(recs))
	for _, r := range recs {
		contextData = append(contextData, r.Fields())
	}
	payload, err := json.Marshal(contextData)
	if err != nil {
		return "", fmt.Errorf("encoding synthesis context: %w", err)
	}

	transcript := []domain.ChatMessage{
		{Role: domain.RoleUser, Content: mtpPrompt + string(payload)},
	}

	draft, err := s.llm.Generate(ctx, transcript, "")
	if err != nil {
		return "", fmt.Errorf("%w: mtp synthesis: %v", domain.ErrCollaborator, err)
	}

	observability.LoggerFromContext(ctx).Info("mtp draft synthesized",
		"user_id", userID, "context_sessions", len(recs))
	return draft, nil
}

// SaveDraft persists the (possibly user-edited) draft as a completed
// mtp_draft session.
func (s *Service) SaveDraft(ctx context.Context, userID domain.UserID, draft string) (domain.SessionID, error) {
	if draft == "" {
		return "", fmt.Errorf("%w: empty draft", domain.ErrInvalidArgument)
	}

	now := s.now()
	id := domain.SessionID(fmt.Sprintf("mtp_%d", now.UnixMilli()))
	rec := &domain.Session{
		Type:        domain.ModuleMTPDraft,
		Status:      domain.StatusCompleted,
		LastUpdated: now,
		CompletedAt: now,
		Draft:       draft,
	}

	if err := s.sessions.Save(ctx, userID, id, rec); err != nil {
		return "", err
	}
	return id, nil
}
