package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/compass-journal/compass-api/internal/domain"
)

// VertexClient implements domain.DialogueClient on top of Vertex AI
// (Gemini). The caller supplies the full transcript and the system prompt
// variant on every call; the client holds no conversation state.
type VertexClient struct {
	client    *genai.Client
	modelName string
}

func NewVertexClient(ctx context.Context, projectID, location, modelName string) (*VertexClient, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("gcp project and location must be set for the Vertex client")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexClient{
		client:    client,
		modelName: modelName,
	}, nil
}

// Generate implements domain.DialogueClient using Vertex AI.
func (v *VertexClient) Generate(ctx context.Context, transcript []domain.ChatMessage, systemPrompt string) (string, error) {
	if len(transcript) == 0 {
		return "", fmt.Errorf("%w: transcript is required", domain.ErrInvalidArgument)
	}

	var contents []*genai.Content
	for _, m := range transcript {
		var role genai.Role = genai.RoleUser
		if m.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	temp := float32(0.7)
	topP := float32(0.9)
	outputTokens := int32(1024)

	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		TopP:            &topP,
		MaxOutputTokens: outputTokens,
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	res, err := v.client.Models.GenerateContent(ctx, v.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("vertex generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("vertex returned empty text")
	}
	return text, nil
}
