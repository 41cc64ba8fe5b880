package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/compass-journal/compass-api/internal/domain"
)

// MockLLM is the development and test stand-in for the dialogue
// collaborator. It records every call so tests can assert on the prompt
// variant that was selected.
type MockLLM struct {
	mu      sync.Mutex
	prompts []string

	// Reply overrides the canned echo response when set.
	Reply string
	// Err makes Generate fail, for exercising the degraded path.
	Err error
}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) Generate(ctx context.Context, transcript []domain.ChatMessage, systemPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, systemPrompt)

	if m.Err != nil {
		return "", m.Err
	}
	if m.Reply != "" {
		return m.Reply, nil
	}

	last := transcript[len(transcript)-1].Content
	return fmt.Sprintf("And why is %q important to you?", last), nil
}

// Prompts returns the system prompts passed to Generate, in call order.
func (m *MockLLM) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
