package laddering

import (
	"strings"
	"sync"

	"github.com/compass-journal/compass-api/internal/domain"
)

// Mode selects between the turn-bounded guided flow and open-ended chat.
type Mode string

const (
	ModeGuided Mode = "guided"
	ModeFree   Mode = "free"
)

// Controller tracks one laddering conversation: the append-only
// transcript and the assistant turn counter that drives prompt selection.
// The owning service serializes access per conversation through mu, so
// one slow exchange never blocks other users' conversations.
type Controller struct {
	mu        sync.Mutex
	mode      Mode
	messages  []domain.ChatMessage
	turn      int // assistant turns produced so far, starts counting at 1
	maxTurns  int
	finalized bool
}

func NewController(mode Mode, maxTurns int) *Controller {
	return &Controller{
		mode:     mode,
		turn:     1,
		maxTurns: maxTurns,
	}
}

func (c *Controller) Mode() Mode      { return c.mode }
func (c *Controller) Turn() int       { return c.turn }
func (c *Controller) Finalized() bool { return c.finalized }

// Transcript returns a copy of the conversation so far.
func (c *Controller) Transcript() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// IsFinalTurn reports whether the next generated reply closes the ladder.
// Free mode never closes; the user ends it explicitly.
func (c *Controller) IsFinalTurn() bool {
	return c.mode == ModeGuided && c.turn >= c.maxTurns
}

// AppendUser trims and appends a user message. Empty text after trimming
// is a no-op, not an error. Returns the appended text and whether a
// message was actually appended.
func (c *Controller) AppendUser(text string) (string, bool) {
	if c.finalized {
		return "", false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	c.messages = append(c.messages, domain.ChatMessage{Role: domain.RoleUser, Content: text})
	return text, true
}

// AppendReply records a successful assistant reply and advances the turn
// counter.
func (c *Controller) AppendReply(text string) {
	c.messages = append(c.messages, domain.ChatMessage{Role: domain.RoleAssistant, Content: text})
	c.turn++
}

// AppendFallback records the degraded-state reply. The turn counter does
// not advance: no assistant turn was actually produced.
func (c *Controller) AppendFallback() {
	c.messages = append(c.messages, domain.ChatMessage{Role: domain.RoleAssistant, Content: FallbackReply})
}

// Finalize seals the transcript. No further messages may be appended.
func (c *Controller) Finalize() {
	c.finalized = true
}
