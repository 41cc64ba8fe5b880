package laddering_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/compass-journal/compass-api/internal/app/laddering"
)

func TestControllerTurnCounting(t *testing.T) {
	c := laddering.NewController(laddering.ModeGuided, 3)
	assert.Equal(t, 1, c.Turn())
	assert.False(t, c.IsFinalTurn())

	c.AppendUser("books")
	c.AppendReply("And why are books important to you?")
	assert.Equal(t, 2, c.Turn())
	assert.False(t, c.IsFinalTurn())

	c.AppendUser("learning")
	c.AppendReply("And why is learning important to you?")
	assert.Equal(t, 3, c.Turn())
	assert.True(t, c.IsFinalTurn(), "the third reply closes a 3-turn ladder")
}

func TestControllerFreeModeNeverCloses(t *testing.T) {
	c := laddering.NewController(laddering.ModeFree, 2)
	for i := 0; i < 10; i++ {
		c.AppendUser("x")
		c.AppendReply("y")
	}
	assert.False(t, c.IsFinalTurn())
}

func TestControllerEmptyInputIsNoOp(t *testing.T) {
	c := laddering.NewController(laddering.ModeGuided, 5)

	_, ok := c.AppendUser("   \n\t ")
	assert.False(t, ok)
	assert.Empty(t, c.Transcript())

	text, ok := c.AppendUser("  real input  ")
	assert.True(t, ok)
	assert.Equal(t, "real input", text)
	assert.Len(t, c.Transcript(), 1)
}

func TestControllerFallbackDoesNotAdvanceTurn(t *testing.T) {
	c := laddering.NewController(laddering.ModeGuided, 5)

	c.AppendUser("hello")
	c.AppendFallback()
	assert.Equal(t, 1, c.Turn())

	transcript := c.Transcript()
	assert.Len(t, transcript, 2)
	assert.Equal(t, laddering.FallbackReply, transcript[1].Content)
}

func TestControllerFinalizeSealsTranscript(t *testing.T) {
	c := laddering.NewController(laddering.ModeGuided, 5)
	c.AppendUser("hello")
	c.Finalize()

	_, ok := c.AppendUser("more")
	assert.False(t, ok)
	assert.True(t, c.Finalized())
	assert.Len(t, c.Transcript(), 1)
}

func TestPromptSelection(t *testing.T) {
	p := laddering.DefaultPrompts()
	assert.Equal(t, laddering.DefaultProbingPrompt, p.ForTurn(false))
	assert.Equal(t, laddering.DefaultClosingPrompt, p.ForTurn(true))
}
