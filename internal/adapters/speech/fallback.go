package speech

import (
	"context"

	"github.com/compass-journal/compass-api/internal/observability"
)

// FallbackEngine tries the primary engine and falls back to the
// secondary transparently when it fails, instead of failing the whole
// operation. Stateless: the clip of each call carries the MIME type of
// whichever engine produced it, so concurrent calls never mislabel
// each other's audio.
type FallbackEngine struct {
	primary   Engine
	secondary Engine
}

func NewFallbackEngine(primary, secondary Engine) *FallbackEngine {
	return &FallbackEngine{primary: primary, secondary: secondary}
}

func (e *FallbackEngine) Name() string { return e.primary.Name() + "+" + e.secondary.Name() }

func (e *FallbackEngine) Synthesize(ctx context.Context, text string) (*Clip, error) {
	clip, err := e.primary.Synthesize(ctx, text)
	if err == nil {
		return clip, nil
	}

	observability.LoggerFromContext(ctx).Warn("speech engine failed, falling back",
		"engine", e.primary.Name(), "fallback", e.secondary.Name(), "error", err)

	return e.secondary.Synthesize(ctx, text)
}
