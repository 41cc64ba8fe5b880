package speech

import "context"

// Clip is one synthesized utterance. The MIME type travels with the
// bytes: a fallback chain may serve different encodings call by call.
type Clip struct {
	Audio       []byte
	ContentType string
}

// Engine converts assistant text to playable audio.
type Engine interface {
	Synthesize(ctx context.Context, text string) (*Clip, error)
	Name() string
}
