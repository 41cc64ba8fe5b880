package speech

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"github.com/compass-journal/compass-api/internal/domain"
)

// GoogleEngine is the premium networked engine: Google Cloud
// Text-to-Speech with a Journey voice, returning MP3.
type GoogleEngine struct {
	client *texttospeech.Client
}

func NewGoogleEngine(ctx context.Context) (*GoogleEngine, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating text-to-speech client: %w", err)
	}
	return &GoogleEngine{client: client}, nil
}

func (e *GoogleEngine) Name() string { return "google" }

func (e *GoogleEngine) Close() error {
	return e.client.Close()
}

func (e *GoogleEngine) Synthesize(ctx context.Context, text string) (*Clip, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrInvalidArgument)
	}

	resp, err := e.client.SynthesizeSpeech(ctx, NewSynthesisRequest(text))
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	if len(resp.AudioContent) == 0 {
		return nil, fmt.Errorf("no audio content generated")
	}
	return &Clip{Audio: resp.AudioContent, ContentType: "audio/mpeg"}, nil
}

// NewSynthesisRequest builds the fixed voice/encoding request: the
// Journey voice, MP3 output.
func NewSynthesisRequest(text string) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: "en-US",
			Name:         "en-US-Journey-F",
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}
}
