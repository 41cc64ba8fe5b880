package speech

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/compass-journal/compass-api/internal/domain"
)

const (
	localSampleRate = 16000
	// Pacing used to size the clip: roughly conversational speech.
	localWordsPerMinute = 150
)

// LocalEngine is the offline fallback: it emits a silent WAV clip sized
// to the estimated speaking duration of the text. The client keeps its
// playback timing (and the capture/playback interlock keeps working)
// even when the networked engine is unreachable.
type LocalEngine struct{}

func NewLocalEngine() *LocalEngine {
	return &LocalEngine{}
}

func (e *LocalEngine) Name() string { return "local" }

func (e *LocalEngine) Synthesize(ctx context.Context, text string) (*Clip, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrInvalidArgument)
	}

	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	seconds := float64(words) * 60.0 / localWordsPerMinute
	samples := int(seconds * localSampleRate)
	if samples < localSampleRate/4 {
		samples = localSampleRate / 4
	}

	return &Clip{Audio: silentWAV(samples), ContentType: "audio/wav"}, nil
}

// silentWAV builds a minimal 16-bit mono PCM WAV of n zero samples.
func silentWAV(n int) []byte {
	dataLen := n * 2
	buf := make([]byte, 0, 44+dataLen)

	le := binary.LittleEndian
	u32 := func(v uint32) []byte { b := make([]byte, 4); le.PutUint32(b, v); return b }
	u16 := func(v uint16) []byte { b := make([]byte, 2); le.PutUint16(b, v); return b }

	buf = append(buf, []byte("RIFF")...)
	buf = append(buf, u32(uint32(36+dataLen))...)
	buf = append(buf, []byte("WAVE")...)
	buf = append(buf, []byte("fmt ")...)
	buf = append(buf, u32(16)...)
	buf = append(buf, u16(1)...) // PCM
	buf = append(buf, u16(1)...) // mono
	buf = append(buf, u32(localSampleRate)...)
	buf = append(buf, u32(localSampleRate*2)...) // byte rate
	buf = append(buf, u16(2)...)                 // block align
	buf = append(buf, u16(16)...)                // bits per sample
	buf = append(buf, []byte("data")...)
	buf = append(buf, u32(uint32(dataLen))...)
	buf = append(buf, make([]byte, dataLen)...)
	return buf
}
