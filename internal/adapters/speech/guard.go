package speech

import (
	"context"
	"errors"
	"sync"
)

// ErrPlaybackBusy is returned when playback is requested while another
// playback holds the device.
var ErrPlaybackBusy = errors.New("speech playback already in progress")

// Capturer is the speech-to-text capture device.
type Capturer interface {
	Start() error
	Stop() error
	Capturing() bool
}

// PlaybackGuard is the two-state (idle/busy) lock between the capture and
// playback devices. Capture is suspended before playback starts and
// resumed, if it was running, after playback ends — on every exit path,
// including playback errors. Capture and playback are never active at the
// same time, so the system never transcribes its own voice output.
type PlaybackGuard struct {
	mu      sync.Mutex
	busy    bool
	capture Capturer

	// wasCapturing remembers whether capture must be resumed on release.
	wasCapturing bool
}

func NewPlaybackGuard(capture Capturer) *PlaybackGuard {
	return &PlaybackGuard{capture: capture}
}

// Acquire moves the guard to busy and suspends capture. Fails with
// ErrPlaybackBusy if another playback holds the guard.
func (g *PlaybackGuard) Acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.busy {
		return ErrPlaybackBusy
	}
	g.busy = true

	g.wasCapturing = g.capture != nil && g.capture.Capturing()
	if g.wasCapturing {
		if err := g.capture.Stop(); err != nil {
			g.busy = false
			return err
		}
	}
	return nil
}

// Release returns the guard to idle and resumes capture if it was
// running when Acquire suspended it.
func (g *PlaybackGuard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.busy {
		return
	}
	g.busy = false

	if g.wasCapturing && g.capture != nil {
		// Best effort: a capture device that refuses to restart leaves
		// the user toggling it manually.
		_ = g.capture.Start()
	}
	g.wasCapturing = false
}

// Busy reports whether playback currently holds the device.
func (g *PlaybackGuard) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}

// Speak synthesizes and plays text under the guard. The play callback
// receives the synthesized clip; release happens on all exit paths.
func (g *PlaybackGuard) Speak(ctx context.Context, engine Engine, text string, play func(*Clip) error) error {
	if err := g.Acquire(); err != nil {
		return err
	}
	defer g.Release()

	clip, err := engine.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	return play(clip)
}
