package wizard

import (
	"time"

	"github.com/compass-journal/compass-api/internal/domain"
)

// Phase names the two rating passes over the item list.
type Phase int

const (
	PhaseA Phase = iota
	PhaseB
)

// Engine drives a user through two passes over a fixed item list: phase A
// rates every item on the first axis, phase B on the second. The flow
// completes exactly once, when Advance is invoked on the last item of
// phase B.
type Engine struct {
	def     Definition
	phase   Phase
	index   int
	done    bool
	ratings map[string]domain.Rating
	now     func() time.Time
}

func NewEngine(def Definition) *Engine {
	ratings := make(map[string]domain.Rating, len(def.Items))
	mid := def.Midpoint()
	for _, item := range def.Items {
		ratings[item] = domain.Rating{Importance: mid, Fulfillment: mid}
	}
	return &Engine{
		def:     def,
		ratings: ratings,
		now:     time.Now,
	}
}

func (e *Engine) Definition() Definition { return e.def }
func (e *Engine) Phase() Phase           { return e.phase }
func (e *Engine) Index() int             { return e.index }
func (e *Engine) Done() bool             { return e.done }

// CurrentItem returns the item under the cursor. It is constant across
// rating changes and only moves on Advance/Retreat.
func (e *Engine) CurrentItem() string {
	return e.def.Items[e.index]
}

// Rating returns the recorded pair for an item.
func (e *Engine) Rating(item string) domain.Rating {
	return e.ratings[item]
}

// SetRating records the value for the current item on the current phase's
// axis, clamped to the definition's scale.
func (e *Engine) SetRating(value int) {
	e.setPhaseRating(e.phase, value)
}

func (e *Engine) setPhaseRating(phase Phase, value int) {
	r := e.ratings[e.CurrentItem()]
	if phase == PhaseA {
		r.Importance = e.def.Clamp(value)
	} else {
		r.Fulfillment = e.def.Clamp(value)
	}
	e.ratings[e.CurrentItem()] = r
}

// CanSkip reports whether the phase-B inherited-value shortcut applies to
// the current item: its phase-A rating fell at or below the threshold.
func (e *Engine) CanSkip() bool {
	if e.def.SkipThreshold == 0 || e.phase != PhaseB {
		return false
	}
	return e.ratings[e.CurrentItem()].Importance <= e.def.SkipThreshold
}

// Advance moves the cursor forward. A non-nil override first commits the
// given value on the current phase's axis (the "skip with inherited low
// value" shortcut). Returns true when this call completed the flow.
// Advancing a finished engine is a no-op.
func (e *Engine) Advance(override *int) bool {
	if e.done {
		return false
	}
	if override != nil {
		e.setPhaseRating(e.phase, *override)
	}

	switch {
	case e.index < len(e.def.Items)-1:
		e.index++
	case e.phase == PhaseA:
		e.phase = PhaseB
		e.index = 0
	default:
		e.done = true
		return true
	}
	return false
}

// Retreat is the exact left-inverse of Advance without an override: it
// steps back within the phase, crosses from (B,0) back to (A,N-1), and is
// a no-op at the very start.
func (e *Engine) Retreat() {
	if e.done {
		return
	}
	switch {
	case e.index > 0:
		e.index--
	case e.phase == PhaseB:
		e.phase = PhaseA
		e.index = len(e.def.Items) - 1
	}
}

// ProgressStep counts completed steps: index, plus a full pass once phase
// B has begun. A finished flow reports 2N.
func (e *Engine) ProgressStep() int {
	n := len(e.def.Items)
	if e.done {
		return 2 * n
	}
	step := e.index
	if e.phase == PhaseB {
		step += n
	}
	return step
}

// TotalSteps is 2N: every item is visited once per phase.
func (e *Engine) TotalSteps() int {
	return 2 * len(e.def.Items)
}

// ProgressFraction is monotonically non-decreasing across Advance calls.
func (e *Engine) ProgressFraction() float64 {
	return float64(e.ProgressStep()) / float64(e.TotalSteps())
}

// Snapshot emits the full rating map plus progress counters for
// persistence. Callers persist after every Advance except the final one,
// which is persisted synchronously as part of completion.
func (e *Engine) Snapshot() *domain.Session {
	ratings := make(map[string]domain.Rating, len(e.ratings))
	for k, v := range e.ratings {
		ratings[k] = v
	}

	s := &domain.Session{
		Type:         e.def.Module,
		Status:       domain.StatusInProgress,
		LastUpdated:  e.now(),
		ProgressStep: e.ProgressStep(),
		TotalSteps:   e.TotalSteps(),
		Ratings:      ratings,
	}
	if e.done {
		s.Status = domain.StatusCompleted
		s.CompletedAt = s.LastUpdated
	}
	return s
}
