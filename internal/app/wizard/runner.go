package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/compass-journal/compass-api/internal/app/sessions"
	"github.com/compass-journal/compass-api/internal/domain"
	"github.com/compass-journal/compass-api/internal/observability"
)

// Runner holds the live engines of in-flight wizard runs, keyed by user
// and session id, and wires their snapshots into persistence: every
// intermediate advance saves in the background, the final advance saves
// synchronously and blocks completion on the result.
type Runner struct {
	mu       sync.Mutex
	runs     map[runKey]*Engine
	sessions *sessions.Service
	sampler  Sampler
	now      func() time.Time
}

type runKey struct {
	user domain.UserID
	id   domain.SessionID
}

func NewRunner(svc *sessions.Service, sampler Sampler) *Runner {
	return &Runner{
		runs:     make(map[runKey]*Engine),
		sessions: svc,
		sampler:  sampler,
		now:      time.Now,
	}
}

// State is the view of a run handed back after every operation.
type State struct {
	SessionID    domain.SessionID
	Item         string
	Phase        Phase
	Index        int
	ProgressStep int
	TotalSteps   int
	Ratings      map[string]domain.Rating
	CanSkip      bool
	Completed    bool

	// Insight is set when the advance that produced this state finished
	// both axes of an item and the sampler elected to show the message.
	Insight string
}

// Start creates a fresh run. Session ids are time-based and never reused,
// matching the persistence contract's caller-generated id rule.
func (r *Runner) Start(ctx context.Context, userID domain.UserID, def Definition) (*State, error) {
	id := domain.SessionID(fmt.Sprintf("%s_%d", idPrefix(def.Module), r.now().UnixMilli()))

	eng := NewEngine(def)

	r.mu.Lock()
	r.runs[runKey{userID, id}] = eng
	st := r.state(id, eng, "")
	r.mu.Unlock()

	observability.LoggerFromContext(ctx).Info("wizard run started",
		"user_id", userID, "session_id", id, "module", def.Module)

	return st, nil
}

// Rate records a value for the current item on the current phase's axis.
func (r *Runner) Rate(ctx context.Context, userID domain.UserID, id domain.SessionID, value int) (*State, error) {
	eng, err := r.engine(userID, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	eng.SetRating(value)
	return r.state(id, eng, ""), nil
}

// Advance moves the run forward and persists the snapshot. Intermediate
// saves are fire-and-forget; the completing save is awaited and its
// failure keeps the run alive so the user can retry without losing work.
func (r *Runner) Advance(ctx context.Context, userID domain.UserID, id domain.SessionID, override *int) (*State, error) {
	eng, err := r.engine(userID, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()

	// An insight can only follow the completion of an item's second axis,
	// and never for the last item (the results view replaces it there).
	var insight string
	if eng.Phase() == PhaseB && eng.Index() < len(eng.Definition().Items)-1 && eng.Definition().SkipThreshold > 0 {
		item := eng.CurrentItem()
		if override != nil {
			eng.SetRating(*override)
			override = nil
		}
		rating := eng.Rating(item)
		kind := Classify(rating.Importance, rating.Fulfillment)
		if r.sampler.ShouldDisplay(kind) {
			insight = kind.Message(item)
		}
	}

	eng.Advance(override)
	snap := eng.Snapshot()
	done := eng.Done()
	r.mu.Unlock()

	// done also covers the retry of a failed completing save: the engine
	// stays terminal and the save path stays synchronous.
	if done {
		if err := r.sessions.Save(ctx, userID, id, snap); err != nil {
			return nil, err
		}
		r.mu.Lock()
		delete(r.runs, runKey{userID, id})
		r.mu.Unlock()
	} else {
		r.sessions.SaveAsync(ctx, userID, id, snap)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state(id, eng, insight), nil
}

// Retreat steps the run back without touching persistence.
func (r *Runner) Retreat(ctx context.Context, userID domain.UserID, id domain.SessionID) (*State, error) {
	eng, err := r.engine(userID, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	eng.Retreat()
	return r.state(id, eng, ""), nil
}

// Get returns the current state of a live run.
func (r *Runner) Get(ctx context.Context, userID domain.UserID, id domain.SessionID) (*State, error) {
	eng, err := r.engine(userID, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state(id, eng, ""), nil
}

func (r *Runner) engine(userID domain.UserID, id domain.SessionID) (*Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	eng, ok := r.runs[runKey{userID, id}]
	if !ok {
		return nil, fmt.Errorf("wizard run %s: %w", id, domain.ErrSessionNotFound)
	}
	return eng, nil
}

func (r *Runner) state(id domain.SessionID, eng *Engine, insight string) *State {
	ratings := make(map[string]domain.Rating, len(eng.Definition().Items))
	for _, item := range eng.Definition().Items {
		ratings[item] = eng.Rating(item)
	}

	st := &State{
		SessionID:    id,
		Phase:        eng.Phase(),
		Index:        eng.Index(),
		ProgressStep: eng.ProgressStep(),
		TotalSteps:   eng.TotalSteps(),
		Ratings:      ratings,
		Completed:    eng.Done(),
		Insight:      insight,
	}
	if !eng.Done() {
		st.Item = eng.CurrentItem()
		st.CanSkip = eng.CanSkip()
	}
	return st
}

func idPrefix(m domain.ModuleType) string {
	switch m {
	case domain.ModuleMeaningAudit:
		return "audit"
	case domain.ModuleDomainExploration:
		return "domainexp"
	default:
		return string(m)
	}
}
