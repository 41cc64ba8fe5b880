package reflection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/compass-journal/compass-api/internal/app/sessions"
	"github.com/compass-journal/compass-api/internal/domain"
)

// Service handles the single-shot free-text modules: peak experiences,
// contribution calibration and the 90-day experiment. Each completes in
// one write; there is no step structure to track.
type Service struct {
	sessions *sessions.Service
	now      func() time.Time
}

func NewService(svc *sessions.Service) *Service {
	return &Service{
		sessions: svc,
		now:      time.Now,
	}
}

// CompletePeakExperience saves the three peak experience answers as a
// completed session. All three prompts must be answered.
func (s *Service) CompletePeakExperience(ctx context.Context, userID domain.UserID, exp domain.Experiences) (domain.SessionID, error) {
	if strings.TrimSpace(exp.Alive) == "" ||
		strings.TrimSpace(exp.Useful) == "" ||
		strings.TrimSpace(exp.Yourself) == "" {
		return "", fmt.Errorf("%w: all three experiences are required", domain.ErrInvalidArgument)
	}

	id := s.newID("peak")
	rec := s.completedRecord(domain.ModulePeakExperience)
	rec.Experiences = &exp

	if err := s.sessions.Save(ctx, userID, id, rec); err != nil {
		return "", err
	}
	return id, nil
}

// CompleteContribution saves the contribution reflection.
func (s *Service) CompleteContribution(ctx context.Context, userID domain.UserID, reflection string) (domain.SessionID, error) {
	if strings.TrimSpace(reflection) == "" {
		return "", fmt.Errorf("%w: reflection text is required", domain.ErrInvalidArgument)
	}

	id := s.newID("contribution")
	rec := s.completedRecord(domain.ModuleContribution)
	rec.Reflection = reflection

	if err := s.sessions.Save(ctx, userID, id, rec); err != nil {
		return "", err
	}
	return id, nil
}

// CompleteExperiment saves the 90-day experiment design. Only the action
// itself is mandatory; dates and the accountability person are optional.
func (s *Service) CompleteExperiment(ctx context.Context, userID domain.UserID, exp domain.Experiment) (domain.SessionID, error) {
	if strings.TrimSpace(exp.Action) == "" {
		return "", fmt.Errorf("%w: the experiment action is required", domain.ErrInvalidArgument)
	}

	id := s.newID("experiment")
	rec := s.completedRecord(domain.ModuleExperiment90Days)
	rec.Experiment = &exp

	if err := s.sessions.Save(ctx, userID, id, rec); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) newID(prefix string) domain.SessionID {
	return domain.SessionID(fmt.Sprintf("%s_%d", prefix, s.now().UnixMilli()))
}

func (s *Service) completedRecord(m domain.ModuleType) *domain.Session {
	now := s.now()
	return &domain.Session{
		Type:        m,
		Status:      domain.StatusCompleted,
		LastUpdated: now,
		CompletedAt: now,
	}
}
