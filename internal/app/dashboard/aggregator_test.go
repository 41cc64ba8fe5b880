package dashboard_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/compass-journal/compass-api/internal/app/dashboard"
	"github.com/compass-journal/compass-api/internal/domain"
)

func completed(m domain.ModuleType) *domain.Session {
	now := time.Now()
	return &domain.Session{
		Type:        m,
		Status:      domain.StatusCompleted,
		LastUpdated: now,
		CompletedAt: now,
	}
}

func moduleOf(v *dashboard.View, m domain.ModuleType) dashboard.Progress {
	for _, p := range v.Modules {
		if p.Type == m {
			return p
		}
	}
	return dashboard.Progress{}
}

func TestAggregateEmptyJourney(t *testing.T) {
	v := dashboard.Aggregate(nil)

	assert.False(t, v.CoreModulesFinished)
	assert.True(t, v.CoreLocked)
	assert.True(t, v.MTPLocked)
	assert.False(t, v.ExportEnabled)
	assert.Equal(t, 0, v.CompletedCount)

	for _, p := range v.Modules {
		assert.Equal(t, "0%", p.Display, "module %s", p.Type)
	}
	assert.False(t, moduleOf(v, domain.ModuleMeaningAudit).Locked, "core modules are never locked")
	assert.False(t, moduleOf(v, domain.ModuleLadderingAI).Locked)
}

func TestAggregateUnlockProgression(t *testing.T) {
	// Audit alone unlocks nothing.
	v := dashboard.Aggregate([]*domain.Session{completed(domain.ModuleMeaningAudit)})
	assert.True(t, v.CoreLocked)
	assert.False(t, v.ExportEnabled, "export needs the audit plus one other module")

	// Audit + laddering open the middle tier and the export.
	v = dashboard.Aggregate([]*domain.Session{
		completed(domain.ModuleMeaningAudit),
		completed(domain.ModuleLadderingAI),
	})
	assert.True(t, v.CoreModulesFinished)
	assert.False(t, v.CoreLocked)
	assert.True(t, v.ExportEnabled)
	assert.True(t, v.MTPLocked, "two types are not enough for drafting")
	assert.False(t, moduleOf(v, domain.ModulePeakExperience).Locked)
	assert.True(t, moduleOf(v, domain.ModuleMTPDraft).Locked)

	// Four distinct types open the drafting tier.
	v = dashboard.Aggregate([]*domain.Session{
		completed(domain.ModuleMeaningAudit),
		completed(domain.ModuleLadderingAI),
		completed(domain.ModulePeakExperience),
		completed(domain.ModuleContribution),
	})
	assert.False(t, v.MTPLocked)
	assert.False(t, moduleOf(v, domain.ModuleMTPDraft).Locked)
	assert.False(t, moduleOf(v, domain.ModuleExperiment90Days).Locked)
	assert.Equal(t, 4, v.CompletedCount)
}

func TestAggregateDuplicateTypeCountsOnce(t *testing.T) {
	v := dashboard.Aggregate([]*domain.Session{
		completed(domain.ModuleMeaningAudit),
		completed(domain.ModuleMeaningAudit),
		completed(domain.ModuleMeaningAudit),
	})
	assert.Equal(t, 1, v.CompletedCount)
	assert.True(t, v.MTPLocked)
}

func TestAggregateLadderingAloneDisablesExport(t *testing.T) {
	v := dashboard.Aggregate([]*domain.Session{completed(domain.ModuleLadderingAI)})
	assert.False(t, v.ExportEnabled)
}

func TestAggregateDisplayBadges(t *testing.T) {
	now := time.Now()
	recs := []*domain.Session{
		completed(domain.ModuleMeaningAudit),
		{
			Type:         domain.ModuleDomainExploration,
			Status:       domain.StatusInProgress,
			LastUpdated:  now,
			ProgressStep: 8,
			TotalSteps:   20,
		},
		{
			Type:        domain.ModuleLadderingAI,
			Status:      domain.StatusInProgress,
			LastUpdated: now,
		},
	}

	v := dashboard.Aggregate(recs)
	assert.Equal(t, "100%", moduleOf(v, domain.ModuleMeaningAudit).Display)
	assert.Equal(t, "40%", moduleOf(v, domain.ModuleDomainExploration).Display)
	assert.Equal(t, "started", moduleOf(v, domain.ModuleLadderingAI).Display)
	assert.Equal(t, "0%", moduleOf(v, domain.ModulePeakExperience).Display)
}

func TestAggregateCompletedBeatsInProgress(t *testing.T) {
	now := time.Now()
	recs := []*domain.Session{
		{
			Type:         domain.ModuleMeaningAudit,
			Status:       domain.StatusInProgress,
			LastUpdated:  now.Add(time.Hour),
			ProgressStep: 4,
			TotalSteps:   16,
		},
		completed(domain.ModuleMeaningAudit),
	}

	v := dashboard.Aggregate(recs)
	assert.Equal(t, "100%", moduleOf(v, domain.ModuleMeaningAudit).Display)
}
