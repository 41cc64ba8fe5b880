package dashboard

import (
	"math"
	"strconv"

	"github.com/compass-journal/compass-api/internal/domain"
)

// coreModules must both be completed before the middle tier unlocks.
var coreModules = []domain.ModuleType{
	domain.ModuleMeaningAudit,
	domain.ModuleLadderingAI,
}

// ModuleOrder is the canonical display order of the journey.
var ModuleOrder = []domain.ModuleType{
	domain.ModuleMeaningAudit,
	domain.ModuleLadderingAI,
	domain.ModulePeakExperience,
	domain.ModuleDomainExploration,
	domain.ModuleContribution,
	domain.ModuleMTPDraft,
	domain.ModuleExperiment90Days,
}

// mtpUnlockCount is how many distinct completed module types the drafting
// tier requires.
const mtpUnlockCount = 4

// Progress is the completion badge of one module.
type Progress struct {
	Type      domain.ModuleType `json:"type"`
	Completed bool              `json:"completed"`
	Locked    bool              `json:"locked"`
	// Display is "100%", "NN%", "started" or "0%".
	Display string `json:"display"`
}

// View is the derived unlock and completion state of a user's journey.
type View struct {
	CoreModulesFinished bool       `json:"core_modules_finished"`
	CompletedCount      int        `json:"completed_count"`
	CoreLocked          bool       `json:"core_locked"`
	MTPLocked           bool       `json:"mtp_locked"`
	ExportEnabled       bool       `json:"export_enabled"`
	Modules             []Progress `json:"modules"`
}

// Aggregate derives the dashboard from the full set of a user's persisted
// sessions. Pure: no I/O, order of input does not matter.
func Aggregate(recs []*domain.Session) *View {
	completedTypes := make(map[domain.ModuleType]bool)
	for _, r := range recs {
		if r.Completed() {
			completedTypes[r.Type] = true
		}
	}

	coreFinished := true
	for _, m := range coreModules {
		if !completedTypes[m] {
			coreFinished = false
			break
		}
	}

	exportEnabled := completedTypes[domain.ModuleMeaningAudit]
	if exportEnabled {
		other := false
		for t := range completedTypes {
			if t != domain.ModuleMeaningAudit {
				other = true
				break
			}
		}
		exportEnabled = other
	}

	v := &View{
		CoreModulesFinished: coreFinished,
		CompletedCount:      len(completedTypes),
		CoreLocked:          !coreFinished,
		MTPLocked:           len(completedTypes) < mtpUnlockCount,
		ExportEnabled:       exportEnabled,
	}

	for _, m := range ModuleOrder {
		v.Modules = append(v.Modules, Progress{
			Type:      m,
			Completed: completedTypes[m],
			Locked:    v.lockedFor(m),
			Display:   displayFor(recs, m, completedTypes[m]),
		})
	}
	return v
}

func (v *View) lockedFor(m domain.ModuleType) bool {
	switch m {
	case domain.ModulePeakExperience, domain.ModuleDomainExploration, domain.ModuleContribution:
		return v.CoreLocked
	case domain.ModuleMTPDraft, domain.ModuleExperiment90Days:
		return v.MTPLocked
	default:
		return false
	}
}

// displayFor picks the badge text: completed beats any in-progress
// session; otherwise the most recently touched session of the type wins.
func displayFor(recs []*domain.Session, m domain.ModuleType, completed bool) string {
	if completed {
		return "100%"
	}

	var latest *domain.Session
	for _, r := range recs {
		if r.Type != m {
			continue
		}
		if latest == nil || r.LastUpdated.After(latest.LastUpdated) {
			latest = r
		}
	}
	if latest == nil {
		return "0%"
	}
	if latest.ProgressStep > 0 && latest.TotalSteps > 0 {
		pct := int(math.Round(100 * float64(latest.ProgressStep) / float64(latest.TotalSteps)))
		return strconv.Itoa(pct) + "%"
	}
	return "started"
}
