package wizard

import "github.com/compass-journal/compass-api/internal/domain"

// Definition fixes the item list and rating scale a wizard run walks
// through. Items are ordered and fixed at compile time; every item gets a
// midpoint default before the user touches anything.
type Definition struct {
	Module domain.ModuleType
	Items  []string

	// AxisA is rated during the first pass, AxisB during the second.
	AxisA string
	AxisB string

	Min int
	Max int

	// SkipThreshold enables the phase-B shortcut: when the phase-A rating
	// for the current item is at or below it, the caller may commit an
	// inherited value and move on without user input. Zero disables it.
	SkipThreshold int
}

// Midpoint is the default value every item starts with.
func (d Definition) Midpoint() int {
	return (d.Min + d.Max) / 2
}

// Clamp forces a rating into the definition's scale. Out-of-range values
// are a caller contract violation; clamping keeps the record well-formed.
func (d Definition) Clamp(v int) int {
	if v < d.Min {
		return d.Min
	}
	if v > d.Max {
		return d.Max
	}
	return v
}

// MeaningAudit walks the 8 core life domains twice: importance, then
// fulfillment, both on [1,10].
var MeaningAudit = Definition{
	Module: domain.ModuleMeaningAudit,
	Items: []string{
		"Work & Vocation",
		"Relationships",
		"Creative Life",
		"Contemplative Life",
		"Body & Health",
		"Community Contribution",
		"Nature",
		"Transcendent / Unknown",
	},
	AxisA:         "importance",
	AxisB:         "fulfillment",
	Min:           1,
	Max:           10,
	SkipThreshold: 4,
}

// DomainExploration walks the 10 post-scarcity domains on [1,5]:
// aliveness first, neglect second.
var DomainExploration = Definition{
	Module: domain.ModuleDomainExploration,
	Items: []string{
		"Creative Expression",
		"Wisdom Transmission",
		"Ecological Stewardship",
		"Care & Healing",
		"Community Weaving",
		"Systems Engineering",
		"Scientific Discovery",
		"Philosophical Inquiry",
		"Embodied Performance",
		"Technological Innovation",
	},
	AxisA: "alive",
	AxisB: "neglected",
	Min:   1,
	Max:   5,
}
