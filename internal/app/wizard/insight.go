package wizard

import (
	"fmt"
	"math/rand"
)

// InsightKind classifies an (importance, fulfillment) pair after both
// axes of an item are rated. The classification is deterministic; whether
// the resulting message is shown is a separate, probabilistic decision.
type InsightKind int

const (
	InsightNone InsightKind = iota
	InsightMeaningGap
	InsightHiddenMastery
	InsightCorePillar
	InsightNotAFocus
)

// Classify applies the fixed thresholds: gap = importance - fulfillment.
func Classify(importance, fulfillment int) InsightKind {
	gap := importance - fulfillment
	switch {
	case gap >= 4:
		return InsightMeaningGap
	case gap <= -3:
		return InsightHiddenMastery
	case importance >= 8 && fulfillment >= 8:
		return InsightCorePillar
	case importance <= 3 && fulfillment <= 3:
		return InsightNotAFocus
	default:
		return InsightNone
	}
}

// Message renders the advisory text for an item. Advisory only: never
// persisted as part of the rating data.
func (k InsightKind) Message(item string) string {
	switch k {
	case InsightMeaningGap:
		return fmt.Sprintf("Ah, %s is highly important to you but deeply under-fulfilled right now. This is a crucial gap we'll want to explore.", item)
	case InsightHiddenMastery:
		return fmt.Sprintf("Interesting. You feel very fulfilled in %s, despite it not being a primary priority. Sometimes this indicates hidden mastery or outgrown structures.", item)
	case InsightCorePillar:
		return fmt.Sprintf("Wonderful. %s is a core pillar holding you up right now—high importance and high fulfillment.", item)
	case InsightNotAFocus:
		return fmt.Sprintf("It seems %s simply isn't a focus area for you right now, and that's perfectly okay.", item)
	default:
		return ""
	}
}

// Sampler decides whether a qualifying insight is actually displayed.
// Kept apart from Classify so the classification alone stays unit-testable.
type Sampler struct {
	P    float64
	Rand func() float64
}

func NewSampler(p float64) Sampler {
	return Sampler{P: p, Rand: rand.Float64}
}

func (s Sampler) ShouldDisplay(kind InsightKind) bool {
	if kind == InsightNone {
		return false
	}
	return s.Rand() < s.P
}
