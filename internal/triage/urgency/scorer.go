// Package urgency turns a symptom set into an attention priority.
package urgency

import (
	"mental-triage/internal/models"
	"mental-triage/internal/triage/symptoms"
)

// Tags that force ALTO regardless of the weighted total.
const (
	TagSelfHarm         = "self_harm"
	TagSuicidalIdeation = "suicidal_ideation"
)

// WeightTable holds signed per-tag weights grouped by category.
// Protective tags carry negative weights.
type WeightTable struct {
	Mood     map[string]int `yaml:"mood"`
	Behavior map[string]int `yaml:"behavior"`
	Physical map[string]int `yaml:"physical"`
	Social   map[string]int `yaml:"social"`
}

// Weight returns the combined weight of a tag across categories.
func (w WeightTable) Weight(tag string) int {
	total := 0
	for _, category := range w.categories() {
		total += category[tag]
	}
	return total
}

func (w WeightTable) categories() []map[string]int {
	return []map[string]int{w.Mood, w.Behavior, w.Physical, w.Social}
}

type Thresholds struct {
	Medio int `yaml:"medio"`
}

// Assessment is the scorer output.
type Assessment struct {
	Level      models.UrgencyLevel
	Total      int
	Overridden bool
}

// Scorer applies a weight table and thresholds.
type Scorer struct {
	weights    WeightTable
	thresholds Thresholds
}

func NewScorer(weights WeightTable, thresholds Thresholds) *Scorer {
	return &Scorer{weights: weights, thresholds: thresholds}
}

func (s *Scorer) Score(set symptoms.Set) Assessment {
	return Score(set, s.weights, s.thresholds)
}

// Score sums the weights of present tags. Self harm or suicidal ideation
// yields ALTO; otherwise the total is compared against the MEDIO threshold.
func Score(set symptoms.Set, weights WeightTable, thresholds Thresholds) Assessment {
	total := 0
	for tag := range set {
		total += weights.Weight(tag)
	}

	if set.Has(TagSelfHarm) || set.Has(TagSuicidalIdeation) {
		return Assessment{Level: models.UrgencyAlto, Total: total, Overridden: true}
	}
	if total >= thresholds.Medio {
		return Assessment{Level: models.UrgencyMedio, Total: total}
	}
	return Assessment{Level: models.UrgencyBajo, Total: total}
}
