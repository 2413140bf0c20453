// Package diagnosis matches symptom sets against named criteria.
package diagnosis

import (
	"fmt"

	apperrors "mental-triage/internal/common/errors"
	"mental-triage/internal/triage/symptoms"
)

// Criteria defines one candidate condition.
type Criteria struct {
	Condition           string   `yaml:"condition"`
	RequiredSymptoms    []string `yaml:"required_symptoms"`
	AdditionalSymptoms  []string `yaml:"additional_symptoms"`
	MinimumSymptoms     int      `yaml:"minimum_symptoms"`
	MinimumDurationDays int      `yaml:"minimum_duration_days"`
}

// Union returns required followed by additional symptoms, deduplicated.
func (c Criteria) Union() []string {
	seen := make(map[string]bool, len(c.RequiredSymptoms)+len(c.AdditionalSymptoms))
	out := make([]string, 0, len(c.RequiredSymptoms)+len(c.AdditionalSymptoms))
	for _, group := range [][]string{c.RequiredSymptoms, c.AdditionalSymptoms} {
		for _, s := range group {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// Check reports a malformed criteria entry.
func (c Criteria) Check() error {
	if c.Condition == "" {
		return fmt.Errorf("criteria without condition name")
	}
	union := c.Union()
	if len(union) == 0 {
		return fmt.Errorf("criteria %q has no symptoms", c.Condition)
	}
	if c.MinimumSymptoms < 0 || c.MinimumSymptoms > len(union) {
		return fmt.Errorf("criteria %q minimum_symptoms %d outside [0,%d]", c.Condition, c.MinimumSymptoms, len(union))
	}
	return nil
}

// Validate reports whether the symptom set satisfies the criteria.
func Validate(set symptoms.Set, c Criteria) bool {
	for _, req := range c.RequiredSymptoms {
		if !set.Has(req) {
			return false
		}
	}
	if c.MinimumSymptoms > 0 {
		return len(matched(set, c)) >= c.MinimumSymptoms
	}
	return true
}

// Confidence is matched / |required ∪ additional| × 100.
func Confidence(set symptoms.Set, c Criteria) float64 {
	union := c.Union()
	if len(union) == 0 {
		return 0
	}
	return float64(len(matched(set, c))) / float64(len(union)) * 100
}

func matched(set symptoms.Set, c Criteria) []string {
	var out []string
	for _, s := range c.Union() {
		if set.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// Candidate is a condition whose criteria matched.
type Candidate struct {
	Condition     string
	Confidence    float64
	KeyIndicators []string
	Severity      string
	DurationDays  int
}

// SeverityFor buckets a confidence value.
func SeverityFor(confidence float64) string {
	switch {
	case confidence >= 75:
		return "Alta"
	case confidence >= 50:
		return "Moderada"
	default:
		return "Leve"
	}
}

// Evaluate checks every criteria entry in table order. The result is empty,
// not nil, when nothing matches.
func Evaluate(set symptoms.Set, table []Criteria) ([]Candidate, error) {
	candidates := []Candidate{}
	for i, c := range table {
		if err := c.Check(); err != nil {
			return nil, apperrors.NewAnalysisError(fmt.Sprintf("criteria table entry %d", i), err)
		}
		if !Validate(set, c) {
			continue
		}
		confidence := Confidence(set, c)
		candidates = append(candidates, Candidate{
			Condition:     c.Condition,
			Confidence:    confidence,
			KeyIndicators: matched(set, c),
			Severity:      SeverityFor(confidence),
			DurationDays:  c.MinimumDurationDays,
		})
	}
	return candidates, nil
}
