package analysis

import (
	"context"
	"sort"
	"time"

	"mental-triage/internal/models"
	"mental-triage/internal/triage/diagnosis"
	"mental-triage/internal/triage/rules"
	"mental-triage/internal/triage/symptoms"
	"mental-triage/internal/triage/urgency"
)

const maxMainConcerns = 3

// Source produces a raw analysis payload from the recorded answers.
type Source interface {
	Name() string
	Generate(ctx context.Context, responses models.Responses) (map[string]interface{}, error)
}

// RuleEngine composes extraction, scoring and diagnosis into a payload.
type RuleEngine struct {
	rules     *rules.RuleSet
	extractor symptoms.Extractor
	scorer    *urgency.Scorer
	now       func() time.Time
}

type EngineOption func(*RuleEngine)

// WithExtractor swaps the symptom extraction strategy.
func WithExtractor(ex symptoms.Extractor) EngineOption {
	return func(e *RuleEngine) { e.extractor = ex }
}

// WithClock fixes the payload timestamp source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *RuleEngine) { e.now = now }
}

func NewRuleEngine(rs *rules.RuleSet, opts ...EngineOption) *RuleEngine {
	e := &RuleEngine{
		rules:     rs,
		extractor: rs.Extractor(),
		scorer:    rs.Scorer(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *RuleEngine) Name() string { return "rules" }

// Assessment is the intermediate output of the rule engine.
type Assessment struct {
	Symptoms   symptoms.Set
	Urgency    urgency.Assessment
	Candidates []diagnosis.Candidate
}

// Assess runs extraction, scoring and diagnosis.
func (e *RuleEngine) Assess(responses models.Responses) (*Assessment, error) {
	set := e.extractor.Extract(responses)
	candidates, err := diagnosis.Evaluate(set, e.rules.Criteria)
	if err != nil {
		return nil, err
	}
	return &Assessment{
		Symptoms:   set,
		Urgency:    e.scorer.Score(set),
		Candidates: candidates,
	}, nil
}

func (e *RuleEngine) Generate(_ context.Context, responses models.Responses) (map[string]interface{}, error) {
	a, err := e.Assess(responses)
	if err != nil {
		return nil, err
	}

	diagnoses := make([]interface{}, 0, len(a.Candidates))
	for _, c := range a.Candidates {
		indicators := make([]string, 0, len(c.KeyIndicators))
		for _, tag := range c.KeyIndicators {
			indicators = append(indicators, e.rules.Label(tag))
		}
		entry := map[string]interface{}{
			"condition":      c.Condition,
			"confidence":     c.Confidence,
			"key_indicators": indicators,
			"severity":       c.Severity,
		}
		if c.DurationDays > 0 {
			entry["duration"] = c.DurationDays
		}
		diagnoses = append(diagnoses, entry)
	}

	return map[string]interface{}{
		"urgency_level":         string(a.Urgency.Level),
		"main_concerns":         e.mainConcerns(a.Symptoms),
		"preliminary_diagnoses": diagnoses,
		"risk_factors":          labelsFor(a.Symptoms, e.rules.RiskFactors),
		"protective_factors":    labelsFor(a.Symptoms, e.rules.ProtectiveFactors),
		"recommendations":       e.recommendations(a),
		"timestamp":             e.now().UTC().Format(time.RFC3339),
	}, nil
}

// mainConcerns lists the heaviest non-protective tags, at most three.
func (e *RuleEngine) mainConcerns(set symptoms.Set) []string {
	tags := make([]string, 0, set.Len())
	for _, tag := range set.List() {
		if e.rules.Weights.Weight(tag) > 0 {
			tags = append(tags, tag)
		}
	}
	sort.SliceStable(tags, func(i, j int) bool {
		return e.rules.Weights.Weight(tags[i]) > e.rules.Weights.Weight(tags[j])
	})
	if len(tags) > maxMainConcerns {
		tags = tags[:maxMainConcerns]
	}
	if len(tags) == 0 {
		return []string{e.rules.FallbackConcern}
	}
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = e.rules.Label(tag)
	}
	return out
}

func (e *RuleEngine) recommendations(a *Assessment) []string {
	base := e.rules.Recommendations.For(a.Urgency.Level)
	out := make([]string, 0, len(base)+len(e.rules.Recommendations.SubstanceUse))
	out = append(out, base...)
	if a.Symptoms.Has("substance_use") {
		out = append(out, e.rules.Recommendations.SubstanceUse...)
	}
	return out
}

func labelsFor(set symptoms.Set, table []rules.TaggedLabel) []string {
	out := []string{}
	for _, tl := range table {
		if set.Has(tl.Tag) {
			out = append(out, tl.Label)
		}
	}
	return out
}
