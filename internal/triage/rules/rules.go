// Package rules loads the triage rule set: keyword table, weights,
// thresholds, diagnostic criteria and report vocabulary.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"mental-triage/internal/models"
	"mental-triage/internal/triage/diagnosis"
	"mental-triage/internal/triage/symptoms"
	"mental-triage/internal/triage/urgency"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

var (
	ErrRulesNotFound = errors.New("rules file not found")
	ErrInvalidRules  = errors.New("invalid rules")
)

// TaggedLabel pairs a symptom tag with its report wording.
type TaggedLabel struct {
	Tag   string `yaml:"tag"`
	Label string `yaml:"label"`
}

type Recommendations struct {
	Alto         []string `yaml:"alto"`
	Medio        []string `yaml:"medio"`
	Bajo         []string `yaml:"bajo"`
	SubstanceUse []string `yaml:"substance_use"`
}

// For returns the recommendations for an urgency level.
func (r Recommendations) For(level models.UrgencyLevel) []string {
	switch level {
	case models.UrgencyAlto:
		return r.Alto
	case models.UrgencyMedio:
		return r.Medio
	default:
		return r.Bajo
	}
}

type RuleSet struct {
	Version           string                      `yaml:"version"`
	RiskKeywords      []string                    `yaml:"risk_keywords"`
	Keywords          []symptoms.KeywordRule      `yaml:"keywords"`
	Supplementary     symptoms.SupplementaryRules `yaml:"supplementary"`
	Weights           urgency.WeightTable         `yaml:"weights"`
	Thresholds        urgency.Thresholds          `yaml:"thresholds"`
	Criteria          []diagnosis.Criteria        `yaml:"criteria"`
	Labels            map[string]string           `yaml:"labels"`
	RiskFactors       []TaggedLabel               `yaml:"risk_factors"`
	ProtectiveFactors []TaggedLabel               `yaml:"protective_factors"`
	FallbackConcern   string                      `yaml:"fallback_concern"`
	Recommendations   Recommendations             `yaml:"recommendations"`
}

// Default returns the embedded rule set.
func Default() (*RuleSet, error) {
	return Parse(defaultRulesYAML)
}

// Load reads a rule set file; an empty path selects the embedded default.
func Load(path string) (*RuleSet, error) {
	if path == "" {
		return Default()
	}
	path = filepath.Clean(path)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRulesNotFound, path)
		}
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	return Parse(content)
}

// Parse decodes and validates a rule set document.
func Parse(content []byte) (*RuleSet, error) {
	rs := &RuleSet{}
	if err := yaml.Unmarshal(content, rs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

// Validate checks the rule set is usable by the analysis pipeline.
func (rs *RuleSet) Validate() error {
	if len(rs.RiskKeywords) == 0 {
		return fmt.Errorf("%w: risk_keywords is empty", ErrInvalidRules)
	}
	if len(rs.Keywords) == 0 {
		return fmt.Errorf("%w: keywords is empty", ErrInvalidRules)
	}
	for i, kw := range rs.Keywords {
		if kw.Tag == "" || len(kw.Terms) == 0 {
			return fmt.Errorf("%w: keywords[%d] needs a tag and terms", ErrInvalidRules, i)
		}
	}
	if rs.Thresholds.Medio <= 0 {
		return fmt.Errorf("%w: thresholds.medio must be positive", ErrInvalidRules)
	}
	if len(rs.Criteria) == 0 {
		return fmt.Errorf("%w: criteria is empty", ErrInvalidRules)
	}
	for i, c := range rs.Criteria {
		if err := c.Check(); err != nil {
			return fmt.Errorf("%w: criteria[%d]: %v", ErrInvalidRules, i, err)
		}
	}
	for _, level := range []models.UrgencyLevel{models.UrgencyAlto, models.UrgencyMedio, models.UrgencyBajo} {
		if len(rs.Recommendations.For(level)) == 0 {
			return fmt.Errorf("%w: recommendations for %s are empty", ErrInvalidRules, level)
		}
	}
	if rs.FallbackConcern == "" {
		return fmt.Errorf("%w: fallback_concern is empty", ErrInvalidRules)
	}
	return nil
}

// Label returns the report wording for a tag, falling back to the tag.
func (rs *RuleSet) Label(tag string) string {
	if l, ok := rs.Labels[tag]; ok && l != "" {
		return l
	}
	return tag
}

// Extractor builds the keyword extractor for this rule set.
func (rs *RuleSet) Extractor() *symptoms.KeywordExtractor {
	return symptoms.NewKeywordExtractor(rs.Keywords, rs.Supplementary)
}

// RiskMatcher builds the risk keyword matcher for this rule set.
func (rs *RuleSet) RiskMatcher() *symptoms.RiskMatcher {
	return symptoms.NewRiskMatcher(rs.RiskKeywords)
}

// Scorer builds the urgency scorer for this rule set.
func (rs *RuleSet) Scorer() *urgency.Scorer {
	return urgency.NewScorer(rs.Weights, rs.Thresholds)
}

// Summary returns counts used by the rules-check tool.
func (rs *RuleSet) Summary() map[string]interface{} {
	return map[string]interface{}{
		"version":            rs.Version,
		"risk_keywords":      len(rs.RiskKeywords),
		"keyword_rules":      len(rs.Keywords),
		"criteria":           len(rs.Criteria),
		"risk_factors":       len(rs.RiskFactors),
		"protective_factors": len(rs.ProtectiveFactors),
		"medio_threshold":    rs.Thresholds.Medio,
	}
}
