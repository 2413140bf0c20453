// Package analysis produces validated analysis results from either the
// rule engine or an external generator.
package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "mental-triage/internal/common/errors"
	"mental-triage/internal/common/validation"
	"mental-triage/internal/models"
)

var percentPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*%?\s*$`)

// Accepted timestamp layouts, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Validator is the only path from a raw payload to a models.AnalysisResult.
type Validator struct {
	schema *validation.Schema
	now    func() time.Time
}

// NewValidator uses now for missing timestamps; nil means time.Now.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{schema: compiledResultSchema, now: now}
}

// Validate normalizes a payload or fails with a ValidationError naming the field.
func (v *Validator) Validate(payload map[string]interface{}) (*models.AnalysisResult, error) {
	doc, err := roundTrip(payload)
	if err != nil {
		return nil, apperrors.NewValidationError("payload", err.Error())
	}

	res, err := v.schema.Validate(doc)
	if err != nil {
		return nil, apperrors.NewValidationError("payload", err.Error())
	}
	if first, ok := res.First(); ok {
		field := first.Field
		if field == "" {
			field = "payload"
		}
		verr := apperrors.NewValidationError(field, first.Message)
		verr.Metadata["violations"] = res.GetErrorMessages()
		return nil, verr
	}

	return v.build(doc)
}

func roundTrip(payload map[string]interface{}) (map[string]interface{}, error) {
	if payload == nil {
		return nil, fmt.Errorf("payload is empty")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (v *Validator) build(doc map[string]interface{}) (*models.AnalysisResult, error) {
	level := models.UrgencyLevel(strings.ToUpper(strings.TrimSpace(doc["urgency_level"].(string))))
	if !level.Valid() {
		return nil, apperrors.NewValidationError("urgency_level",
			fmt.Sprintf("must be one of ALTO, MEDIO, BAJO, got %q", doc["urgency_level"]))
	}

	result := &models.AnalysisResult{
		UrgencyLevel:      level,
		MainConcerns:      stringList(doc["main_concerns"]),
		RiskFactors:       stringList(doc["risk_factors"]),
		ProtectiveFactors: stringList(doc["protective_factors"]),
		Recommendations:   stringList(doc["recommendations"]),
	}

	rawDiagnoses, _ := doc["preliminary_diagnoses"].([]interface{})
	result.PreliminaryDiagnoses = make([]models.Diagnosis, 0, len(rawDiagnoses))
	for i, raw := range rawDiagnoses {
		d, err := buildDiagnosis(i, raw.(map[string]interface{}))
		if err != nil {
			return nil, err
		}
		result.PreliminaryDiagnoses = append(result.PreliminaryDiagnoses, d)
	}

	ts, err := v.timestamp(doc["timestamp"])
	if err != nil {
		return nil, err
	}
	result.Timestamp = ts
	return result, nil
}

func buildDiagnosis(i int, raw map[string]interface{}) (models.Diagnosis, error) {
	prefix := fmt.Sprintf("preliminary_diagnoses[%d]", i)

	confidence, err := parseConfidence(raw["confidence"])
	if err != nil {
		return models.Diagnosis{}, apperrors.NewValidationError(prefix+".confidence", err.Error())
	}

	d := models.Diagnosis{
		Condition:     raw["condition"].(string),
		Confidence:    confidence,
		KeyIndicators: stringList(raw["key_indicators"]),
		Severity:      models.SeverityUnspecified,
	}
	if s, ok := raw["severity"].(string); ok && strings.TrimSpace(s) != "" {
		d.Severity = s
	}
	if n, ok := raw["duration"].(float64); ok {
		days := int(math.Round(n))
		d.Duration = &days
	}
	return d, nil
}

// parseConfidence accepts 85, 85.5, "85", "85%" and " 85.5 % ".
func parseConfidence(raw interface{}) (float64, error) {
	var value float64
	switch c := raw.(type) {
	case float64:
		value = c
	case string:
		m := percentPattern.FindStringSubmatch(c)
		if m == nil {
			return 0, fmt.Errorf("invalid percentage %q", c)
		}
		parsed, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid percentage %q: %v", c, err)
		}
		value = parsed
	default:
		return 0, fmt.Errorf("expected number or percentage string, got %T", raw)
	}
	if value < 0 || value > 100 {
		return 0, fmt.Errorf("must be within [0,100], got %v", value)
	}
	return value, nil
}

func (v *Validator) timestamp(raw interface{}) (string, error) {
	s, _ := raw.(string)
	s = strings.TrimSpace(s)
	if s == "" {
		return v.now().UTC().Format(time.RFC3339), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339), nil
		}
	}
	return "", apperrors.NewValidationError("timestamp", fmt.Sprintf("unrecognized timestamp %q", s))
}

// stringList converts a schema-checked []interface{} of strings.
func stringList(raw interface{}) []string {
	items, _ := raw.([]interface{})
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.(string))
	}
	return out
}
