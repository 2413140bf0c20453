package analysis

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mental-triage/internal/common/errors"
	"mental-triage/internal/models"
)

var fixedNow = func() time.Time { return time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC) }

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"urgency_level": "medio",
		"main_concerns": []interface{}{"Estado de ánimo deprimido"},
		"preliminary_diagnoses": []interface{}{
			map[string]interface{}{
				"condition":      "Episodio depresivo",
				"confidence":     "85%",
				"key_indicators": []interface{}{"tristeza", "insomnio"},
			},
		},
		"risk_factors":       []interface{}{},
		"protective_factors": []interface{}{"Red de apoyo social disponible"},
		"recommendations":    []interface{}{"Consulta con un profesional"},
	}
}

func requireValidationField(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed), "got %v", err)
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, field, stdErr.Field())
}

func TestValidate_NormalizesPayload(t *testing.T) {
	result, err := NewValidator(fixedNow).Validate(validPayload())
	require.NoError(t, err)

	assert.Equal(t, models.UrgencyMedio, result.UrgencyLevel)
	require.Len(t, result.PreliminaryDiagnoses, 1)
	d := result.PreliminaryDiagnoses[0]
	assert.Equal(t, 85.0, d.Confidence)
	assert.Equal(t, models.SeverityUnspecified, d.Severity)
	assert.Nil(t, d.Duration)
	assert.Equal(t, []string{"tristeza", "insomnio"}, d.KeyIndicators)
	assert.Equal(t, "2026-03-01T10:15:00Z", result.Timestamp)
	assert.Empty(t, result.RiskFactors)
}

func TestValidate_ConfidenceForms(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		want float64
	}{
		{name: "percent string", raw: "85%", want: 85},
		{name: "bare numeric string", raw: "40", want: 40},
		{name: "decimal percent with spaces", raw: " 72.5 % ", want: 72.5},
		{name: "integer", raw: 100, want: 100},
		{name: "float", raw: 33.3, want: 33.3},
		{name: "zero", raw: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			p["preliminary_diagnoses"].([]interface{})[0].(map[string]interface{})["confidence"] = tt.raw
			result, err := NewValidator(fixedNow).Validate(p)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, result.PreliminaryDiagnoses[0].Confidence, 0.0001)
		})
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p map[string]interface{})
		field  string
	}{
		{name: "missing recommendations", mutate: func(p map[string]interface{}) { delete(p, "recommendations") }, field: "recommendations"},
		{name: "missing urgency", mutate: func(p map[string]interface{}) { delete(p, "urgency_level") }, field: "urgency_level"},
		{name: "unknown urgency", mutate: func(p map[string]interface{}) { p["urgency_level"] = "urgente" }, field: "urgency_level"},
		{
			name: "too many concerns",
			mutate: func(p map[string]interface{}) {
				p["main_concerns"] = []interface{}{"a", "b", "c", "d"}
			},
			field: "main_concerns",
		},
		{
			name: "confidence above range",
			mutate: func(p map[string]interface{}) {
				diag(p)["confidence"] = 120
			},
			field: "preliminary_diagnoses[0].confidence",
		},
		{
			name: "percentage above range",
			mutate: func(p map[string]interface{}) {
				diag(p)["confidence"] = "150%"
			},
			field: "preliminary_diagnoses[0].confidence",
		},
		{
			name: "confidence garbage",
			mutate: func(p map[string]interface{}) {
				diag(p)["confidence"] = "alta"
			},
			field: "preliminary_diagnoses[0].confidence",
		},
		{
			name: "key indicators not strings",
			mutate: func(p map[string]interface{}) {
				diag(p)["key_indicators"] = []interface{}{"ok", 3}
			},
			field: "preliminary_diagnoses[0].key_indicators[1]",
		},
		{
			name: "missing condition",
			mutate: func(p map[string]interface{}) {
				delete(diag(p), "condition")
			},
			field: "preliminary_diagnoses[0].condition",
		},
		{
			name: "risk factors wrong type",
			mutate: func(p map[string]interface{}) {
				p["risk_factors"] = "ninguno"
			},
			field: "risk_factors",
		},
		{
			name: "bad timestamp",
			mutate: func(p map[string]interface{}) {
				p["timestamp"] = "ayer"
			},
			field: "timestamp",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(p)
			result, err := NewValidator(fixedNow).Validate(p)
			assert.Nil(t, result)
			requireValidationField(t, err, tt.field)
		})
	}
}

func diag(p map[string]interface{}) map[string]interface{} {
	return p["preliminary_diagnoses"].([]interface{})[0].(map[string]interface{})
}

func TestValidate_OptionalFields(t *testing.T) {
	p := validPayload()
	diag(p)["severity"] = "Moderada"
	diag(p)["duration"] = 14
	p["timestamp"] = "2025-12-31T23:00:00+01:00"

	result, err := NewValidator(fixedNow).Validate(p)
	require.NoError(t, err)
	d := result.PreliminaryDiagnoses[0]
	assert.Equal(t, "Moderada", d.Severity)
	require.NotNil(t, d.Duration)
	assert.Equal(t, 14, *d.Duration)
	assert.Equal(t, "2025-12-31T22:00:00Z", result.Timestamp)
}

func TestValidate_NullDurationAndNaiveTimestamp(t *testing.T) {
	p := validPayload()
	diag(p)["duration"] = nil
	p["timestamp"] = "2025-06-01T08:30:00.123456"

	result, err := NewValidator(fixedNow).Validate(p)
	require.NoError(t, err)
	assert.Nil(t, result.PreliminaryDiagnoses[0].Duration)
	assert.Equal(t, "2025-06-01T08:30:00Z", result.Timestamp)
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	p := validPayload()
	delete(p, "recommendations")
	p["risk_factors"] = "ninguno"

	_, err := NewValidator(fixedNow).Validate(p)
	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	violations, ok := stdErr.Metadata["violations"].([]string)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(violations), 2)
}

func TestValidate_NilPayload(t *testing.T) {
	_, err := NewValidator(fixedNow).Validate(nil)
	requireValidationField(t, err, "payload")
}
