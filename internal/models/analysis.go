package models

import (
	"fmt"
	"math"
)

// UrgencyLevel is the triage attention priority.
type UrgencyLevel string

const (
	UrgencyAlto  UrgencyLevel = "ALTO"
	UrgencyMedio UrgencyLevel = "MEDIO"
	UrgencyBajo  UrgencyLevel = "BAJO"
)

// Valid reports whether the level is one of the three known values.
func (u UrgencyLevel) Valid() bool {
	switch u {
	case UrgencyAlto, UrgencyMedio, UrgencyBajo:
		return true
	}
	return false
}

// SeverityUnspecified is used when a diagnosis arrives without severity.
const SeverityUnspecified = "No especificada"

// Diagnosis is a preliminary, confidence-scored candidate condition.
type Diagnosis struct {
	Condition     string   `json:"condition"`
	Confidence    float64  `json:"confidence"`
	KeyIndicators []string `json:"key_indicators"`
	Severity      string   `json:"severity,omitempty"`
	Duration      *int     `json:"duration,omitempty"`
}

// DisplayConfidence renders the confidence rounded, e.g. "67%".
func (d Diagnosis) DisplayConfidence() string {
	return fmt.Sprintf("%d%%", int(math.Round(d.Confidence)))
}

// AnalysisResult is the validated outcome of a completed conversation.
type AnalysisResult struct {
	UrgencyLevel         UrgencyLevel `json:"urgency_level"`
	MainConcerns         []string     `json:"main_concerns"`
	PreliminaryDiagnoses []Diagnosis  `json:"preliminary_diagnoses"`
	RiskFactors          []string     `json:"risk_factors"`
	ProtectiveFactors    []string     `json:"protective_factors"`
	Recommendations      []string     `json:"recommendations"`
	Timestamp            string       `json:"timestamp"`
}
