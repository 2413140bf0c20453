package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *ConversationRecord {
	duration := 14
	var responses Responses
	responses.Set("main_concern", "Me siento muy triste")
	responses.Set("duration", "Más de dos semanas")
	responses.Set("daily_impact", "Me cuesta trabajar")

	return &ConversationRecord{
		Metadata: Metadata{
			ConversationID: "0b8f6a52-4c4e-4e57-9b39-5f1b7d3c2a10",
			Timestamp:      "2026-03-01T10:15:00Z",
			Version:        SchemaVersion,
		},
		Conversation: Conversation{
			Responses: responses,
			Analysis: &AnalysisResult{
				UrgencyLevel: UrgencyMedio,
				MainConcerns: []string{"Estado de ánimo deprimido"},
				PreliminaryDiagnoses: []Diagnosis{{
					Condition:     "Episodio depresivo",
					Confidence:    44.44,
					KeyIndicators: []string{"depressed_mood", "persistent_symptoms"},
					Severity:      "Leve",
					Duration:      &duration,
				}},
				RiskFactors:       []string{},
				ProtectiveFactors: []string{},
				Recommendations:   []string{"Consulta con un profesional"},
				Timestamp:         "2026-03-01T10:15:00Z",
			},
		},
	}
}

func TestResponses_SetKeepsOrderAndUniqueness(t *testing.T) {
	var r Responses
	r.Set("main_concern", "a")
	r.Set("self_harm", "b")
	r.Set("duration", "c")
	r.Set("self_harm", "d")

	assert.Equal(t, []string{"main_concern", "self_harm", "duration"}, r.IDs())
	text, ok := r.Get("self_harm")
	assert.True(t, ok)
	assert.Equal(t, "d", text)
	assert.False(t, r.Has("sleep_patterns"))
}

func TestResponses_JSONPreservesOrder(t *testing.T) {
	var r Responses
	r.Set("zeta", "1")
	r.Set("alpha", "2")
	r.Set("mid", "con \"comillas\"")

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"1","alpha":"2","mid":"con \"comillas\""}`, string(data))

	var back Responses
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, back)
}

func TestResponses_UnmarshalRejectsNonStrings(t *testing.T) {
	var r Responses
	assert.Error(t, json.Unmarshal([]byte(`{"main_concern": 12}`), &r))
	assert.Error(t, json.Unmarshal([]byte(`["main_concern"]`), &r))
}

func TestConversationRecord_RoundTrip(t *testing.T) {
	rec := sampleRecord()

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var back ConversationRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec, &back)
}

func TestConversation_EmptyAnalysis(t *testing.T) {
	rec := sampleRecord()
	rec.Conversation.Analysis = nil

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"analysis":{}`)

	var back ConversationRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Nil(t, back.Conversation.Analysis)
	assert.Equal(t, rec.Conversation.Responses, back.Conversation.Responses)
}

func TestDiagnosis_DisplayConfidence(t *testing.T) {
	assert.Equal(t, "44%", Diagnosis{Confidence: 44.44}.DisplayConfidence())
	assert.Equal(t, "67%", Diagnosis{Confidence: 66.6667}.DisplayConfidence())
	assert.Equal(t, "100%", Diagnosis{Confidence: 100}.DisplayConfidence())
}

func TestUrgencyLevel_Valid(t *testing.T) {
	assert.True(t, UrgencyAlto.Valid())
	assert.False(t, UrgencyLevel("alto").Valid())
}

func TestSummarize(t *testing.T) {
	s := sampleRecord().Summarize()
	assert.Equal(t, "0b8f6a52-4c4e-4e57-9b39-5f1b7d3c2a10", s.ID)
	assert.Equal(t, "2026-03-01 10:15", s.Date)
	assert.Equal(t, "Me siento muy triste", s.MainConcern)
	assert.Equal(t, UrgencyMedio, s.UrgencyLevel)
}
