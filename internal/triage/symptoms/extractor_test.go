package symptoms_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mental-triage/internal/models"
	"mental-triage/internal/triage/rules"
	"mental-triage/internal/triage/symptoms"
)

func newExtractor(t *testing.T) symptoms.Extractor {
	t.Helper()
	rs, err := rules.Default()
	require.NoError(t, err)
	return rs.Extractor()
}

func responses(pairs ...string) models.Responses {
	var r models.Responses
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}

func TestExtract_Keywords(t *testing.T) {
	ex := newExtractor(t)

	tests := []struct {
		name    string
		answers models.Responses
		want    []string
		notWant []string
	}{
		{
			name:    "sad and hopeless",
			answers: responses("main_concern", "Me siento muy TRISTE y sin esperanza"),
			want:    []string{"depressed_mood", "hopelessness"},
		},
		{
			name:    "death wish",
			answers: responses("main_concern", "Quiero morirme"),
			want:    []string{"suicidal_ideation"},
			notWant: []string{"self_harm"},
		},
		{
			name:    "sleep and fatigue",
			answers: responses("sleep_patterns", "Tengo insomnio y estoy agotada"),
			want:    []string{"sleep_changes", "fatigue"},
		},
		{
			name:    "bare denial of self harm",
			answers: responses("self_harm", "No"),
			notWant: []string{"self_harm", "suicidal_ideation"},
		},
		{
			name:    "affirmed self harm answer counts",
			answers: responses("self_harm", "A veces pienso en hacerme daño"),
			want:    []string{"self_harm"},
		},
		{
			name:    "bare denial of substance use",
			answers: responses("substance_use", "Nunca"),
			notWant: []string{"substance_use"},
		},
		{
			name:    "substance use volunteered elsewhere",
			answers: responses("coping_mechanisms", "Bebo alcohol para olvidar"),
			want:    []string{"substance_use", "concentration_problems", "coping_strategies"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ex.Extract(tt.answers)
			for _, tag := range tt.want {
				assert.True(t, got.Has(tag), "expected %s in %v", tag, got.List())
			}
			for _, tag := range tt.notWant {
				assert.False(t, got.Has(tag), "unexpected %s in %v", tag, got.List())
			}
		})
	}
}

func TestExtract_DisclosuresStartingWithNegation(t *testing.T) {
	rs, err := rules.Default()
	require.NoError(t, err)
	ex := rs.Extractor()
	scorer := rs.Scorer()

	tests := []struct {
		name     string
		question string
		text     string
		want     string
	}{
		{name: "no quiero vivir", question: "self_harm", text: "No quiero vivir", want: "suicidal_ideation"},
		{name: "hedged suicide thought", question: "self_harm", text: "No sé, a veces pienso en suicidarme", want: "suicidal_ideation"},
		{name: "never told anyone", question: "self_harm", text: "Nunca se lo dije a nadie, pero quiero morir", want: "suicidal_ideation"},
		{name: "negated self harm phrase still counts", question: "self_harm", text: "No, nunca he pensado en hacerme daño", want: "self_harm"},
		{name: "disclosure under substance question", question: "substance_use", text: "No bebo, pero quiero quitarme la vida", want: "suicidal_ideation"},
		{name: "crisis under negation", question: "substance_use", text: "No, pero ya no aguanto más", want: "crisis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ex.Extract(responses(tt.question, tt.text, "support_system", "Mi familia me apoya"))
			assert.True(t, got.Has(tt.want), "expected %s in %v", tt.want, got.List())
			if tt.want != "crisis" {
				assert.Equal(t, models.UrgencyAlto, scorer.Score(got).Level)
			}
		})
	}
}

func TestExtract_SupplementaryRules(t *testing.T) {
	ex := newExtractor(t)

	tests := []struct {
		name    string
		answers models.Responses
		want    []string
		notWant []string
	}{
		{name: "duration in weeks", answers: responses("duration", "Más de dos semanas"), want: []string{"persistent_symptoms"}},
		{name: "duration in days", answers: responses("duration", "Un par de días"), notWant: []string{"persistent_symptoms"}},
		{name: "work impact", answers: responses("daily_impact", "No rindo en el trabajo"), want: []string{"work_impact"}},
		{name: "mood change affirmed", answers: responses("mood_changes", "Sí, bastante"), want: []string{"mood_changes"}},
		{name: "mood change denied", answers: responses("mood_changes", "No mucho"), notWant: []string{"mood_changes"}},
		{name: "sin is not si", answers: responses("mood_changes", "sin novedades"), notWant: []string{"mood_changes"}},
		{name: "no support", answers: responses("support_system", "No tengo apoyo"), want: []string{"lack_of_support"}, notWant: []string{"support_system"}},
		{name: "nobody", answers: responses("support_system", "Realmente nadie"), want: []string{"lack_of_support"}},
		{name: "vague support answer", answers: responses("support_system", "Pues no sé"), want: []string{"lack_of_support"}},
		{name: "family support", answers: responses("support_system", "Mi familia me ayuda"), want: []string{"support_system"}, notWant: []string{"lack_of_support"}},
		{name: "plain yes support", answers: responses("support_system", "Sí"), want: []string{"support_system"}},
		{name: "previous therapy", answers: responses("previous_treatment", "Sí, fui a terapia"), want: []string{"professional_history"}},
		{name: "no previous therapy", answers: responses("previous_treatment", "Nunca"), notWant: []string{"professional_history"}},
		{name: "coping described", answers: responses("coping_mechanisms", "Salgo a caminar"), want: []string{"coping_strategies"}},
		{name: "coping denied", answers: responses("coping_mechanisms", "Nada en particular"), notWant: []string{"coping_strategies"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ex.Extract(tt.answers)
			for _, tag := range tt.want {
				assert.True(t, got.Has(tag), "expected %s in %v", tag, got.List())
			}
			for _, tag := range tt.notWant {
				assert.False(t, got.Has(tag), "unexpected %s in %v", tag, got.List())
			}
		})
	}
}

func TestExtract_DeterministicAndDeduplicated(t *testing.T) {
	ex := newExtractor(t)
	answers := responses(
		"main_concern", "Estoy triste, muy triste, deprimido",
		"duration", "Tres meses",
		"mood_changes", "Me siento vacío",
	)

	first := ex.Extract(answers)
	second := ex.Extract(answers)
	assert.Equal(t, first.List(), second.List())
	assert.Equal(t, []string{"depressed_mood", "persistent_symptoms"}, first.List())
}

func TestRiskMatcher(t *testing.T) {
	rs, err := rules.Default()
	require.NoError(t, err)
	m := rs.RiskMatcher()

	assert.True(t, m.ContainsRiskKeyword("Pienso en la muerte"))
	assert.True(t, m.ContainsRiskKeyword("Estoy en CRISIS"))
	assert.True(t, m.ContainsRiskKeyword("me hice daño"))
	assert.False(t, m.ContainsRiskKeyword("Estoy cansado"))
	assert.False(t, m.ContainsRiskKeyword("Soy un ciudadano normal"))
	assert.True(t, m.ContainsRiskKeyword("No quiero vivir"))
	assert.True(t, m.ContainsRiskKeyword("pienso en quitarme la vida"))
	assert.True(t, m.ContainsRiskKeyword("quiero hacerme dano"))
	assert.True(t, m.AnyRiskKeyword("hola", "quiero morir"))
	assert.False(t, m.AnyRiskKeyword())
}

func TestSet(t *testing.T) {
	s := symptoms.NewSet("b", "a", "b")
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"a", "b"}, s.List())
}
