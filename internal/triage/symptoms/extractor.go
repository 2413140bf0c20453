// Package symptoms derives symptom tags from free-text answers.
package symptoms

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"mental-triage/internal/models"
)

// Tags produced by the supplementary rules.
const (
	TagPersistentSymptoms  = "persistent_symptoms"
	TagWorkImpact          = "work_impact"
	TagMoodChanges         = "mood_changes"
	TagLackOfSupport       = "lack_of_support"
	TagSupportSystem       = "support_system"
	TagProfessionalHistory = "professional_history"
	TagCopingStrategies    = "coping_strategies"
)

// Question ids the supplementary rules look at.
const (
	questionDuration          = "duration"
	questionDailyImpact       = "daily_impact"
	questionMoodChanges       = "mood_changes"
	questionSupportSystem     = "support_system"
	questionPreviousTreatment = "previous_treatment"
	questionCoping            = "coping_mechanisms"
)

// Extractor maps answers to symptom tags.
type Extractor interface {
	Extract(responses models.Responses) Set
}

// KeywordRule maps any of its terms to one tag.
type KeywordRule struct {
	Tag   string   `yaml:"tag"`
	Terms []string `yaml:"terms"`
}

// SupplementaryRules holds the vocabularies for the per-question rules.
type SupplementaryRules struct {
	DurationTerms    []string `yaml:"duration_terms"`
	WorkTerms        []string `yaml:"work_terms"`
	AffirmativeWords []string `yaml:"affirmative_words"`
	AffirmativeTerms []string `yaml:"affirmative_terms"`
	NegationWords    []string `yaml:"negation_words"`
	SupportTerms     []string `yaml:"support_terms"`
	NoSupportMarkers []string `yaml:"no_support_markers"`
}

// KeywordExtractor is the substring-matching Extractor.
type KeywordExtractor struct {
	keywords []KeywordRule
	rules    SupplementaryRules
}

func NewKeywordExtractor(keywords []KeywordRule, rules SupplementaryRules) *KeywordExtractor {
	return &KeywordExtractor{keywords: keywords, rules: rules}
}

func (e *KeywordExtractor) Extract(responses models.Responses) Set {
	set := NewSet()

	for _, a := range responses {
		// Leading negations are not honored here: "No quiero vivir" must
		// still tag suicidal ideation.
		text := normalize(a.Text)
		for _, kw := range e.keywords {
			if set.Has(kw.Tag) {
				continue
			}
			if containsAny(text, kw.Terms) {
				set.Add(kw.Tag)
			}
		}
	}

	e.applySupplementary(responses, set)
	return set
}

func (e *KeywordExtractor) applySupplementary(responses models.Responses, set Set) {
	if text, ok := answer(responses, questionDuration); ok && containsAny(text, e.rules.DurationTerms) {
		set.Add(TagPersistentSymptoms)
	}
	if text, ok := answer(responses, questionDailyImpact); ok && containsAny(text, e.rules.WorkTerms) {
		set.Add(TagWorkImpact)
	}
	if text, ok := answer(responses, questionMoodChanges); ok && e.affirmative(text) {
		set.Add(TagMoodChanges)
	}
	if text, ok := answer(responses, questionSupportSystem); ok && text != "" {
		if e.lacksSupport(text) {
			set.Add(TagLackOfSupport)
		} else {
			set.Add(TagSupportSystem)
		}
	}
	if text, ok := answer(responses, questionPreviousTreatment); ok && e.affirmative(text) {
		set.Add(TagProfessionalHistory)
	}
	if text, ok := answer(responses, questionCoping); ok && text != "" && !e.negative(text) {
		set.Add(TagCopingStrategies)
	}
}

func (e *KeywordExtractor) negative(text string) bool {
	return startsWithAnyWord(text, e.rules.NegationWords)
}

func (e *KeywordExtractor) affirmative(text string) bool {
	if e.negative(text) {
		return false
	}
	return startsWithAnyWord(text, e.rules.AffirmativeWords) || containsAny(text, e.rules.AffirmativeTerms)
}

func (e *KeywordExtractor) lacksSupport(text string) bool {
	if e.negative(text) || containsAny(text, e.rules.NoSupportMarkers) {
		return true
	}
	return !startsWithAnyWord(text, e.rules.AffirmativeWords) && !containsAny(text, e.rules.SupportTerms)
}

func answer(responses models.Responses, id string) (string, bool) {
	text, ok := responses.Get(id)
	if !ok {
		return "", false
	}
	return normalize(text), true
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// startsWithAnyWord matches whole leading words, so "si" does not match "sin".
func startsWithAnyWord(text string, words []string) bool {
	text = strings.TrimLeftFunc(text, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	for _, w := range words {
		if w == "" || !strings.HasPrefix(text, w) {
			continue
		}
		rest := text[len(w):]
		if rest == "" {
			return true
		}
		next, _ := utf8.DecodeRuneInString(rest)
		if !unicode.IsLetter(next) && !unicode.IsDigit(next) {
			return true
		}
	}
	return false
}
