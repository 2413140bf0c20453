package symptoms

// RiskMatcher detects risk vocabulary (suicide, death, self harm, crisis).
type RiskMatcher struct {
	terms []string
}

func NewRiskMatcher(terms []string) *RiskMatcher {
	return &RiskMatcher{terms: terms}
}

// ContainsRiskKeyword is a lower-cased substring check.
func (m *RiskMatcher) ContainsRiskKeyword(text string) bool {
	if m == nil {
		return false
	}
	return containsAny(normalize(text), m.terms)
}

// AnyRiskKeyword reports whether any recorded answer carries risk vocabulary.
func (m *RiskMatcher) AnyRiskKeyword(texts ...string) bool {
	for _, t := range texts {
		if m.ContainsRiskKeyword(t) {
			return true
		}
	}
	return false
}
