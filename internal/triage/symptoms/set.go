package symptoms

import "sort"

// Set is a deduplicated collection of symptom tags.
type Set map[string]struct{}

func NewSet(tags ...string) Set {
	s := make(Set, len(tags))
	for _, t := range tags {
		s.Add(t)
	}
	return s
}

func (s Set) Add(tag string) {
	s[tag] = struct{}{}
}

func (s Set) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// List returns the tags sorted alphabetically.
func (s Set) List() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
