package engine

import (
	"sort"
	"strings"
)

// NormalizeSymptom canonicalizes a symptom identifier.
func NormalizeSymptom(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeSymptoms canonicalizes identifiers, drops blanks and duplicates,
// and keeps first-occurrence order. The result is never nil.
func NormalizeSymptoms(symptoms []string) []string {
	out := make([]string, 0, len(symptoms))
	seen := make(map[string]bool, len(symptoms))
	for _, s := range symptoms {
		n := NormalizeSymptom(s)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func toSet(symptoms []string) map[string]bool {
	set := make(map[string]bool, len(symptoms))
	for _, s := range symptoms {
		set[NormalizeSymptom(s)] = true
	}
	return set
}

// Intersect returns the symptoms of a that are also in b, in a's order.
func Intersect(a, b []string) []string {
	in := toSet(b)
	out := []string{}
	for _, s := range NormalizeSymptoms(a) {
		if in[s] {
			out = append(out, s)
		}
	}
	return out
}

// Difference returns the symptoms of a that are not in b, in a's order.
func Difference(a, b []string) []string {
	in := toSet(b)
	out := []string{}
	for _, s := range NormalizeSymptoms(a) {
		if !in[s] {
			out = append(out, s)
		}
	}
	return out
}

// Union returns a followed by the symptoms of b not already in a.
func Union(a, b []string) []string {
	return NormalizeSymptoms(append(append([]string{}, a...), b...))
}

// sortedSymptoms returns a sorted copy, used where order must not depend on input.
func sortedSymptoms(symptoms []string) []string {
	out := NormalizeSymptoms(symptoms)
	sort.Strings(out)
	return out
}
