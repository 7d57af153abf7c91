package model

import "fmt"

// Severity is an ordinal symptom severity: low < moderate < high.
type Severity string

const (
	SeverityNone     Severity = ""
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// ValidSeverities are the allowed non-empty severity levels.
var ValidSeverities = map[Severity]bool{
	SeverityLow:      true,
	SeverityModerate: true,
	SeverityHigh:     true,
}

// Rank returns the ordinal position of s, or 0 when s is unset or unknown.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityModerate:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// ParseSeverity validates a severity string. The empty string is allowed.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if sev == SeverityNone || ValidSeverities[sev] {
		return sev, nil
	}
	return SeverityNone, fmt.Errorf("invalid severity %q (valid: low, moderate, high)", s)
}

// MaxSeverity returns the higher of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}
