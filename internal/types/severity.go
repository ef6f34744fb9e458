package types

import "fmt"

// Severity classifies how serious a violation is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// severityRanks orders severities from least to most severe.
var severityRanks = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityError:    2,
	SeverityCritical: 3,
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	_, ok := severityRanks[s]
	return ok
}

// Rank returns the severity's position in the escalation order.
// Unknown severities rank below info.
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return -1
}

// Less reports whether s is less severe than o.
func (s Severity) Less(o Severity) bool {
	return s.Rank() < o.Rank()
}

// ParseSeverity converts a string to a Severity, rejecting unknown values.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.Valid() {
		return "", fmt.Errorf("unknown severity %q (expected info, warning, error, or critical)", s)
	}
	return sev, nil
}
