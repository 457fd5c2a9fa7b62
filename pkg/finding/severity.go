package finding

import "strings"

// Severity represents the severity level of a finding.
// Values are capitalized to match how they appear in report content.
type Severity string

const (
	// High represents exposure that should be fixed first (remote shell, database).
	High Severity = "High"

	// Medium represents exposure that needs patch hygiene.
	Medium Severity = "Medium"

	// Low represents informational or unrated content.
	Low Severity = "Low"
)

// Levels lists the known severities from lowest to highest.
var Levels = []Severity{Low, Medium, High}

// IsValid reports whether s is a recognized severity level.
func (s Severity) IsValid() bool {
	switch s {
	case Low, Medium, High:
		return true
	}
	return false
}

// Score returns the ordinal used for threshold filtering.
// Low=1, Medium=2, High=3. Unknown labels score 1.
func (s Severity) Score() int {
	switch s {
	case High:
		return 3
	case Medium:
		return 2
	default:
		return 1
	}
}

// AtLeast reports whether s ranks at or above min.
func (s Severity) AtLeast(min Severity) bool {
	return s.Score() >= min.Score()
}

// String returns the severity as a string.
func (s Severity) String() string {
	return string(s)
}

// Capitalize upper-cases the first character of s and lower-cases the rest.
// "hIGH" becomes "High".
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
}

// ParseSeverity maps a label to a Severity, ignoring case and surrounding
// whitespace. The second result is false for unknown labels, in which case
// the capitalized label is returned as-is so callers can still display it.
func ParseSeverity(label string) (Severity, bool) {
	s := Severity(Capitalize(strings.TrimSpace(label)))
	return s, s.IsValid()
}

// Max returns the highest severity in list, or "" when list is empty.
func Max(list ...Severity) Severity {
	var best Severity
	for _, s := range list {
		if best == "" || s.Score() > best.Score() {
			best = s
		}
	}
	return best
}
