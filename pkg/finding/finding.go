package finding

import "fmt"

// Finding is a known-issue match for one discovered service.
type Finding struct {
	ServiceName string   `json:"service_name" yaml:"service"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Remediation string   `json:"remediation" yaml:"remediation"`
}

// String renders the finding in report form:
//
//	Apache - Severity: Medium
//	Remediation: Ensure the latest version is patched.
func (f Finding) String() string {
	return fmt.Sprintf("%s - Severity: %s\nRemediation: %s", f.ServiceName, f.Severity, f.Remediation)
}

// CountBySeverity tallies findings per severity label.
func CountBySeverity(findings []Finding) map[Severity]int {
	counts := make(map[Severity]int, len(Levels))
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}
