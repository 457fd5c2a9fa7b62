package report

import (
	"fmt"
	"strings"

	"github.com/spaolacci/murmur3"

	"github.com/pentestflow/pentestflow/pkg/finding"
)

// SeveritySource records where a section's effective severity came from.
type SeveritySource string

const (
	SourceExplicit SeveritySource = "explicit"
	SourceMarker   SeveritySource = "marker"
	SourceDefault  SeveritySource = "default"
)

const markerPrefix = "severity:"

// Section is one titled block of report content.
type Section struct {
	Title   string
	Content string
	// Severity is the structured severity, empty when the producing stage
	// did not rate the section.
	Severity finding.Severity
}

// ExtractSeverity returns the value of the first line whose lowercase form
// starts with "severity:". The value is the text between the first and
// second colon, trimmed and capitalized. ok is false when no line matches.
func ExtractSeverity(content string) (sev finding.Severity, ok bool) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if !strings.HasPrefix(strings.ToLower(line), markerPrefix) {
			continue
		}
		parts := strings.SplitN(line, ":", 3)
		return finding.Severity(finding.Capitalize(strings.TrimSpace(parts[1]))), true
	}
	return "", false
}

// Effective resolves the severity used for filtering and display.
func (s Section) Effective() (finding.Severity, SeveritySource) {
	if s.Severity != "" {
		return s.Severity, SourceExplicit
	}
	if sev, ok := ExtractSeverity(s.Content); ok {
		return sev, SourceMarker
	}
	return finding.Low, SourceDefault
}

// AnchorID returns a stable identifier for the section at position index.
func AnchorID(index int, title string) string {
	return fmt.Sprintf("s%d-%08x", index+1, murmur3.Sum32([]byte(title)))
}
