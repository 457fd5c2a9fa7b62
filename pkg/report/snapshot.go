package report

import (
	"time"

	"github.com/pentestflow/pentestflow/pkg/finding"
)

// Snapshot is the immutable view of a report taken at finalize. Every
// renderer receives the same Snapshot.
type Snapshot struct {
	RunID       string
	Target      string
	GeneratedAt time.Time
	Sections    []Section
}

// NewSnapshot copies sections so later appends cannot affect it.
func NewSnapshot(runID, target string, at time.Time, sections []Section) Snapshot {
	return Snapshot{
		RunID:       runID,
		Target:      target,
		GeneratedAt: at,
		Sections:    append([]Section(nil), sections...),
	}
}

// Rated is a section with its resolved severity and anchor id.
type Rated struct {
	Section
	ID       string
	Level    finding.Severity
	Source   SeveritySource
	Position int
}

// Rated resolves every section in order.
func (s Snapshot) Rated() []Rated {
	out := make([]Rated, len(s.Sections))
	for i, sec := range s.Sections {
		lvl, src := sec.Effective()
		out[i] = Rated{Section: sec, ID: AnchorID(i, sec.Title), Level: lvl, Source: src, Position: i}
	}
	return out
}

// Filter returns the rated sections at or above min, preserving order.
// An empty min keeps everything.
func (s Snapshot) Filter(min finding.Severity) []Rated {
	all := s.Rated()
	if min == "" {
		return all
	}
	kept := all[:0]
	for _, r := range all {
		if r.Level.AtLeast(min) {
			kept = append(kept, r)
		}
	}
	return kept
}

// CountBySeverity tallies effective severities across all sections.
func (s Snapshot) CountBySeverity() map[finding.Severity]int {
	counts := make(map[finding.Severity]int, len(finding.Levels))
	for _, r := range s.Rated() {
		counts[r.Level]++
	}
	return counts
}
