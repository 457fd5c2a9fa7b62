// Package vulnmatch flags discovered services against a static table of
// known-issue keywords.
//
// The table is an ordered slice: findings come out in record order first,
// then table order within a record. A record that matches several keywords
// yields several findings and nothing is deduplicated.
package vulnmatch

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pentestflow/pentestflow/pkg/finding"
	"github.com/pentestflow/pentestflow/pkg/nmap"
)

// NoIssuesMessage is the summary when nothing matched.
const NoIssuesMessage = "No known vulnerable services found."

// Sentinel errors for knowledge file loading.
var (
	ErrTableNotFound = errors.New("knowledge table not found")
	ErrInvalidTable  = errors.New("invalid knowledge table")
)

// Entry is one keyword in the knowledge table.
type Entry struct {
	Keyword     string           `yaml:"keyword"`
	Severity    finding.Severity `yaml:"severity"`
	Remediation string           `yaml:"remediation"`
}

// DefaultTable returns the built-in knowledge table. The returned slice is
// a fresh copy.
func DefaultTable() []Entry {
	return []Entry{
		{Keyword: "Apache", Severity: finding.Medium, Remediation: "Ensure the latest version is patched."},
		{Keyword: "OpenSSH", Severity: finding.High, Remediation: "Restrict SSH access and keep OpenSSH updated."},
		{Keyword: "MySQL", Severity: finding.High, Remediation: "Update MySQL and restrict database access."},
	}
}

type tableFile struct {
	Entries []Entry `yaml:"entries"`
}

// LoadTable reads additional entries from a YAML file of the form:
//
//	entries:
//	  - keyword: nginx
//	    severity: medium
//	    remediation: Keep nginx on a supported release.
func LoadTable(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, path)
		}
		return nil, fmt.Errorf("reading knowledge table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable parses knowledge entries from YAML data.
func ParseTable(data []byte) ([]Entry, error) {
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	for i := range tf.Entries {
		e := &tf.Entries[i]
		e.Keyword = strings.TrimSpace(e.Keyword)
		if e.Keyword == "" {
			return nil, fmt.Errorf("%w: entry %d has no keyword", ErrInvalidTable, i)
		}
		sev, ok := finding.ParseSeverity(string(e.Severity))
		if !ok {
			return nil, fmt.Errorf("%w: entry %q has severity %q", ErrInvalidTable, e.Keyword, e.Severity)
		}
		e.Severity = sev
	}
	return tf.Entries, nil
}

// Result is the outcome of matching a set of records.
type Result struct {
	Findings []finding.Finding
	// Clean is true when no record matched any keyword.
	Clean bool
}

// Summary renders the findings for the report, or NoIssuesMessage.
func (r Result) Summary() string {
	if len(r.Findings) == 0 {
		return NoIssuesMessage
	}
	lines := make([]string, len(r.Findings))
	for i, f := range r.Findings {
		lines[i] = f.String()
	}
	return strings.Join(lines, "\n")
}

// Highest returns the highest severity among findings, or "" when clean.
func (r Result) Highest() finding.Severity {
	sevs := make([]finding.Severity, len(r.Findings))
	for i, f := range r.Findings {
		sevs[i] = f.Severity
	}
	return finding.Max(sevs...)
}

// Matcher matches service records against a knowledge table.
type Matcher struct {
	table []Entry
}

// New returns a Matcher over the built-in table followed by extra.
func New(extra ...Entry) *Matcher {
	return &Matcher{table: append(DefaultTable(), extra...)}
}

// Table returns a copy of the matcher's table.
func (m *Matcher) Table() []Entry {
	return append([]Entry(nil), m.table...)
}

// Match returns one finding per (record, entry) pair whose keyword appears
// in the record's service descriptor, ignoring case.
func (m *Matcher) Match(records []nmap.ServiceRecord) Result {
	var findings []finding.Finding
	for _, rec := range records {
		service := strings.ToLower(rec.Service)
		for _, e := range m.table {
			if strings.Contains(service, strings.ToLower(e.Keyword)) {
				findings = append(findings, finding.Finding{
					ServiceName: e.Keyword,
					Severity:    e.Severity,
					Remediation: e.Remediation,
				})
			}
		}
	}
	return Result{Findings: findings, Clean: len(findings) == 0}
}
