package policy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pentestflow/pentestflow/pkg/finding"
	"github.com/pentestflow/pentestflow/pkg/report"
)

// ErrPolicyNotFound is returned when a policy file does not exist.
var ErrPolicyNotFound = errors.New("policy file not found")

// ErrInvalidPolicy is returned when a policy file is malformed.
var ErrInvalidPolicy = errors.New("invalid policy file")

// Policy is a parsed quality gate.
type Policy struct {
	Version string     `yaml:"version"`
	Name    string     `yaml:"name"`
	FailOn  FailOn     `yaml:"fail_on"`
	Ignore  IgnoreSpec `yaml:"ignore"`
}

// FailOn lists the failure conditions.
type FailOn struct {
	Sections Thresholds `yaml:"sections"`
	Titles   []string   `yaml:"titles"`
	Warnings bool       `yaml:"warnings"`
}

// Thresholds are maximum allowed section counts. Nil means unlimited.
type Thresholds struct {
	Total  *int `yaml:"total"`
	High   *int `yaml:"high"`
	Medium *int `yaml:"medium"`
	Low    *int `yaml:"low"`
}

// IgnoreSpec excludes sections from evaluation by title.
type IgnoreSpec struct {
	Titles []string `yaml:"titles"`
}

// Result is the outcome of an evaluation.
type Result struct {
	Pass       bool
	Failures   []string
	PolicyName string
}

// LoadPolicy reads and parses a policy file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, path)
		}
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy parses policy YAML.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	if p.Version == "" {
		p.Version = "1.0"
	}
	for _, t := range []*int{p.FailOn.Sections.Total, p.FailOn.Sections.High, p.FailOn.Sections.Medium, p.FailOn.Sections.Low} {
		if t != nil && *t < 0 {
			return nil, fmt.Errorf("%w: negative threshold", ErrInvalidPolicy)
		}
	}
	return &p, nil
}

// Evaluate checks snap and the finalize warning count against the policy.
func (p *Policy) Evaluate(snap report.Snapshot, warnings int) Result {
	res := Result{Pass: true, PolicyName: p.Name}

	ignored := make(map[string]bool, len(p.Ignore.Titles))
	for _, t := range p.Ignore.Titles {
		ignored[strings.ToLower(t)] = true
	}
	watched := make(map[string]bool, len(p.FailOn.Titles))
	for _, t := range p.FailOn.Titles {
		watched[strings.ToLower(t)] = true
	}

	counts := make(map[finding.Severity]int, len(finding.Levels))
	total := 0
	for _, r := range snap.Rated() {
		title := strings.ToLower(r.Title)
		if ignored[title] {
			continue
		}
		counts[r.Level]++
		total++
		if watched[title] && r.Source != report.SourceDefault {
			res.Failures = append(res.Failures,
				fmt.Sprintf("section %q rated %s", r.Title, r.Level))
		}
	}

	th := p.FailOn.Sections
	check := func(label string, limit *int, n int) {
		if limit != nil && n > *limit {
			res.Failures = append(res.Failures,
				fmt.Sprintf("%s sections (%d) exceed threshold (%d)", label, n, *limit))
		}
	}
	check("total", th.Total, total)
	check("high", th.High, counts[finding.High])
	check("medium", th.Medium, counts[finding.Medium])
	check("low", th.Low, counts[finding.Low])

	if p.FailOn.Warnings && warnings > 0 {
		res.Failures = append(res.Failures, fmt.Sprintf("%d artifact warnings", warnings))
	}

	res.Pass = len(res.Failures) == 0
	return res
}

// String identifies the policy.
func (p *Policy) String() string {
	if p.Name != "" {
		return fmt.Sprintf("Policy(%s v%s)", p.Name, p.Version)
	}
	return fmt.Sprintf("Policy(v%s)", p.Version)
}
