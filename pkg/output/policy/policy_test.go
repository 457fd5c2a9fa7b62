package policy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentestflow/pentestflow/pkg/finding"
	"github.com/pentestflow/pentestflow/pkg/report"
)

func snapshot() report.Snapshot {
	return report.NewSnapshot("r", "http://example.com", time.Now(), []report.Section{
		{Title: "Target Information", Content: "IP: 10.0.0.1"},
		{Title: "Known Vulnerability Check (Simulated)", Content: "OpenSSH", Severity: finding.High},
		{Title: "SQL Injection Check", Content: "Severity: High\nParameter: id"},
		{Title: "Reflected XSS Check", Content: "No unescaped reflection observed"},
	})
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	p, err := ParsePolicy([]byte(`
name: gate
fail_on:
  sections:
    high: 1
  titles: [SQL Injection Check]
`))
	require.NoError(t, err)
	assert.Equal(t, "1.0", p.Version)
	require.NotNil(t, p.FailOn.Sections.High)
	assert.Equal(t, 1, *p.FailOn.Sections.High)
	assert.Nil(t, p.FailOn.Sections.Medium)
	assert.Equal(t, "Policy(gate v1.0)", p.String())

	_, err = ParsePolicy([]byte("fail_on: [nope"))
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = ParsePolicy([]byte("fail_on:\n  sections:\n    high: -1\n"))
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestLoadPolicy(t *testing.T) {
	t.Parallel()

	_, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrPolicyNotFound)

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: ok\n"), 0o644))
	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, "ok", p.Name)
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	zero, one, three := 0, 1, 3

	tests := []struct {
		name     string
		policy   Policy
		warnings int
		pass     bool
		failures int
	}{
		{"empty policy passes", Policy{}, 0, true, 0},
		{"high over zero", Policy{FailOn: FailOn{Sections: Thresholds{High: &zero}}}, 0, false, 1},
		{"high within one", Policy{FailOn: FailOn{Sections: Thresholds{High: &one}}}, 0, false, 1},
		{"total within limit after ignore", Policy{
			FailOn: FailOn{Sections: Thresholds{Total: &three}},
			Ignore: IgnoreSpec{Titles: []string{"target information"}},
		}, 0, true, 0},
		{"watched title rated", Policy{FailOn: FailOn{Titles: []string{"SQL Injection Check"}}}, 0, false, 1},
		{"watched title unrated", Policy{FailOn: FailOn{Titles: []string{"Reflected XSS Check"}}}, 0, true, 0},
		{"warnings", Policy{FailOn: FailOn{Warnings: true}}, 2, false, 1},
		{"warnings ignored by default", Policy{}, 2, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := tt.policy.Evaluate(snapshot(), tt.warnings)
			assert.Equal(t, tt.pass, res.Pass)
			assert.Len(t, res.Failures, tt.failures, res.Failures)
		})
	}
}

func TestEvaluateMessages(t *testing.T) {
	t.Parallel()

	zero := 0
	p := Policy{Name: "ci", FailOn: FailOn{Sections: Thresholds{High: &zero}}}
	res := p.Evaluate(snapshot(), 0)
	assert.Equal(t, "ci", res.PolicyName)
	assert.Equal(t, []string{"high sections (2) exceed threshold (0)"}, res.Failures)
}
