package ui

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentestflow/pentestflow/pkg/finding"
	"github.com/pentestflow/pentestflow/pkg/history"
	"github.com/pentestflow/pentestflow/pkg/output"
	"github.com/pentestflow/pentestflow/pkg/output/policy"
	"github.com/pentestflow/pentestflow/pkg/report"
	"github.com/pentestflow/pentestflow/pkg/workflow"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func TestSeverityBadge(t *testing.T) {
	assert.Equal(t, "[HIGH]  ", SeverityBadge(finding.High))
	assert.Equal(t, "[LOW]   ", SeverityBadge(finding.Low))
	assert.Equal(t, "Full", TitleCase("full"))
}

func TestRenderSummary(t *testing.T) {
	res := &output.Result{
		Snapshot: report.NewSnapshot("run", "http://example.com", time.Now(), []report.Section{
			{Title: "Target Information", Content: "URL: http://example.com"},
			{Title: "SQL Injection Check", Content: "Severity: High\nParameter: id"},
		}),
		Artifacts: []report.Artifact{{Format: "txt", Path: "out/pentest_report.txt"}},
		Warnings:  []string{"pdf: disk full"},
	}

	var buf bytes.Buffer
	RenderSummary(&buf, res, finding.Low)
	out := buf.String()

	assert.Contains(t, out, "[HIGH]   SQL Injection Check")
	assert.Contains(t, out, "[LOW]    Target Information")
	assert.Contains(t, out, "2 sections: 1 high, 0 medium, 1 low")
	assert.Contains(t, out, "out/pentest_report.txt")
	assert.Contains(t, out, "[!] pdf: disk full")

	buf.Reset()
	RenderSummary(&buf, res, finding.High)
	assert.NotContains(t, buf.String(), "Target Information")
}

func TestRenderSummaryNil(t *testing.T) {
	var buf bytes.Buffer
	RenderSummary(&buf, nil, finding.Low)
	assert.Empty(t, buf.String())
}

func TestRenderPolicy(t *testing.T) {
	var buf bytes.Buffer
	RenderPolicy(&buf, policy.Result{Pass: true, PolicyName: "ci"})
	assert.Contains(t, buf.String(), `policy "ci" passed`)

	buf.Reset()
	RenderPolicy(&buf, policy.Result{PolicyName: "ci", Failures: []string{"1 artifact warnings"}})
	assert.Contains(t, buf.String(), `policy "ci" failed`)
	assert.Contains(t, buf.String(), "- 1 artifact warnings")
}

func TestRenderHistory(t *testing.T) {
	var buf bytes.Buffer
	RenderHistory(&buf, nil)
	assert.Contains(t, buf.String(), "no runs recorded")

	buf.Reset()
	RenderHistory(&buf, []*history.RunRecord{{
		ID:             "0123456789abcdef",
		Timestamp:      time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		Target:         "http://example.com",
		Mode:           "full",
		SectionCount:   3,
		SeverityCounts: map[string]int{"High": 1, "Low": 2},
	}})
	out := buf.String()
	assert.Contains(t, out, "[HIGH]")
	assert.Contains(t, out, "01234567 2026-03-01 12:30")
	assert.Contains(t, out, "risk 5")
	assert.NotContains(t, out, "89abcdef")
}

func TestRenderComparison(t *testing.T) {
	var buf bytes.Buffer
	RenderComparison(&buf, &history.ComparisonResult{
		BaseID:         "a",
		CompareID:      "b",
		SectionDelta:   -1,
		SeverityDeltas: map[string]int{"High": -1, "Low": 0, "Medium": 0},
		RiskDelta:      -3,
		Improved:       true,
	})
	out := buf.String()
	assert.Contains(t, out, "-1")
	assert.Contains(t, out, "risk decreased")
	assert.Less(t, strings.Index(out, "High"), strings.Index(out, "Medium"))
	assert.Less(t, strings.Index(out, "Medium"), strings.Index(out, "Low"))
}

func TestMenu(t *testing.T) {
	var out bytes.Buffer
	target, mode, err := Menu(strings.NewReader("http://example.com\n9\nabc\n3\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", target)
	assert.Equal(t, workflow.ModeScan, mode)
	assert.Equal(t, 2, strings.Count(out.String(), "Invalid option. Please enter a number between 1 and 5."))
	assert.Contains(t, out.String(), "4. Exploitation Only")
}

func TestMenuExit(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Menu(strings.NewReader("http://example.com\n5\n"), &out)
	assert.ErrorIs(t, err, ErrMenuExit)
	assert.Contains(t, out.String(), "Exiting.")

	_, _, err = Menu(strings.NewReader(""), &out)
	assert.ErrorIs(t, err, ErrMenuExit)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "v1.2.0")

	buf.Reset()
	PrintRunConfig(&buf, "http://example.com", "recon", "Low", "reports")
	assert.Contains(t, buf.String(), "Recon")
	assert.Contains(t, buf.String(), "http://example.com")
}
