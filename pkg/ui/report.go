package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pentestflow/pentestflow/pkg/finding"
	"github.com/pentestflow/pentestflow/pkg/history"
	"github.com/pentestflow/pentestflow/pkg/output"
	"github.com/pentestflow/pentestflow/pkg/output/policy"
)

// RenderSummary prints the sections at or above min with their badges,
// followed by the artifact list and any artifact warnings.
func RenderSummary(w io.Writer, res *output.Result, min finding.Severity) {
	if res == nil {
		return
	}
	PrintSection(w, "Findings")
	rated := res.Snapshot.Filter(min)
	if len(rated) == 0 {
		fmt.Fprintln(w, HelpStyle.Render("  no sections at or above "+min.String()))
	}
	for _, r := range rated {
		fmt.Fprintf(w, "  %s %s\n", SeverityBadge(r.Level), r.Title)
	}

	counts := res.Snapshot.CountBySeverity()
	fmt.Fprintf(w, "\n  %d sections: %d high, %d medium, %d low\n",
		len(res.Snapshot.Sections), counts[finding.High], counts[finding.Medium], counts[finding.Low])

	if len(res.Artifacts) > 0 {
		PrintSection(w, "Reports saved to")
		for _, a := range res.Artifacts {
			fmt.Fprintf(w, "  - %s\n", PathStyle.Render(a.Path))
		}
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "  %s %s\n", WarningStyle.Render("[!]"), warn)
	}
}

// RenderPolicy prints the gate verdict.
func RenderPolicy(w io.Writer, res policy.Result) {
	if res.Pass {
		fmt.Fprintf(w, "%s policy %q passed\n", SuccessStyle.Render("[+]"), res.PolicyName)
		return
	}
	fmt.Fprintf(w, "%s policy %q failed\n", WarningStyle.Render("[!]"), res.PolicyName)
	for _, f := range res.Failures {
		fmt.Fprintf(w, "    - %s\n", f)
	}
}

// RenderHistory prints one line per run, newest first as given.
func RenderHistory(w io.Writer, records []*history.RunRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, HelpStyle.Render("no runs recorded"))
		return
	}
	for _, r := range records {
		sev := r.Highest()
		badge := strings.Repeat(" ", 8)
		if sev != "" {
			badge = SeverityBadge(sev)
		}
		fmt.Fprintf(w, "%s %s  %s %-8s %-30s %2d sections  risk %d\n",
			badge, shortID(r.ID), r.Timestamp.Format("2006-01-02 15:04"), r.Mode, r.Target, r.SectionCount, r.RiskScore())
	}
}

// RenderRecord prints one run in detail.
func RenderRecord(w io.Writer, r *history.RunRecord) {
	PrintOption(w, "ID", r.ID)
	PrintOption(w, "Target", r.Target)
	PrintOption(w, "Mode", TitleCase(r.Mode))
	PrintOption(w, "Started", r.Timestamp.Format("2006-01-02 15:04:05"))
	PrintOption(w, "Duration", r.Duration.String())
	PrintOption(w, "Sections", fmt.Sprint(r.SectionCount))
	for _, sev := range []finding.Severity{finding.High, finding.Medium, finding.Low} {
		PrintOption(w, sev.String(), fmt.Sprint(r.SeverityCounts[sev.String()]))
	}
	PrintOption(w, "Warnings", fmt.Sprint(r.Warnings))
	for _, a := range r.Artifacts {
		PrintOption(w, "Artifact", a)
	}
}

// RenderComparison prints the difference between two runs.
func RenderComparison(w io.Writer, c *history.ComparisonResult) {
	PrintOption(w, "Base", c.BaseID+" ("+c.BaseTimestamp.Format("2006-01-02 15:04")+")")
	PrintOption(w, "Compare", c.CompareID+" ("+c.CompareTimestamp.Format("2006-01-02 15:04")+")")
	PrintOption(w, "Sections", signed(c.SectionDelta))

	labels := make([]string, 0, len(c.SeverityDeltas))
	for l := range c.SeverityDeltas {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		return finding.Severity(labels[i]).Score() > finding.Severity(labels[j]).Score()
	})
	for _, l := range labels {
		PrintOption(w, l, signed(c.SeverityDeltas[l]))
	}
	PrintOption(w, "Risk", signed(c.RiskDelta))
	if c.Improved {
		fmt.Fprintln(w, SuccessStyle.Render("risk decreased"))
	} else if c.RiskDelta > 0 {
		fmt.Fprintln(w, WarningStyle.Render("risk increased"))
	}
}

// RenderStats prints store statistics.
func RenderStats(w io.Writer, s *history.StoreStats) {
	PrintOption(w, "Runs", fmt.Sprint(s.TotalRuns))
	PrintOption(w, "Targets", fmt.Sprint(s.UniqueTargets))
	if s.TotalRuns > 0 {
		PrintOption(w, "Oldest", s.OldestRun.Format("2006-01-02 15:04"))
		PrintOption(w, "Newest", s.NewestRun.Format("2006-01-02 15:04"))
	}
	PrintOption(w, "Size", fmt.Sprintf("%d bytes", s.StorageSizeBytes))
}

func signed(n int) string {
	return fmt.Sprintf("%+d", n)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
