// Package scanner is the scan stage: it runs the port scanner against the
// resolved target address and matches the discovered services against the
// vulnerability knowledge table.
package scanner

import (
	"context"
	"log/slog"

	"github.com/pentestflow/pentestflow/pkg/nmap"
	"github.com/pentestflow/pentestflow/pkg/report"
	"github.com/pentestflow/pentestflow/pkg/target"
	"github.com/pentestflow/pentestflow/pkg/vulnmatch"
)

// Section titles.
const (
	TitlePorts = "Open Ports and Services"
	TitleVulns = "Known Vulnerability Check (Simulated)"
)

// PortScanner scans one address. *nmap.Runner satisfies it.
type PortScanner interface {
	Scan(ctx context.Context, ip string) nmap.Outcome
}

var _ PortScanner = (*nmap.Runner)(nil)

// Stage runs a PortScanner and a vulnmatch.Matcher.
type Stage struct {
	scanner PortScanner
	matcher *vulnmatch.Matcher
	logger  *slog.Logger
}

// New creates a scan stage. A nil matcher uses the built-in table.
func New(ps PortScanner, m *vulnmatch.Matcher, logger *slog.Logger) *Stage {
	if m == nil {
		m = vulnmatch.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{scanner: ps, matcher: m, logger: logger}
}

// Name returns "scan".
func (s *Stage) Name() string { return "scan" }

// Run scans the target's IP. Without a resolved IP it returns no sections.
// The vulnerability section is only emitted when the scan produced
// records; its severity is the highest finding, or unset when clean.
func (s *Stage) Run(ctx context.Context, t *target.Target) []report.Section {
	ip := t.IP()
	if ip == "" {
		s.logger.Info("skipping port scan, target address unresolved", slog.String("host", t.Hostname))
		return nil
	}

	out := s.scanner.Scan(ctx, ip)
	sections := []report.Section{{Title: TitlePorts, Content: out.Table}}
	if len(out.Records) == 0 {
		return sections
	}

	res := s.matcher.Match(out.Records)
	s.logger.Debug("service matching complete",
		slog.Int("records", len(out.Records)),
		slog.Int("findings", len(res.Findings)),
	)
	return append(sections, report.Section{
		Title:    TitleVulns,
		Content:  res.Summary(),
		Severity: res.Highest(),
	})
}
