package ui

import (
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pentestflow/pentestflow/pkg/finding"
)

// Palette
var (
	Primary   = lipgloss.Color("#2E6DA4")
	Secondary = lipgloss.Color("#00D4AA")

	High   = lipgloss.Color("#C0392B")
	Medium = lipgloss.Color("#E67E22")
	Low    = lipgloss.Color("#27AE60")

	Success = lipgloss.Color("#00D26A")
	Warning = lipgloss.Color("#FFB800")
	Muted   = lipgloss.Color("#6B7280")
)

var (
	BannerStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	VersionStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			MarginTop(1)

	ConfigLabelStyle = lipgloss.NewStyle().
				Foreground(Muted).
				Width(14)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	PathStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Underline(true)

	DividerStyle = lipgloss.NewStyle().
			Foreground(Muted)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)
)

var (
	titleCaser = cases.Title(language.English)
	upperCaser = cases.Upper(language.English)
)

// SeverityStyle returns the badge style for a severity.
func SeverityStyle(sev finding.Severity) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch sev {
	case finding.High:
		return base.Foreground(High)
	case finding.Medium:
		return base.Foreground(Medium)
	case finding.Low:
		return base.Foreground(Low)
	default:
		return base.Foreground(Muted)
	}
}

// SeverityBadge renders "[HIGH]" style badges padded to a fixed width.
func SeverityBadge(sev finding.Severity) string {
	label := "[" + upperCaser.String(sev.String()) + "]"
	return SeverityStyle(sev).Width(8).Render(label)
}

// TitleCase capitalizes each word, e.g. "full" becomes "Full".
func TitleCase(s string) string {
	return titleCaser.String(s)
}
