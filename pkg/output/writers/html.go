package writers

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/Masterminds/sprig/v3"

	"github.com/pentestflow/pentestflow/pkg/defaults"
	"github.com/pentestflow/pentestflow/pkg/finding"
	"github.com/pentestflow/pentestflow/pkg/report"
)

var _ Renderer = (*HTMLWriter)(nil)

// HTMLConfig configures the HTML report writer.
type HTMLConfig struct {
	// Title is the document title (default: "Penetration Testing Report")
	Title string

	// MinSeverity drops sections ranked below it (default: Low, keeps all)
	MinSeverity finding.Severity

	// Theme sets the colour scheme: "light" or "dark" (default: "light")
	Theme string
}

// HTMLWriter renders a single self-contained HTML document. Section content
// is escaped by html/template and shown preformatted.
type HTMLWriter struct {
	config HTMLConfig
	tmpl   *template.Template
}

// NewHTMLWriter creates an HTML renderer. The template is parsed once.
func NewHTMLWriter(config HTMLConfig) *HTMLWriter {
	if config.Title == "" {
		config.Title = defaults.ReportTitle
	}
	if config.MinSeverity == "" {
		config.MinSeverity = finding.Low
	}
	if config.Theme == "" {
		config.Theme = "light"
	}
	funcMap := sprig.FuncMap()
	funcMap["sevClass"] = severityClass
	tmpl := template.Must(template.New("report").Funcs(funcMap).Parse(htmlTemplate))
	return &HTMLWriter{config: config, tmpl: tmpl}
}

// Format returns "html".
func (hw *HTMLWriter) Format() string { return "html" }

type htmlSection struct {
	ID      string
	Title   string
	Content string
	Level   string
	Source  string
}

type htmlData struct {
	Title       string
	Theme       string
	GeneratedOn string
	Target      string
	RunID       string
	MinSeverity string
	Total       int
	Shown       int
	Counts      []htmlCount
	Sections    []htmlSection
}

type htmlCount struct {
	Level string
	Count int
}

func (hw *HTMLWriter) prepare(snap report.Snapshot) htmlData {
	kept := snap.Filter(hw.config.MinSeverity)
	counts := make(map[finding.Severity]int)
	sections := make([]htmlSection, 0, len(kept))
	for _, r := range kept {
		// Unknown marker labels rank as Low, so count them there.
		if r.Level.IsValid() {
			counts[r.Level]++
		} else {
			counts[finding.Low]++
		}
		sections = append(sections, htmlSection{
			ID:      r.ID,
			Title:   r.Title,
			Content: r.Content,
			Level:   string(r.Level),
			Source:  string(r.Source),
		})
	}

	// Highest first for the summary strip.
	var summary []htmlCount
	for i := len(finding.Levels) - 1; i >= 0; i-- {
		lvl := finding.Levels[i]
		summary = append(summary, htmlCount{Level: string(lvl), Count: counts[lvl]})
	}

	return htmlData{
		Title:       hw.config.Title,
		Theme:       hw.config.Theme,
		GeneratedOn: snap.GeneratedAt.Format(humanTime),
		Target:      snap.Target,
		RunID:       snap.RunID,
		MinSeverity: string(hw.config.MinSeverity),
		Total:       len(snap.Sections),
		Shown:       len(sections),
		Counts:      summary,
		Sections:    sections,
	}
}

// Render writes the HTML document for snap.
func (hw *HTMLWriter) Render(w io.Writer, snap report.Snapshot) error {
	if err := hw.tmpl.Execute(w, hw.prepare(snap)); err != nil {
		return fmt.Errorf("html: execute template: %w", err)
	}
	return nil
}

// severityClass maps a level to its CSS class. Unknown labels share the
// low styling since they rank as Low.
func severityClass(level string) string {
	switch finding.Severity(level) {
	case finding.High, finding.Medium:
		return "sev-" + strings.ToLower(level)
	default:
		return "sev-low"
	}
}

// htmlTemplate is the embedded document template.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en" data-theme="{{ .Theme }}">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<meta name="generator" content="pentestflow">
<title>{{ .Title }}</title>
<style>
:root {
  --bg: #ffffff;
  --bg-pre: #f4f4f4;
  --text: #212529;
  --muted: #6c757d;
  --border: #cccccc;
  --sev-high: #d32f2f;
  --sev-medium: #f9a825;
  --sev-low: #2e7d32;
}
[data-theme="dark"] {
  --bg: #1a1d21;
  --bg-pre: #24282d;
  --text: #e9ecef;
  --muted: #adb5bd;
  --border: #495057;
}
body { font-family: sans-serif; margin: 20px; background: var(--bg); color: var(--text); }
h2 { color: #d32f2f; margin-bottom: 4px; }
pre { background: var(--bg-pre); padding: 10px; border-left: 4px solid var(--border); white-space: pre-wrap; word-wrap: break-word; }
.meta { color: var(--muted); }
.badge { display: inline-block; padding: 2px 8px; border-radius: 10px; font-size: 0.8em; color: #fff; }
.sev-high { background: var(--sev-high); }
.sev-medium { background: var(--sev-medium); }
.sev-low { background: var(--sev-low); }
.section.sev-high pre { border-left-color: var(--sev-high); }
.section { background: none; }
.summary span { margin-right: 12px; }
.source { color: var(--muted); font-size: 0.8em; }
@media print { .badge { border: 1px solid #000; color: #000; } }
</style>
</head>
<body>
<h1>{{ .Title }}</h1>
<p class="meta"><strong>Generated on:</strong> {{ .GeneratedOn }}</p>
{{- with .Target }}
<p class="meta"><strong>Target:</strong> {{ . }}</p>
{{- end }}
{{- with .RunID }}
<p class="meta"><strong>Run:</strong> {{ . }}</p>
{{- end }}
<p class="summary">
{{- range .Counts }}
<span><span class="badge {{ sevClass .Level }}">{{ .Level | upper }}</span> {{ .Count }}</span>
{{- end }}
<span class="meta">{{ .Shown }} of {{ .Total }} sections at {{ .MinSeverity | lower }} or above</span>
</p>
{{- range .Sections }}
<div class="section {{ sevClass .Level }}" id="{{ .ID }}">
<h2>{{ .Title }}</h2>
<span class="badge {{ sevClass .Level }}">{{ default "Low" .Level }}</span>
{{- if ne .Source "explicit" }} <span class="source">({{ .Source }})</span>{{ end }}
<pre>{{ .Content }}</pre>
</div>
{{- end }}
</body>
</html>
`
