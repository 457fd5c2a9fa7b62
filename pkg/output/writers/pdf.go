package writers

import (
	"fmt"
	"io"
	"strings"

	gofpdf "github.com/go-pdf/fpdf"

	"github.com/pentestflow/pentestflow/pkg/defaults"
	"github.com/pentestflow/pentestflow/pkg/report"
)

var _ Renderer = (*PDFWriter)(nil)

// PDFConfig configures the PDF report writer. All lengths are in points.
type PDFConfig struct {
	// Title heads the first page (default: "Penetration Testing Report")
	Title string

	// Author is written into the document metadata (optional)
	Author string

	// PageSize is an fpdf page size name (default: "Letter")
	PageSize string

	Margin     float64 // default 40
	LineHeight float64 // default 14
	FontSize   float64 // default 12
}

// PDFWriter renders every section as a bold, underlined heading followed
// by word-wrapped content lines. It never filters by severity.
type PDFWriter struct {
	config PDFConfig

	// noCompress disables stream compression so tests can search the raw
	// bytes for text.
	noCompress bool
}

// NewPDFWriter creates a PDF renderer.
func NewPDFWriter(config PDFConfig) *PDFWriter {
	if config.Title == "" {
		config.Title = defaults.ReportTitle
	}
	if config.PageSize == "" {
		config.PageSize = defaults.PDFPageSize
	}
	if config.Margin <= 0 {
		config.Margin = defaults.PDFMargin
	}
	if config.LineHeight <= 0 {
		config.LineHeight = defaults.PDFLineHeight
	}
	if config.FontSize <= 0 {
		config.FontSize = defaults.PDFFontSize
	}
	return &PDFWriter{config: config}
}

// Format returns "pdf".
func (pw *PDFWriter) Format() string { return "pdf" }

// pdfPage tracks the text baseline on the current page.
type pdfPage struct {
	pdf    *gofpdf.Fpdf
	cfg    PDFConfig
	y      float64
	bottom float64
	tr     func(string) string
}

// fits reports whether n lines starting at the current baseline stay
// clear of the bottom margin.
func (p *pdfPage) fits(n int) bool {
	return p.y+float64(n)*p.cfg.LineHeight <= p.bottom
}

func (p *pdfPage) newPage() {
	p.pdf.AddPage()
	p.y = p.cfg.Margin
}

func (p *pdfPage) text(s string) {
	p.pdf.Text(p.cfg.Margin, p.y, p.tr(s))
	p.y += p.cfg.LineHeight
}

// Render writes the PDF document for snap.
func (pw *PDFWriter) Render(w io.Writer, snap report.Snapshot) error {
	cfg := pw.config

	pdf := gofpdf.New("P", "pt", cfg.PageSize, "")
	pdf.SetCompression(!pw.noCompress)
	pdf.SetMargins(cfg.Margin, cfg.Margin, cfg.Margin)
	pdf.SetAutoPageBreak(false, cfg.Margin)
	pdf.SetTitle(cfg.Title, true)
	pdf.SetCreator(defaults.ToolName+" "+defaults.Version, true)
	if cfg.Author != "" {
		pdf.SetAuthor(cfg.Author, true)
	}
	if !snap.GeneratedAt.IsZero() {
		pdf.SetCreationDate(snap.GeneratedAt)
		pdf.SetModificationDate(snap.GeneratedAt)
	}

	pageW, pageH := pdf.GetPageSize()
	maxWidth := pageW - 2*cfg.Margin
	page := &pdfPage{
		pdf:    pdf,
		cfg:    cfg,
		bottom: pageH - cfg.Margin,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
	}
	page.newPage()

	// Header block on the first page.
	pdf.SetFont("Helvetica", "B", defaults.PDFTitleSize)
	page.text(cfg.Title)
	pdf.SetFont("Helvetica", "", cfg.FontSize)
	page.text("Generated on: " + snap.GeneratedAt.Format(humanTime))
	page.y += cfg.LineHeight

	for _, sec := range snap.Sections {
		// A heading needs room for itself and one content line.
		if !page.fits(2) {
			page.newPage()
		}
		pdf.SetFont("Helvetica", "B", cfg.FontSize)
		title := latin1(sec.Title)
		underline := pdf.GetStringWidth(page.tr(title))
		pdf.Line(cfg.Margin, page.y+1, cfg.Margin+underline, page.y+1)
		page.text(title)

		pdf.SetFont("Helvetica", "", cfg.FontSize)
		for _, line := range contentLines(sec.Content) {
			for _, sub := range wrapLine(pdf, line, maxWidth) {
				if !page.fits(1) {
					page.newPage()
				}
				page.text(sub)
			}
		}
		page.y += cfg.LineHeight
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: output: %w", err)
	}
	return nil
}

// contentLines trims the content and splits it into logical lines, each
// trimmed and rendered for the core font encoding.
func contentLines(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	raw := strings.Split(content, "\n")
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = latin1(strings.TrimSpace(l))
	}
	return lines
}

// wrapLine splits line into pieces no wider than width using the current
// font. An empty line yields one empty piece so blank lines keep their
// vertical space.
func wrapLine(pdf *gofpdf.Fpdf, line string, width float64) []string {
	if line == "" {
		return []string{""}
	}
	return pdf.SplitText(line, width)
}

// latin1 replaces characters the core fonts cannot encode and expands
// tabs. Characters up to U+00FF are kept.
func latin1(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case r == '\r':
			return -1
		case r > 0xFF:
			return '?'
		}
		return r
	}, s)
}
