package writers

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pentestflow/pentestflow/pkg/finding"
	"github.com/pentestflow/pentestflow/pkg/jsonutil"
	"github.com/pentestflow/pentestflow/pkg/report"
)

var _ Renderer = (*JSONWriter)(nil)

// JSONConfig configures the JSON report writer.
type JSONConfig struct {
	// MinSeverity drops sections ranked below it (default: Low, keeps all)
	MinSeverity finding.Severity

	// IndentSize sets the number of spaces for indentation (default 4)
	IndentSize int
}

// JSONDocument is the top-level JSON artifact.
type JSONDocument struct {
	GeneratedOn string        `json:"generated_on"`
	RunID       string        `json:"run_id,omitempty"`
	Target      string        `json:"target,omitempty"`
	MinSeverity string        `json:"min_severity"`
	Sections    []JSONSection `json:"sections"`
}

// JSONSection is one rendered section. SeveritySource tells consumers
// whether the severity was stated by the producer, parsed from a content
// marker, or defaulted.
type JSONSection struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Severity       string `json:"severity"`
	SeveritySource string `json:"severity_source"`
	Content        string `json:"content"`
}

// JSONWriter renders a filtered snapshot as one JSON document.
type JSONWriter struct {
	config JSONConfig
}

// NewJSONWriter creates a JSON renderer.
func NewJSONWriter(config JSONConfig) *JSONWriter {
	if config.MinSeverity == "" {
		config.MinSeverity = finding.Low
	}
	if config.IndentSize <= 0 {
		config.IndentSize = 4
	}
	return &JSONWriter{config: config}
}

// Format returns "json".
func (jw *JSONWriter) Format() string { return "json" }

// Document builds the JSON document for snap without encoding it.
func (jw *JSONWriter) Document(snap report.Snapshot) JSONDocument {
	kept := snap.Filter(jw.config.MinSeverity)
	doc := JSONDocument{
		GeneratedOn: snap.GeneratedAt.Format(time.RFC3339),
		RunID:       snap.RunID,
		Target:      validUTF8(snap.Target),
		MinSeverity: string(jw.config.MinSeverity),
		Sections:    make([]JSONSection, 0, len(kept)),
	}
	for _, r := range kept {
		doc.Sections = append(doc.Sections, JSONSection{
			ID:             r.ID,
			Title:          validUTF8(r.Title),
			Severity:       string(r.Level),
			SeveritySource: string(r.Source),
			Content:        validUTF8(r.Content),
		})
	}
	return doc
}

// validUTF8 replaces invalid sequences, which the encoder rejects.
func validUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// Render encodes the document for snap to w.
func (jw *JSONWriter) Render(w io.Writer, snap report.Snapshot) error {
	encoder := jsonutil.NewStreamEncoder(w)
	encoder.SetIndent("", strings.Repeat(" ", jw.config.IndentSize))
	if err := encoder.Encode(jw.Document(snap)); err != nil {
		return fmt.Errorf("json: encode: %w", err)
	}
	return nil
}

// ReadJSONDocument decodes a JSON artifact.
func ReadJSONDocument(r io.Reader) (JSONDocument, error) {
	var doc JSONDocument
	if err := jsonutil.Decode(r, &doc); err != nil {
		return JSONDocument{}, fmt.Errorf("json: decode: %w", err)
	}
	return doc, nil
}
