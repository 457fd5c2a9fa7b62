// Package writers renders a report snapshot into the supported artifact
// formats: plain text, HTML, JSON and PDF.
//
// Every renderer implements Renderer and receives the same snapshot, so
// the artifacts of one run always agree on section order and content.
// HTML and JSON apply a minimum-severity filter; text and PDF never filter.
package writers

import (
	"io"

	"github.com/pentestflow/pentestflow/pkg/report"
)

// Renderer writes a complete report artifact for snap to w.
// Renderers do not close w.
type Renderer interface {
	Format() string
	Render(w io.Writer, snap report.Snapshot) error
}

// Timestamp layout shared by the human-readable formats.
const humanTime = "2006-01-02 15:04:05"
