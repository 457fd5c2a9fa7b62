package writers

import (
	"fmt"
	"io"

	"github.com/pentestflow/pentestflow/pkg/report"
)

var _ Renderer = (*TextWriter)(nil)

// TextWriter renders sections as "## title ##" blocks. It supports
// appending one block at a time so the text artifact grows as the
// workflow runs.
type TextWriter struct{}

// NewTextWriter creates a text renderer.
func NewTextWriter() *TextWriter {
	return &TextWriter{}
}

// FormatBlock returns the text block for a single section.
func FormatBlock(title, content string) string {
	return "\n## " + title + " ##\n" + content + "\n"
}

// Format returns "txt".
func (tw *TextWriter) Format() string { return "txt" }

// Append writes one section block to w.
func (tw *TextWriter) Append(w io.Writer, s report.Section) error {
	if _, err := io.WriteString(w, FormatBlock(s.Title, s.Content)); err != nil {
		return fmt.Errorf("txt: write %q: %w", s.Title, err)
	}
	return nil
}

// Render writes every section of snap in order.
func (tw *TextWriter) Render(w io.Writer, snap report.Snapshot) error {
	for _, s := range snap.Sections {
		if err := tw.Append(w, s); err != nil {
			return err
		}
	}
	return nil
}
