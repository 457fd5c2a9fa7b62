// Package output collects report sections for one workflow run and writes
// the report artifacts.
//
// The Aggregator owns the ordered section list. Every appended section is
// written to the text artifact immediately; the remaining formats are
// rendered from a single snapshot when the run is finalized. Artifact I/O
// failures never abort the run: they are returned as warnings so the
// other formats still get written.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pentestflow/pentestflow/pkg/defaults"
	"github.com/pentestflow/pentestflow/pkg/finding"
	"github.com/pentestflow/pentestflow/pkg/output/dispatcher"
	"github.com/pentestflow/pentestflow/pkg/output/events"
	"github.com/pentestflow/pentestflow/pkg/output/writers"
	"github.com/pentestflow/pentestflow/pkg/report"
)

// ErrFinalized is returned when sections are added to, or a second
// finalize is requested from, a finalized report. Reset clears it.
var ErrFinalized = errors.New("report already finalized")

// Paths locates the report artifacts. Text and HTML are always written;
// an empty JSON or PDF path disables that format.
type Paths struct {
	Text string `yaml:"text"`
	HTML string `yaml:"html"`
	JSON string `yaml:"json"`
	PDF  string `yaml:"pdf"`
}

// DefaultPaths returns the standard artifact names in dir.
func DefaultPaths(dir string) Paths {
	return Paths{
		Text: filepath.Join(dir, defaults.TextReport),
		HTML: filepath.Join(dir, defaults.HTMLReport),
		JSON: filepath.Join(dir, defaults.JSONReport),
		PDF:  filepath.Join(dir, defaults.PDFReport),
	}
}

// Options configures an Aggregator.
type Options struct {
	Paths Paths

	// MinSeverity filters the HTML and JSON artifacts (default: Low).
	MinSeverity finding.Severity

	HTML writers.HTMLConfig
	PDF  writers.PDFConfig

	// Mode is recorded on the finalize event, e.g. "full".
	Mode string

	Logger     *slog.Logger
	Dispatcher *dispatcher.Dispatcher

	// Clock and NewID are replaceable for tests.
	Clock func() time.Time
	NewID func() string
}

// Result describes a finalized report.
type Result struct {
	Snapshot  report.Snapshot
	Artifacts []report.Artifact
	Warnings  []string
}

// Aggregator accumulates sections for one run. It is safe for concurrent
// use; sections keep the order in which Add acquired the lock.
type Aggregator struct {
	opts Options
	text *writers.TextWriter
	html *writers.HTMLWriter
	json *writers.JSONWriter
	pdf  *writers.PDFWriter

	mu        sync.Mutex
	sections  []report.Section
	finalized bool
	runID     string
	target    string
	started   time.Time
}

// New creates an Aggregator and resets its artifacts. The returned error
// reports a failed reset; the Aggregator is usable either way.
func New(opts Options) (*Aggregator, error) {
	if opts.Paths.Text == "" {
		opts.Paths.Text = defaults.TextReport
	}
	if opts.Paths.HTML == "" {
		opts.Paths.HTML = defaults.HTMLReport
	}
	if opts.MinSeverity == "" {
		opts.MinSeverity = finding.Low
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	opts.HTML.MinSeverity = opts.MinSeverity

	a := &Aggregator{
		opts: opts,
		text: writers.NewTextWriter(),
		html: writers.NewHTMLWriter(opts.HTML),
		json: writers.NewJSONWriter(writers.JSONConfig{MinSeverity: opts.MinSeverity}),
		pdf:  writers.NewPDFWriter(opts.PDF),
	}
	return a, a.Reset()
}

// Reset truncates the text artifact, deletes a stale PDF and clears all
// sections. It is idempotent. In-memory state is cleared even when the
// file operations fail.
func (a *Aggregator) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sections = nil
	a.finalized = false
	a.runID = a.opts.NewID()
	a.started = a.opts.Clock()

	var errs []error
	if err := truncate(a.opts.Paths.Text); err != nil {
		errs = append(errs, fmt.Errorf("reset text report: %w", err))
	}
	if p := a.opts.Paths.PDF; p != "" {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove stale pdf: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.opts.Logger.Warn("failed to clear previous reports", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// RunID identifies the current run. It changes on every Reset.
func (a *Aggregator) RunID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runID
}

// SetTarget records the normalized target shown in the artifacts.
func (a *Aggregator) SetTarget(target string) {
	target = strings.ToValidUTF8(target, "\uFFFD")
	a.mu.Lock()
	defer a.mu.Unlock()
	a.target = target
}

// AddSection appends an unrated section.
func (a *Aggregator) AddSection(title, content string) error {
	return a.Add(context.Background(), report.Section{Title: title, Content: content})
}

// Add appends s in memory and to the text artifact. A text write failure
// is returned, but the section is kept and will appear in the other
// artifacts.
func (a *Aggregator) Add(ctx context.Context, s report.Section) error {
	a.mu.Lock()
	if a.finalized {
		a.mu.Unlock()
		return ErrFinalized
	}
	s = sanitize(s)
	a.sections = append(a.sections, s)
	pos := len(a.sections) - 1
	runID := a.runID
	writeErr := a.appendText(s)
	a.mu.Unlock()

	a.opts.Dispatcher.Dispatch(ctx, &events.SectionEvent{
		BaseEvent: events.NewBase(events.EventTypeSection, runID),
		Position:  pos,
		Section:   s,
	})

	if writeErr != nil {
		a.opts.Logger.Warn("failed to append to text report",
			slog.String("section", s.Title),
			slog.String("path", a.opts.Paths.Text),
			slog.String("error", writeErr.Error()))
		return fmt.Errorf("append text report: %w", writeErr)
	}
	return nil
}

// sanitize replaces invalid UTF-8 so collected text (robots.txt bodies,
// scanner output, WHOIS) renders identically in every artifact.
func sanitize(s report.Section) report.Section {
	s.Title = strings.ToValidUTF8(s.Title, "\uFFFD")
	s.Content = strings.ToValidUTF8(s.Content, "\uFFFD")
	return s
}

// appendText opens, appends and closes the text artifact so each section
// is durable as soon as it is added.
func (a *Aggregator) appendText(s report.Section) error {
	f, err := os.OpenFile(a.opts.Paths.Text, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := a.text.Append(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Sections returns a copy of the current sections.
func (a *Aggregator) Sections() []report.Section {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]report.Section(nil), a.sections...)
}

// Finalize snapshots the sections and renders the HTML, JSON and PDF
// artifacts from that snapshot. Each format is written independently; a
// failure becomes a warning and does not stop the others.
func (a *Aggregator) Finalize(ctx context.Context) (*Result, error) {
	a.mu.Lock()
	if a.finalized {
		a.mu.Unlock()
		return nil, ErrFinalized
	}
	a.finalized = true
	snap := report.NewSnapshot(a.runID, a.target, a.opts.Clock(), a.sections)
	started := a.started
	a.mu.Unlock()

	res := &Result{Snapshot: snap}
	res.Artifacts = append(res.Artifacts, report.Artifact{Format: a.text.Format(), Path: a.opts.Paths.Text})

	targets := []struct {
		path     string
		renderer writers.Renderer
	}{
		{a.opts.Paths.HTML, a.html},
		{a.opts.Paths.JSON, a.json},
		{a.opts.Paths.PDF, a.pdf},
	}
	for _, t := range targets {
		if t.path == "" {
			continue
		}
		if err := renderFile(t.path, t.renderer, snap); err != nil {
			a.opts.Logger.Warn("failed to write report",
				slog.String("format", t.renderer.Format()),
				slog.String("path", t.path),
				slog.String("error", err.Error()))
			res.Warnings = append(res.Warnings, err.Error())
			continue
		}
		res.Artifacts = append(res.Artifacts, report.Artifact{Format: t.renderer.Format(), Path: t.path})
	}

	hookErrs := a.opts.Dispatcher.Dispatch(ctx, &events.FinalizedEvent{
		BaseEvent: events.NewBase(events.EventTypeFinalized, snap.RunID),
		Mode:      a.opts.Mode,
		Snapshot:  snap,
		Artifacts: res.Artifacts,
		Warnings:  res.Warnings,
		Duration:  snap.GeneratedAt.Sub(started),
	})
	for _, err := range hookErrs {
		res.Warnings = append(res.Warnings, "hook: "+err.Error())
	}

	a.opts.Logger.Info("report finalized",
		slog.String("run_id", snap.RunID),
		slog.Int("sections", len(snap.Sections)),
		slog.Int("artifacts", len(res.Artifacts)),
		slog.Int("warnings", len(res.Warnings)))
	return res, nil
}

// renderFile writes one artifact, removing the partial file on failure.
func renderFile(path string, r writers.Renderer, snap report.Snapshot) error {
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("%s: %w", r.Format(), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%s: %w", r.Format(), err)
	}
	if err := r.Render(f, snap); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%s: close: %w", r.Format(), err)
	}
	return nil
}

func truncate(path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return f.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
