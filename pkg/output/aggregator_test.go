package output

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentestflow/pentestflow/pkg/finding"
	"github.com/pentestflow/pentestflow/pkg/output/dispatcher"
	"github.com/pentestflow/pentestflow/pkg/output/events"
	"github.com/pentestflow/pentestflow/pkg/output/writers"
	"github.com/pentestflow/pentestflow/pkg/report"
)

func newTestAggregator(t *testing.T, mutate func(*Options)) (*Aggregator, Paths) {
	t.Helper()
	paths := DefaultPaths(t.TempDir())
	opts := Options{
		Paths: paths,
		Clock: func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
		NewID: func() string { return "run-fixed" },
	}
	if mutate != nil {
		mutate(&opts)
	}
	agg, err := New(opts)
	require.NoError(t, err)
	return agg, opts.Paths
}

func readJSON(t *testing.T, path string) writers.JSONDocument {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	doc, err := writers.ReadJSONDocument(f)
	require.NoError(t, err)
	return doc
}

func TestFinalizeEmptyReport(t *testing.T) {
	t.Parallel()

	agg, paths := newTestAggregator(t, nil)
	res, err := agg.Finalize(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Artifacts, 4)

	txt, err := os.ReadFile(paths.Text)
	require.NoError(t, err)
	assert.Empty(t, txt)

	doc := readJSON(t, paths.JSON)
	assert.Empty(t, doc.Sections)
	assert.Equal(t, "run-fixed", doc.RunID)

	html, err := os.ReadFile(paths.HTML)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Penetration Testing Report")

	raw, err := os.ReadFile(paths.PDF)
	require.NoError(t, err)
	require.NoError(t, pdfapi.Validate(bytes.NewReader(raw), nil))
}

func TestAddSectionStreamsText(t *testing.T) {
	t.Parallel()

	agg, paths := newTestAggregator(t, nil)
	require.NoError(t, agg.AddSection("Target Information", "Target: http://example.com"))

	txt, err := os.ReadFile(paths.Text)
	require.NoError(t, err)
	assert.Equal(t, "\n## Target Information ##\nTarget: http://example.com\n", string(txt))

	require.NoError(t, agg.AddSection("HTTP Headers", "Server: nginx"))
	txt, err = os.ReadFile(paths.Text)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(txt), "\n## HTTP Headers ##\nServer: nginx\n"))
}

func TestFinalizePreservesOrder(t *testing.T) {
	t.Parallel()

	agg, paths := newTestAggregator(t, nil)
	titles := []string{"Target Information", "HTTP Headers", "robots.txt Content", "WHOIS Information", "Open Ports and Services"}
	for _, title := range titles {
		require.NoError(t, agg.AddSection(title, "content for "+title))
	}
	_, err := agg.Finalize(context.Background())
	require.NoError(t, err)

	doc := readJSON(t, paths.JSON)
	var got []string
	for _, s := range doc.Sections {
		got = append(got, s.Title)
	}
	assert.Equal(t, titles, got)
}

func TestFinalizeAppliesMinSeverity(t *testing.T) {
	t.Parallel()

	agg, paths := newTestAggregator(t, func(o *Options) { o.MinSeverity = finding.Medium })
	ctx := context.Background()
	require.NoError(t, agg.AddSection("A", "Severity: High"))
	require.NoError(t, agg.AddSection("B", "Severity: Low"))
	require.NoError(t, agg.AddSection("C", "unmarked"))
	require.NoError(t, agg.Add(ctx, report.Section{Title: "D", Content: "x", Severity: finding.Medium}))
	_, err := agg.Finalize(ctx)
	require.NoError(t, err)

	doc := readJSON(t, paths.JSON)
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "A", doc.Sections[0].Title)
	assert.Equal(t, "D", doc.Sections[1].Title)

	html, err := os.ReadFile(paths.HTML)
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<h2>B</h2>")

	// The text artifact never filters.
	txt, err := os.ReadFile(paths.Text)
	require.NoError(t, err)
	assert.Contains(t, string(txt), "## B ##")
	assert.Contains(t, string(txt), "## C ##")
}

func TestResetRemovesStalePDF(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := DefaultPaths(dir)
	require.NoError(t, os.WriteFile(paths.PDF, []byte("%PDF-stale"), 0o644))
	require.NoError(t, os.WriteFile(paths.Text, []byte("old run"), 0o644))

	_, err := New(Options{Paths: paths})
	require.NoError(t, err)

	_, err = os.Stat(paths.PDF)
	assert.True(t, os.IsNotExist(err))
	txt, err := os.ReadFile(paths.Text)
	require.NoError(t, err)
	assert.Empty(t, txt)
}

func TestAddAfterFinalize(t *testing.T) {
	t.Parallel()

	agg, _ := newTestAggregator(t, nil)
	require.NoError(t, agg.AddSection("A", "a"))
	_, err := agg.Finalize(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, agg.AddSection("late", "x"), ErrFinalized)
	_, err = agg.Finalize(context.Background())
	assert.ErrorIs(t, err, ErrFinalized)
	assert.Len(t, agg.Sections(), 1)

	require.NoError(t, agg.Reset())
	assert.Empty(t, agg.Sections())
	require.NoError(t, agg.AddSection("B", "b"))
	assert.Len(t, agg.Sections(), 1)
}

func TestResetIsIdempotent(t *testing.T) {
	t.Parallel()

	agg, paths := newTestAggregator(t, nil)
	require.NoError(t, agg.AddSection("A", "a"))
	require.NoError(t, agg.Reset())
	require.NoError(t, agg.Reset())

	txt, err := os.ReadFile(paths.Text)
	require.NoError(t, err)
	assert.Empty(t, txt)
	assert.Empty(t, agg.Sections())
}

func TestTextWriteFailureKeepsSection(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := DefaultPaths(dir)
	paths.Text = dir // a directory cannot be opened for writing

	agg, err := New(Options{Paths: paths})
	assert.Error(t, err)

	err = agg.AddSection("A", "Severity: High")
	assert.Error(t, err)
	assert.Len(t, agg.Sections(), 1)

	res, err := agg.Finalize(context.Background())
	require.NoError(t, err)
	doc := readJSON(t, paths.JSON)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "High", doc.Sections[0].Severity)
	assert.Empty(t, res.Warnings)
}

func TestRendererFailureIsolated(t *testing.T) {
	t.Parallel()

	agg, paths := newTestAggregator(t, nil)
	require.NoError(t, os.MkdirAll(paths.HTML, 0o755)) // HTML path occupied by a directory

	require.NoError(t, agg.AddSection("A", "a"))
	res, err := agg.Finalize(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "html")

	var formats []string
	for _, a := range res.Artifacts {
		formats = append(formats, a.Format)
	}
	assert.Equal(t, []string{"txt", "json", "pdf"}, formats)
	assert.FileExists(t, paths.JSON)
	assert.FileExists(t, paths.PDF)
}

func TestOptionalFormatsDisabled(t *testing.T) {
	t.Parallel()

	agg, paths := newTestAggregator(t, func(o *Options) {
		o.Paths.JSON = ""
		o.Paths.PDF = ""
	})
	res, err := agg.Finalize(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Artifacts, 2)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(paths.Text), "pentest_report.json"))
}

func TestConcurrentAdd(t *testing.T) {
	t.Parallel()

	agg, paths := newTestAggregator(t, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, agg.AddSection(fmt.Sprintf("S%02d", i), "body"))
		}(i)
	}
	wg.Wait()

	assert.Len(t, agg.Sections(), 50)
	txt, err := os.ReadFile(paths.Text)
	require.NoError(t, err)
	assert.Equal(t, 50, strings.Count(string(txt), "\n## S"))

	// Text and JSON agree on the order that won the lock.
	_, err = agg.Finalize(context.Background())
	require.NoError(t, err)
	doc := readJSON(t, paths.JSON)
	var txtOrder []string
	for _, line := range strings.Split(string(txt), "\n") {
		if strings.HasPrefix(line, "## ") {
			txtOrder = append(txtOrder, strings.TrimSuffix(strings.TrimPrefix(line, "## "), " ##"))
		}
	}
	var jsonOrder []string
	for _, s := range doc.Sections {
		jsonOrder = append(jsonOrder, s.Title)
	}
	assert.Equal(t, txtOrder, jsonOrder)
}

type captureHook struct {
	mu     sync.Mutex
	events []events.Event
}

func (h *captureHook) OnEvent(_ context.Context, e events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

func (h *captureHook) EventTypes() []events.EventType { return nil }

func TestHooksReceiveEvents(t *testing.T) {
	t.Parallel()

	hook := &captureHook{}
	d := dispatcher.New(nil)
	d.RegisterHook(hook)

	agg, _ := newTestAggregator(t, func(o *Options) {
		o.Dispatcher = d
		o.Mode = "scan"
	})
	agg.SetTarget("http://example.com")
	require.NoError(t, agg.AddSection("A", "a"))
	res, err := agg.Finalize(context.Background())
	require.NoError(t, err)

	require.Len(t, hook.events, 2)
	sec, ok := hook.events[0].(*events.SectionEvent)
	require.True(t, ok)
	assert.Equal(t, 0, sec.Position)
	assert.Equal(t, "run-fixed", sec.RunID())

	fin, ok := hook.events[1].(*events.FinalizedEvent)
	require.True(t, ok)
	assert.Equal(t, "scan", fin.Mode)
	assert.Equal(t, "http://example.com", fin.Snapshot.Target)
	assert.Equal(t, res.Artifacts, fin.Artifacts)
}

func TestFinalizeInvalidUTF8KeepsEveryArtifact(t *testing.T) {
	t.Parallel()

	agg, paths := newTestAggregator(t, nil)
	require.NoError(t, agg.AddSection("robots.txt Content", "Disallow: /caf\xe9"))
	res, err := agg.Finalize(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Artifacts, 4)

	doc := readJSON(t, paths.JSON)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Disallow: /caf\uFFFD", doc.Sections[0].Content)

	txt, err := os.ReadFile(paths.Text)
	require.NoError(t, err)
	assert.Contains(t, string(txt), "Disallow: /caf\uFFFD")
}
