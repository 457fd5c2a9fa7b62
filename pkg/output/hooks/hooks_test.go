package hooks

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/pentestflow/pentestflow/pkg/finding"
	"github.com/pentestflow/pentestflow/pkg/output/dispatcher"
	"github.com/pentestflow/pentestflow/pkg/output/events"
	"github.com/pentestflow/pentestflow/pkg/report"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func base(t events.EventType, at time.Time) events.BaseEvent {
	return events.BaseEvent{Type: t, Time: at, Run: "run-1"}
}

// lifecycle returns a complete event sequence for one run.
func lifecycle(warnings ...string) []events.Event {
	sections := []report.Section{
		{Title: "Target Information", Content: "IP: 10.0.0.1"},
		{Title: "Known Vulnerability Check (Simulated)", Content: "OpenSSH", Severity: finding.High},
		{Title: "SQL Injection Check", Content: "Severity: Medium\nmaybe"},
	}
	snap := report.NewSnapshot("run-1", "http://example.com", t0.Add(3*time.Second), sections)

	evs := []events.Event{
		&events.RunStartedEvent{BaseEvent: base(events.EventTypeRunStarted, t0), Mode: "full", Target: "http://example.com", Stages: []string{"recon", "scan"}},
	}
	for i, s := range sections {
		evs = append(evs, &events.SectionEvent{BaseEvent: base(events.EventTypeSection, t0.Add(time.Second)), Position: i, Section: s})
	}
	evs = append(evs,
		&events.StageEvent{BaseEvent: base(events.EventTypeStage, t0.Add(time.Second)), Stage: "recon", Started: t0, Duration: time.Second, Sections: 1},
		&events.StageEvent{BaseEvent: base(events.EventTypeStage, t0.Add(3*time.Second)), Stage: "scan", Started: t0.Add(time.Second), Duration: 2 * time.Second, Sections: 2},
		&events.FinalizedEvent{
			BaseEvent: base(events.EventTypeFinalized, t0.Add(3*time.Second)),
			Mode:      "full",
			Snapshot:  snap,
			Artifacts: []report.Artifact{{Format: "txt", Path: "pentest_report.txt"}, {Format: "html", Path: "pentest_report.html"}},
			Warnings:  warnings,
			Duration:  3 * time.Second,
		},
	)
	return evs
}

func replay(t *testing.T, h dispatcher.Hook, evs []events.Event) {
	t.Helper()
	d := dispatcher.New(nil)
	d.RegisterHook(h)
	for _, e := range evs {
		require.Empty(t, d.Dispatch(context.Background(), e))
	}
}

func TestLoggerHook(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	replay(t, NewLoggerHook(logger), lifecycle("pdf: disk full"))

	out := buf.String()
	assert.Contains(t, out, `msg="run started"`)
	assert.Contains(t, out, "mode=full")
	assert.Contains(t, out, `msg="section added"`)
	assert.Contains(t, out, "severity_source=marker")
	assert.Contains(t, out, "stage=scan")
	assert.Contains(t, out, `msg="report finalized with warnings"`)
	assert.Contains(t, out, "run_id=run-1")
}

func TestPrometheusHookTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pentestflow.prom")
	h, err := NewPrometheusHook(PrometheusOptions{TextfilePath: path})
	require.NoError(t, err)
	defer h.Close()

	replay(t, h, lifecycle("html: permission denied"))

	assert.Equal(t, 1.0, testutil.ToFloat64(h.runsTotal.WithLabelValues("full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.sectionsTotal.WithLabelValues("High", "explicit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.sectionsTotal.WithLabelValues("Medium", "marker")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.sectionsTotal.WithLabelValues("Low", "default")))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.stageDuration.WithLabelValues("scan")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.warningsTotal))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "pentestflow_runs_total{mode=\"full\"} 1")
	assert.Contains(t, text, "pentestflow_run_duration_seconds 3")
}

func TestPrometheusHookHandler(t *testing.T) {
	h, err := NewPrometheusHook(PrometheusOptions{})
	require.NoError(t, err)
	replay(t, h, lifecycle())

	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pentestflow_stage_duration_seconds{stage=\"recon\"} 1")

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
}

func TestOTelHookSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	h, err := NewOTelHook(OTelOptions{Exporter: exp, ShutdownTimeout: time.Second})
	require.NoError(t, err)

	replay(t, h, lifecycle())
	require.NoError(t, h.Close())

	spans := exp.GetSpans()
	require.Len(t, spans, 3)

	byName := map[string]tracetest.SpanStub{}
	for _, s := range spans {
		byName[s.Name] = s
	}
	root, ok := byName["pentestflow.run"]
	require.True(t, ok)
	scan, ok := byName["stage.scan"]
	require.True(t, ok)

	assert.Equal(t, root.SpanContext.TraceID(), scan.SpanContext.TraceID())
	assert.Equal(t, root.SpanContext.SpanID(), scan.Parent.SpanID())
	assert.True(t, scan.StartTime.Equal(t0.Add(time.Second)))
	assert.True(t, scan.EndTime.Equal(t0.Add(3*time.Second)))
	assert.Equal(t, codes.Ok, root.Status.Code)
	assert.Len(t, root.Events, 3)
}

func TestOTelHookWarningsMarkError(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	h, err := NewOTelHook(OTelOptions{Exporter: exp})
	require.NoError(t, err)

	replay(t, h, lifecycle("json: boom"))
	require.NoError(t, h.Close())

	for _, s := range exp.GetSpans() {
		if s.Name == "pentestflow.run" {
			assert.Equal(t, codes.Error, s.Status.Code)
			assert.True(t, strings.Contains(s.Status.Description, "1 artifact warnings"))
		}
	}
}

func TestHistoryHook(t *testing.T) {
	dir := t.TempDir()
	h, err := NewHistoryHook(HistoryHookOptions{StorePath: dir, Keep: 5})
	require.NoError(t, err)
	defer h.Close()

	replay(t, h, lifecycle("pdf: failed"))

	rec, err := h.Store().Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", rec.Target)
	assert.Equal(t, "full", rec.Mode)
	assert.Equal(t, 3, rec.SectionCount)
	assert.Equal(t, map[string]int{"Low": 1, "Medium": 1, "High": 1}, rec.SeverityCounts)
	assert.Equal(t, []string{"pentest_report.txt", "pentest_report.html"}, rec.Artifacts)
	assert.Equal(t, 1, rec.Warnings)
	assert.Equal(t, 3*time.Second, rec.Duration)
}
