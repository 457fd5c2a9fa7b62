package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pentestflow/pentestflow/pkg/defaults"
	"github.com/pentestflow/pentestflow/pkg/output/dispatcher"
	"github.com/pentestflow/pentestflow/pkg/output/events"
)

var _ dispatcher.Hook = (*PrometheusHook)(nil)

// PrometheusHook maintains run metrics in a private registry. Metrics are
// written to a node-exporter textfile when the report is finalized and,
// when ListenAddr is set, served over HTTP for the life of the process.
type PrometheusHook struct {
	registry *prometheus.Registry
	opts     PrometheusOptions
	server   *http.Server

	runsTotal          *prometheus.CounterVec
	sectionsTotal      *prometheus.CounterVec
	warningsTotal      prometheus.Counter
	stageDuration      *prometheus.GaugeVec
	runDurationSeconds prometheus.Gauge

	mu     sync.Mutex
	closed bool
}

// PrometheusOptions configures the Prometheus hook.
type PrometheusOptions struct {
	// TextfilePath receives the metrics on every finalize. Empty disables.
	TextfilePath string

	// ListenAddr serves /metrics, e.g. ":9090". Empty disables.
	ListenAddr string

	Logger *slog.Logger
}

// NewPrometheusHook creates the hook and, if configured, starts the
// metrics server.
func NewPrometheusHook(opts PrometheusOptions) (*PrometheusHook, error) {
	opts.Logger = orDefault(opts.Logger)
	h := &PrometheusHook{registry: prometheus.NewRegistry(), opts: opts}
	if err := h.initMetrics(); err != nil {
		return nil, fmt.Errorf("prometheus: init metrics: %w", err)
	}
	if opts.ListenAddr != "" {
		h.startServer()
	}
	return h, nil
}

func (h *PrometheusHook) initMetrics() error {
	ns := defaults.ToolName

	h.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "runs_total",
		Help:      "Workflow runs started, by mode.",
	}, []string{"mode"})

	h.sectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "sections_total",
		Help:      "Report sections appended, by effective severity and its source.",
	}, []string{"severity", "source"})

	h.warningsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "artifact_warnings_total",
		Help:      "Artifact and hook failures reported at finalize.",
	})

	h.stageDuration = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "stage_duration_seconds",
		Help:      "Duration of the most recent run of each stage.",
	}, []string{"stage"})

	h.runDurationSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "run_duration_seconds",
		Help:      "Duration of the most recent run, reset to finalize.",
	})

	for _, c := range []prometheus.Collector{
		h.runsTotal, h.sectionsTotal, h.warningsTotal, h.stageDuration, h.runDurationSeconds,
	} {
		if err := h.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (h *PrometheusHook) startServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h.Handler())
	h.server = &http.Server{
		Addr:              h.opts.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: defaults.ReconTimeout,
	}
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.opts.Logger.Warn("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
}

// Handler serves the hook's registry.
func (h *PrometheusHook) Handler() http.Handler {
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for gathering in tests and embedding.
func (h *PrometheusHook) Registry() *prometheus.Registry { return h.registry }

// OnEvent updates metrics.
func (h *PrometheusHook) OnEvent(_ context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}

	switch e := event.(type) {
	case *events.RunStartedEvent:
		h.runsTotal.WithLabelValues(e.Mode).Inc()
	case *events.SectionEvent:
		sev, src := e.Section.Effective()
		h.sectionsTotal.WithLabelValues(sev.String(), string(src)).Inc()
	case *events.StageEvent:
		h.stageDuration.WithLabelValues(e.Stage).Set(e.Duration.Seconds())
	case *events.FinalizedEvent:
		h.warningsTotal.Add(float64(len(e.Warnings)))
		h.runDurationSeconds.Set(e.Duration.Seconds())
		if h.opts.TextfilePath != "" {
			if err := prometheus.WriteToTextfile(h.opts.TextfilePath, h.registry); err != nil {
				return fmt.Errorf("prometheus: write textfile: %w", err)
			}
		}
	}
	return nil
}

// EventTypes returns nil: the hook receives every event.
func (h *PrometheusHook) EventTypes() []events.EventType { return nil }

// Close stops the metrics server if one is running.
func (h *PrometheusHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	if h.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return h.server.Shutdown(ctx)
}
