package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/pentestflow/pentestflow/pkg/defaults"
	"github.com/pentestflow/pentestflow/pkg/output/dispatcher"
	"github.com/pentestflow/pentestflow/pkg/output/events"
)

var _ dispatcher.Hook = (*OTelHook)(nil)

// OTelHook exports one trace per run: a root span covering the run and a
// child span per stage, back-dated to the stage's measured start.
type OTelHook struct {
	opts           OTelOptions
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	mu       sync.Mutex
	rootSpan trace.Span
	rootCtx  context.Context
	closed   bool
}

// OTelOptions configures the OpenTelemetry hook.
type OTelOptions struct {
	// Endpoint is the OTLP/gRPC collector address (default "localhost:4317").
	Endpoint string

	// ServiceName defaults to the tool name.
	ServiceName string

	// Insecure disables TLS to the collector.
	Insecure bool

	Headers map[string]string

	// ShutdownTimeout bounds the final flush (default 5s).
	ShutdownTimeout time.Duration

	// ConnectionTimeout bounds exporter creation (default 10s).
	ConnectionTimeout time.Duration

	// Exporter replaces the OTLP exporter, e.g. with an in-memory one.
	// Spans are then exported synchronously.
	Exporter sdktrace.SpanExporter
}

// NewOTelHook creates the hook and installs its tracer provider globally.
func NewOTelHook(opts OTelOptions) (*OTelHook, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = defaults.ToolName
	}
	if opts.Endpoint == "" {
		opts.Endpoint = "localhost:4317"
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.ConnectionTimeout == 0 {
		opts.ConnectionTimeout = 10 * time.Second
	}

	var spanProcessor sdktrace.TracerProviderOption
	if opts.Exporter != nil {
		spanProcessor = sdktrace.WithSyncer(opts.Exporter)
	} else {
		exporter, err := newOTLPExporter(opts)
		if err != nil {
			return nil, fmt.Errorf("otel: create exporter: %w", err)
		}
		spanProcessor = sdktrace.WithBatcher(exporter)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
	)
	tp := sdktrace.NewTracerProvider(
		spanProcessor,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return &OTelHook{
		opts:           opts,
		tracerProvider: tp,
		tracer:         tp.Tracer(defaults.ToolName + "/workflow"),
	}, nil
}

func newOTLPExporter(opts OTelOptions) (sdktrace.SpanExporter, error) {
	exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectionTimeout)
	defer cancel()
	return otlptracegrpc.New(ctx, exporterOpts...)
}

// OnEvent records the event on the current trace.
func (h *OTelHook) OnEvent(ctx context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}

	switch e := event.(type) {
	case *events.RunStartedEvent:
		h.startRun(ctx, e)
	case *events.StageEvent:
		h.recordStage(e)
	case *events.SectionEvent:
		if h.rootSpan != nil {
			sev, _ := e.Section.Effective()
			h.rootSpan.AddEvent("section", trace.WithAttributes(
				attribute.Int("position", e.Position),
				attribute.String("title", e.Section.Title),
				attribute.String("severity", sev.String()),
			))
		}
	case *events.FinalizedEvent:
		h.endRun(e)
	}
	return nil
}

func (h *OTelHook) startRun(ctx context.Context, e *events.RunStartedEvent) {
	if h.rootSpan != nil {
		h.rootSpan.End()
	}
	h.rootCtx, h.rootSpan = h.tracer.Start(context.WithoutCancel(ctx), defaults.ToolName+".run",
		trace.WithTimestamp(e.Timestamp()),
		trace.WithAttributes(
			attribute.String("run_id", e.RunID()),
			attribute.String("mode", e.Mode),
			attribute.String("target", e.Target),
			attribute.StringSlice("stages", e.Stages),
		),
	)
}

func (h *OTelHook) recordStage(e *events.StageEvent) {
	if h.rootSpan == nil {
		return
	}
	_, span := h.tracer.Start(h.rootCtx, "stage."+e.Stage,
		trace.WithTimestamp(e.Started),
		trace.WithAttributes(
			attribute.String("stage", e.Stage),
			attribute.Int("sections", e.Sections),
		),
	)
	span.End(trace.WithTimestamp(e.Started.Add(e.Duration)))
}

func (h *OTelHook) endRun(e *events.FinalizedEvent) {
	if h.rootSpan == nil {
		return
	}
	h.rootSpan.SetAttributes(
		attribute.Int("sections", len(e.Snapshot.Sections)),
		attribute.Int("artifacts", len(e.Artifacts)),
	)
	if len(e.Warnings) > 0 {
		h.rootSpan.SetStatus(codes.Error, fmt.Sprintf("%d artifact warnings", len(e.Warnings)))
	} else {
		h.rootSpan.SetStatus(codes.Ok, "")
	}
	h.rootSpan.End(trace.WithTimestamp(e.Timestamp()))
	h.rootSpan = nil
	h.rootCtx = nil
}

// EventTypes returns nil: the hook receives every event.
func (h *OTelHook) EventTypes() []events.EventType { return nil }

// Close ends any open span and flushes the tracer provider.
func (h *OTelHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	if h.rootSpan != nil {
		h.rootSpan.End()
		h.rootSpan = nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.ShutdownTimeout)
	defer cancel()
	if err := h.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("otel: shutdown tracer provider: %w", err)
	}
	return nil
}

// Endpoint returns the collector address.
func (h *OTelHook) Endpoint() string { return h.opts.Endpoint }
