// Package hooks provides dispatcher hooks that observe a run without
// affecting the report: structured logging, Prometheus metrics,
// OpenTelemetry traces and run history.
package hooks

import (
	"context"
	"log/slog"

	"github.com/pentestflow/pentestflow/pkg/output/dispatcher"
	"github.com/pentestflow/pentestflow/pkg/output/events"
)

// orDefault returns l if non-nil, otherwise slog.Default().
func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

var _ dispatcher.Hook = (*LoggerHook)(nil)

// LoggerHook writes one structured log record per lifecycle event.
// Sections are logged at debug level; everything else at info.
type LoggerHook struct {
	logger *slog.Logger
}

// NewLoggerHook creates a LoggerHook.
func NewLoggerHook(logger *slog.Logger) *LoggerHook {
	return &LoggerHook{logger: orDefault(logger)}
}

// OnEvent logs the event.
func (h *LoggerHook) OnEvent(ctx context.Context, event events.Event) error {
	run := slog.String("run_id", event.RunID())
	switch e := event.(type) {
	case *events.RunStartedEvent:
		h.logger.InfoContext(ctx, "run started", run,
			slog.String("mode", e.Mode),
			slog.String("target", e.Target),
			slog.Any("stages", e.Stages),
		)
	case *events.StageEvent:
		h.logger.InfoContext(ctx, "stage finished", run,
			slog.String("stage", e.Stage),
			slog.Duration("duration", e.Duration),
			slog.Int("sections", e.Sections),
		)
	case *events.SectionEvent:
		sev, src := e.Section.Effective()
		h.logger.DebugContext(ctx, "section added", run,
			slog.Int("position", e.Position),
			slog.String("title", e.Section.Title),
			slog.String("severity", sev.String()),
			slog.String("severity_source", string(src)),
		)
	case *events.FinalizedEvent:
		attrs := []any{run,
			slog.Int("sections", len(e.Snapshot.Sections)),
			slog.Int("artifacts", len(e.Artifacts)),
			slog.Duration("duration", e.Duration),
		}
		if len(e.Warnings) > 0 {
			h.logger.WarnContext(ctx, "report finalized with warnings", append(attrs, slog.Any("warnings", e.Warnings))...)
			return nil
		}
		h.logger.InfoContext(ctx, "report finalized", attrs...)
	}
	return nil
}

// EventTypes returns nil: the hook receives every event.
func (h *LoggerHook) EventTypes() []events.EventType { return nil }
