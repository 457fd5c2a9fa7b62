package hooks

import (
	"context"
	"log/slog"

	"github.com/pentestflow/pentestflow/pkg/defaults"
	"github.com/pentestflow/pentestflow/pkg/history"
	"github.com/pentestflow/pentestflow/pkg/output/dispatcher"
	"github.com/pentestflow/pentestflow/pkg/output/events"
)

var _ dispatcher.Hook = (*HistoryHook)(nil)

// HistoryHook records every finalized run in a history.Store.
type HistoryHook struct {
	store  *history.Store
	keep   int
	logger *slog.Logger
}

// HistoryHookOptions configures the history hook.
type HistoryHookOptions struct {
	// StorePath is the directory holding the history index.
	StorePath string

	// Keep bounds the number of stored runs; 0 keeps everything.
	Keep int

	Logger *slog.Logger
}

// NewHistoryHook opens the store at opts.StorePath.
func NewHistoryHook(opts HistoryHookOptions) (*HistoryHook, error) {
	store, err := history.NewStore(opts.StorePath)
	if err != nil {
		return nil, err
	}
	return &HistoryHook{store: store, keep: opts.Keep, logger: orDefault(opts.Logger)}, nil
}

// Store returns the underlying store.
func (h *HistoryHook) Store() *history.Store { return h.store }

// OnEvent saves a record for FinalizedEvent. Store failures are logged
// and returned so the aggregator can surface them as warnings.
func (h *HistoryHook) OnEvent(_ context.Context, event events.Event) error {
	fin, ok := event.(*events.FinalizedEvent)
	if !ok {
		return nil
	}

	record := BuildRecord(fin)
	if err := h.store.Save(record); err != nil {
		h.logger.Warn("failed to save run record", slog.String("error", err.Error()))
		return err
	}
	if h.keep > 0 {
		if n, err := h.store.Keep(h.keep); err != nil {
			h.logger.Warn("failed to trim run history", slog.String("error", err.Error()))
		} else if n > 0 {
			h.logger.Debug("trimmed run history", slog.Int("removed", n))
		}
	}
	h.logger.Info("saved run record", slog.String("id", record.ID), slog.String("target", record.Target))
	return nil
}

// EventTypes returns the finalized event type.
func (h *HistoryHook) EventTypes() []events.EventType {
	return []events.EventType{events.EventTypeFinalized}
}

// Close closes the store.
func (h *HistoryHook) Close() error { return h.store.Close() }

// BuildRecord summarizes a finalized run.
func BuildRecord(fin *events.FinalizedEvent) *history.RunRecord {
	snap := fin.Snapshot
	counts := make(map[string]int)
	for sev, n := range snap.CountBySeverity() {
		counts[string(sev)] = n
	}
	artifacts := make([]string, len(fin.Artifacts))
	for i, a := range fin.Artifacts {
		artifacts[i] = a.Path
	}

	id := fin.RunID()
	if id == "" {
		id = snap.RunID
	}
	return &history.RunRecord{
		ID:             id,
		Timestamp:      snap.GeneratedAt,
		Target:         snap.Target,
		Mode:           fin.Mode,
		SectionCount:   len(snap.Sections),
		SeverityCounts: counts,
		Artifacts:      artifacts,
		Warnings:       len(fin.Warnings),
		Duration:       fin.Duration,
		Version:        defaults.Version,
	}
}
