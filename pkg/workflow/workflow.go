// Package workflow runs the pentest stages against one target and feeds
// their sections into the report.
//
// Stages run in declaration order. In parallel mode the first stage still
// runs alone, because it may resolve the target for the others, and the
// remaining stages run concurrently. Sections are always appended in stage
// declaration order so the report layout does not depend on timing.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pentestflow/pentestflow/pkg/output"
	"github.com/pentestflow/pentestflow/pkg/output/dispatcher"
	"github.com/pentestflow/pentestflow/pkg/output/events"
	"github.com/pentestflow/pentestflow/pkg/report"
	"github.com/pentestflow/pentestflow/pkg/target"
)

// Stage produces report sections for a target. Stages never fail: a
// collection problem is described in the section content instead.
type Stage interface {
	Name() string
	Run(ctx context.Context, t *target.Target) []report.Section
}

// Report is the part of output.Aggregator the engine drives.
type Report interface {
	Reset() error
	RunID() string
	SetTarget(string)
	Add(ctx context.Context, s report.Section) error
	Finalize(ctx context.Context) (*output.Result, error)
}

var _ Report = (*output.Aggregator)(nil)

// Mode selects which stages run.
type Mode string

const (
	ModeFull    Mode = "full"
	ModeRecon   Mode = "recon"
	ModeScan    Mode = "scan"
	ModeExploit Mode = "exploit"
)

// Modes lists the modes in menu order.
var Modes = []Mode{ModeFull, ModeRecon, ModeScan, ModeExploit}

// ParseMode maps a name to a Mode, ignoring case.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (want one of full, recon, scan, exploit)", s)
}

// StageSet holds one implementation per stage kind.
type StageSet struct {
	Recon   Stage
	Scan    Stage
	Exploit Stage
}

// ForMode returns the stages for m in execution order. Nil stages are
// skipped.
func (s StageSet) ForMode(m Mode) []Stage {
	var list []Stage
	switch m {
	case ModeFull:
		list = []Stage{s.Recon, s.Scan, s.Exploit}
	case ModeRecon:
		list = []Stage{s.Recon}
	case ModeScan:
		list = []Stage{s.Recon, s.Scan}
	case ModeExploit:
		list = []Stage{s.Exploit}
	}
	out := list[:0]
	for _, st := range list {
		if st != nil {
			out = append(out, st)
		}
	}
	return out
}

// Options configures an Engine.
type Options struct {
	Parallel   bool
	Dispatcher *dispatcher.Dispatcher
	Logger     *slog.Logger
}

// Engine executes stages and finalizes the report.
type Engine struct {
	parallel   bool
	dispatcher *dispatcher.Dispatcher
	logger     *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{parallel: opts.Parallel, dispatcher: opts.Dispatcher, logger: opts.Logger}
}

type stageOutput struct {
	sections []report.Section
	started  time.Time
	elapsed  time.Duration
	skipped  bool
}

// Run resets rep, runs stages against raw and finalizes the report. When
// ctx is cancelled, stages that have not started are skipped and the
// sections collected so far are still finalized.
func (e *Engine) Run(ctx context.Context, rep Report, mode Mode, raw string, stages ...Stage) (*output.Result, error) {
	t := target.New(raw)

	if err := rep.Reset(); err != nil {
		e.logger.Warn("continuing after reset failure", slog.String("error", err.Error()))
	}
	rep.SetTarget(t.URL)
	runID := rep.RunID()

	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = st.Name()
	}
	e.dispatcher.Dispatch(ctx, &events.RunStartedEvent{
		BaseEvent: events.NewBase(events.EventTypeRunStarted, runID),
		Mode:      string(mode),
		Target:    t.URL,
		Stages:    names,
	})
	e.logger.Info("workflow started",
		slog.String("run_id", runID),
		slog.String("mode", string(mode)),
		slog.String("target", t.URL),
		slog.Bool("parallel", e.parallel))

	var warnings []string
	commit := func(st Stage, out stageOutput) {
		warnings = append(warnings, e.commit(ctx, rep, runID, st, out)...)
	}

	if len(stages) > 0 {
		commit(stages[0], e.runStage(ctx, stages[0], t))
		rest := stages[1:]
		if e.parallel && len(rest) > 1 {
			outputs := make([]stageOutput, len(rest))
			g, gctx := errgroup.WithContext(ctx)
			for i, st := range rest {
				g.Go(func() error {
					outputs[i] = e.runStage(gctx, st, t)
					return nil
				})
			}
			_ = g.Wait()
			for i, st := range rest {
				commit(st, outputs[i])
			}
		} else {
			for _, st := range rest {
				commit(st, e.runStage(ctx, st, t))
			}
		}
	}

	// Finalize even after an interrupt so partial results are kept.
	res, err := rep.Finalize(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	res.Warnings = append(warnings, res.Warnings...)
	return res, nil
}

func (e *Engine) runStage(ctx context.Context, st Stage, t *target.Target) stageOutput {
	if err := ctx.Err(); err != nil {
		e.logger.Warn("stage skipped", slog.String("stage", st.Name()), slog.String("reason", err.Error()))
		return stageOutput{skipped: true}
	}
	start := time.Now()
	e.logger.Info("stage started", slog.String("stage", st.Name()))
	sections := st.Run(ctx, t)
	elapsed := time.Since(start)
	e.logger.Info("stage finished",
		slog.String("stage", st.Name()),
		slog.Int("sections", len(sections)),
		slog.Duration("elapsed", elapsed))
	return stageOutput{sections: sections, started: start, elapsed: elapsed}
}

// commit appends a stage's sections in order and reports the stage.
func (e *Engine) commit(ctx context.Context, rep Report, runID string, st Stage, out stageOutput) []string {
	if out.skipped {
		return nil
	}
	var warnings []string
	for _, sec := range out.sections {
		if err := rep.Add(ctx, sec); err != nil {
			warnings = append(warnings, err.Error())
		}
	}
	e.dispatcher.Dispatch(ctx, &events.StageEvent{
		BaseEvent: events.NewBase(events.EventTypeStage, runID),
		Stage:     st.Name(),
		Started:   out.started,
		Duration:  out.elapsed,
		Sections:  len(out.sections),
	})
	return warnings
}
