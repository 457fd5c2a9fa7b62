package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pentestflow/pentestflow/pkg/cli"
	"github.com/pentestflow/pentestflow/pkg/config"
	"github.com/pentestflow/pentestflow/pkg/defaults"
	"github.com/pentestflow/pentestflow/pkg/finding"
	"github.com/pentestflow/pentestflow/pkg/output"
	"github.com/pentestflow/pentestflow/pkg/output/dispatcher"
	"github.com/pentestflow/pentestflow/pkg/output/exitcode"
	"github.com/pentestflow/pentestflow/pkg/output/hooks"
	"github.com/pentestflow/pentestflow/pkg/output/policy"
	"github.com/pentestflow/pentestflow/pkg/output/writers"
	"github.com/pentestflow/pentestflow/pkg/ui"
	"github.com/pentestflow/pentestflow/pkg/workflow"
)

type modeCommand struct {
	mode  workflow.Mode
	short string
}

var modeCommands = []modeCommand{
	{workflow.ModeFull, "Recon, port scan and exploitation probes"},
	{workflow.ModeRecon, "Reconnaissance only"},
	{workflow.ModeScan, "Recon followed by the port scan"},
	{workflow.ModeExploit, "SQL injection and reflected XSS probes only"},
}

func newModeCmd(a *app, m modeCommand) *cobra.Command {
	return &cobra.Command{
		Use:   string(m.mode) + " [target]",
		Short: m.short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.flags.loadConfig(cmd)
			if err != nil {
				return a.configError(err)
			}
			if len(args) == 1 {
				cfg.Target = args[0]
			}
			if err := cfg.RequireTarget(); err != nil {
				return a.configError(err)
			}
			return a.runWorkflow(cmd.Context(), cfg, m.mode)
		},
	}
}

func newMenuCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Prompt for a target and a scan option",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runMenu(cmd)
		},
	}
}

func (a *app) runMenu(cmd *cobra.Command) error {
	cfg, err := a.flags.loadConfig(cmd)
	if err != nil {
		return a.configError(err)
	}
	a.configureColor()
	ui.PrintBanner(a.stdout)

	target, mode, err := ui.Menu(a.stdin, a.stdout)
	if errors.Is(err, ui.ErrMenuExit) {
		return nil
	}
	if err != nil {
		return err
	}
	cfg.Target = target
	if err := cfg.RequireTarget(); err != nil {
		return a.configError(err)
	}
	return a.runWorkflow(cmd.Context(), cfg, mode)
}

// runWorkflow executes one run and records its exit code on a.
func (a *app) runWorkflow(ctx context.Context, cfg *config.Config, mode workflow.Mode) error {
	a.configureColor()
	logger := a.newLogger(cfg)
	minSev := finding.Severity(cfg.MinSeverity)

	exits := exitcode.New(exitcode.Config{FailOnWarnings: a.flags.Strict})
	d, err := buildDispatcher(cfg, exits, logger)
	if err != nil {
		return a.configError(err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("closing hooks", slog.String("error", err.Error()))
		}
	}()

	var gate *policy.Policy
	if cfg.PolicyFile != "" {
		if gate, err = policy.LoadPolicy(cfg.PolicyFile); err != nil {
			return a.configError(err)
		}
	}

	stages, err := buildStages(cfg, logger)
	if err != nil {
		return a.configError(err)
	}

	agg, err := output.New(output.Options{
		Paths:       reportPaths(cfg),
		MinSeverity: minSev,
		HTML:        writers.HTMLConfig{Title: cfg.Output.Title, Theme: cfg.Output.Theme},
		PDF:         writers.PDFConfig{Title: cfg.Output.Title, Author: defaults.ToolName},
		Mode:        string(mode),
		Logger:      logger,
		Dispatcher:  d,
	})
	if err != nil {
		logger.Warn("could not reset previous reports", slog.String("error", err.Error()))
	}

	ui.PrintRunConfig(a.stdout, cfg.Target, string(mode), cfg.MinSeverity, cfg.Output.Dir)

	engine := workflow.NewEngine(workflow.Options{Parallel: cfg.Parallel, Dispatcher: d, Logger: logger})
	res, err := engine.Run(ctx, agg, mode, cfg.Target, stages.ForMode(mode)...)
	if err != nil {
		return err
	}
	if cli.Interrupted(ctx) {
		exits.SetInterrupted()
	}

	ui.RenderSummary(a.stdout, res, minSev)
	if gate != nil {
		verdict := gate.Evaluate(res.Snapshot, len(res.Warnings))
		exits.RecordPolicy(verdict)
		ui.RenderPolicy(a.stdout, verdict)
	}

	code, reason := exits.ExitCode()
	a.code = code
	if code != exitcode.Success {
		logger.Info("run finished", slog.String("exit", exitcode.CodeString(code)), slog.String("reason", reason))
	}
	return nil
}

// reportPaths places the artifacts in the output directory unless a
// format has an explicit path.
func reportPaths(cfg *config.Config) output.Paths {
	p := output.DefaultPaths(cfg.Output.Dir)
	if cfg.Output.Text != "" {
		p.Text = cfg.Output.Text
	}
	if cfg.Output.HTML != "" {
		p.HTML = cfg.Output.HTML
	}
	if cfg.Output.JSON != "" {
		p.JSON = cfg.Output.JSON
	}
	if cfg.Output.PDF != "" {
		p.PDF = cfg.Output.PDF
	}
	if cfg.Output.NoJSON {
		p.JSON = ""
	}
	if cfg.Output.NoPDF {
		p.PDF = ""
	}
	return p
}

// buildDispatcher registers the hooks enabled by cfg. The exit code
// manager is always registered.
func buildDispatcher(cfg *config.Config, exits *exitcode.Manager, logger *slog.Logger) (*dispatcher.Dispatcher, error) {
	d := dispatcher.New(logger)
	d.RegisterHook(hooks.NewLoggerHook(logger))
	d.RegisterHook(exits)

	if cfg.HistoryDir != "" {
		h, err := hooks.NewHistoryHook(hooks.HistoryHookOptions{
			StorePath: cfg.HistoryDir,
			Keep:      cfg.HistoryKeep,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		d.RegisterHook(h)
	}

	if cfg.MetricsFile != "" || cfg.MetricsAddr != "" {
		h, err := hooks.NewPrometheusHook(hooks.PrometheusOptions{
			TextfilePath: cfg.MetricsFile,
			ListenAddr:   cfg.MetricsAddr,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		d.RegisterHook(h)
	}

	if cfg.OTel.Endpoint != "" {
		h, err := hooks.NewOTelHook(hooks.OTelOptions{
			Endpoint: cfg.OTel.Endpoint,
			Insecure: cfg.OTel.Insecure,
			Headers:  cfg.OTel.Headers,
		})
		if err != nil {
			return nil, fmt.Errorf("otel: %w", err)
		}
		d.RegisterHook(h)
	}
	return d, nil
}
