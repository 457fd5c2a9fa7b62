package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pentestflow/pentestflow/pkg/config"
	"github.com/pentestflow/pentestflow/pkg/defaults"
	"github.com/pentestflow/pentestflow/pkg/output/exitcode"
	"github.com/pentestflow/pentestflow/pkg/ui"
)

// globalFlags holds the persistent flags shared by every command. Only
// flags set on the command line override the config file.
type globalFlags struct {
	ConfigFile   string
	OutputDir    string
	MinSeverity  string
	Parallel     bool
	NoColor      bool
	LogLevel     string
	PolicyFile   string
	MetricsFile  string
	MetricsAddr  string
	OTelEndpoint string
	OTelInsecure bool
	HistoryDir   string
	NoHistory    bool
	NoJSON       bool
	NoPDF        bool
	Theme        string
	ScanFlags    string
	Params       []string
	Rate         float64
	SkipVerify   bool
	Proxy        string
	Strict       bool
}

func (g *globalFlags) register(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.StringVarP(&g.ConfigFile, "config", "c", "", "Config file (default ./"+defaults.ConfigFile+" when present)")
	fs.StringVarP(&g.OutputDir, "output", "o", "", "Directory for the report files")
	fs.StringVar(&g.MinSeverity, "min-severity", "", "Lowest severity kept in the HTML and JSON reports (Low, Medium, High)")
	fs.BoolVar(&g.Parallel, "parallel", false, "Run scan and exploitation concurrently after recon")
	fs.BoolVar(&g.NoColor, "no-color", false, "Disable colored output")
	fs.StringVar(&g.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&g.PolicyFile, "policy", "", "Policy file evaluated after the run")
	fs.StringVar(&g.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	fs.StringVar(&g.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	fs.StringVar(&g.OTelEndpoint, "otel-endpoint", "", "OTLP/gRPC collector for run traces")
	fs.BoolVar(&g.OTelInsecure, "otel-insecure", false, "Connect to the collector without TLS")
	fs.StringVar(&g.HistoryDir, "history-dir", "", "Run history directory")
	fs.BoolVar(&g.NoHistory, "no-history", false, "Do not record the run")
	fs.BoolVar(&g.NoJSON, "no-json", false, "Skip the JSON report")
	fs.BoolVar(&g.NoPDF, "no-pdf", false, "Skip the PDF report")
	fs.StringVar(&g.Theme, "theme", "", "HTML report theme (light, dark)")
	fs.StringVar(&g.ScanFlags, "nmap-flags", "", "Custom nmap scan flags (default -sV)")
	fs.StringSliceVar(&g.Params, "params", nil, "Query parameters probed for injection")
	fs.Float64Var(&g.Rate, "rate", 0, "Maximum probe requests per second")
	fs.BoolVar(&g.SkipVerify, "skip-verify", false, "Skip TLS certificate verification")
	fs.StringVar(&g.Proxy, "proxy", "", "HTTP proxy for recon and probes")
	fs.BoolVar(&g.Strict, "strict", false, "Exit non-zero when a report file could not be written")
}

// loadConfig reads the config file and applies the flags set on cmd.
func (g *globalFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, required := g.ConfigFile, true
	if path == "" {
		path, required = defaults.ConfigFile, false
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return nil, err
	}

	set := cmd.Flags().Changed
	if set("output") {
		cfg.Output.Dir = g.OutputDir
	}
	if set("min-severity") {
		cfg.MinSeverity = g.MinSeverity
	}
	if set("parallel") {
		cfg.Parallel = g.Parallel
	}
	if set("log-level") {
		cfg.LogLevel = g.LogLevel
	}
	if set("policy") {
		cfg.PolicyFile = g.PolicyFile
	}
	if set("metrics-file") {
		cfg.MetricsFile = g.MetricsFile
	}
	if set("metrics-addr") {
		cfg.MetricsAddr = g.MetricsAddr
	}
	if set("otel-endpoint") {
		cfg.OTel.Endpoint = g.OTelEndpoint
	}
	if set("otel-insecure") {
		cfg.OTel.Insecure = g.OTelInsecure
	}
	if set("history-dir") {
		cfg.HistoryDir = g.HistoryDir
	}
	if g.NoHistory {
		cfg.HistoryDir = ""
	}
	if g.NoJSON {
		cfg.Output.NoJSON = true
	}
	if g.NoPDF {
		cfg.Output.NoPDF = true
	}
	if set("theme") {
		cfg.Output.Theme = g.Theme
	}
	if set("nmap-flags") {
		cfg.Scan.Flags = g.ScanFlags
	}
	if set("params") {
		cfg.Exploit.Params = g.Params
	}
	if set("rate") {
		cfg.Exploit.Rate = g.Rate
	}
	if set("skip-verify") {
		cfg.Recon.InsecureSkipVerify = g.SkipVerify
	}
	if set("proxy") {
		cfg.Recon.Proxy = g.Proxy
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger writes text logs to stderr at the configured level.
func (a *app) newLogger(cfg *config.Config) *slog.Logger {
	lvl, _ := cfg.SlogLevel()
	return slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: lvl}))
}

// configureColor turns color off for non-terminal output.
func (a *app) configureColor() {
	if f, ok := a.stdout.(*os.File); ok {
		ui.ConfigureColor(f, a.flags.NoColor)
		return
	}
	ui.SetNoColor(true)
}

// configError marks the run as a configuration failure.
func (a *app) configError(err error) error {
	a.code = exitcode.Configuration
	return err
}
