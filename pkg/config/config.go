// Package config loads pentestflow settings from a YAML file. Command-line
// flags are applied on top of the loaded values by the CLI.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pentestflow/pentestflow/pkg/defaults"
	"github.com/pentestflow/pentestflow/pkg/finding"
)

var (
	// ErrInvalidConfig wraps unparsable YAML and out-of-range values.
	ErrInvalidConfig = errors.New("config: invalid value")

	// ErrMissingRequired is returned for an absent target or a missing
	// config file that was named explicitly.
	ErrMissingRequired = errors.New("config: missing")
)

// Config holds every tunable setting.
type Config struct {
	Target      string `yaml:"target"`
	Mode        string `yaml:"mode"`
	MinSeverity string `yaml:"min_severity"`
	Parallel    bool   `yaml:"parallel"`
	LogLevel    string `yaml:"log_level"`

	Output  OutputConfig  `yaml:"output"`
	Scan    ScanConfig    `yaml:"scan"`
	Recon   ReconConfig   `yaml:"recon"`
	Exploit ExploitConfig `yaml:"exploit"`

	HistoryDir  string `yaml:"history_dir"`
	HistoryKeep int    `yaml:"history_keep"`
	MetricsFile string `yaml:"metrics_file"`
	MetricsAddr string `yaml:"metrics_addr"`

	OTel OTelConfig `yaml:"otel"`

	// PolicyFile points at a fail_on policy evaluated after each run.
	PolicyFile string `yaml:"policy_file"`
}

// OutputConfig locates the report artifacts.
type OutputConfig struct {
	Dir   string `yaml:"dir"`
	Text  string `yaml:"text"`
	HTML  string `yaml:"html"`
	JSON  string `yaml:"json"`
	PDF   string `yaml:"pdf"`
	Title string `yaml:"title"`
	Theme string `yaml:"theme"`
	// NoJSON and NoPDF disable those formats.
	NoJSON bool `yaml:"no_json"`
	NoPDF  bool `yaml:"no_pdf"`
}

// ScanConfig configures the port scanner.
type ScanConfig struct {
	Binary    string `yaml:"binary"`
	Flags     string `yaml:"flags"`
	TableFile string `yaml:"table_file"`
}

// ReconConfig configures the recon stage.
type ReconConfig struct {
	Timeout            time.Duration `yaml:"timeout"`
	WhoisTimeout       time.Duration `yaml:"whois_timeout"`
	DNSServers         []string      `yaml:"dns_servers"`
	Proxy              string        `yaml:"proxy"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	SkipLandingPage    bool          `yaml:"skip_landing_page"`
}

// ExploitConfig configures the probes.
type ExploitConfig struct {
	Params []string `yaml:"params"`
	Rate   float64  `yaml:"rate"`
	// SQLErrorPatterns adds regular expressions to the built-in signatures.
	SQLErrorPatterns []string `yaml:"sql_error_patterns"`
}

// OTelConfig enables trace export when Endpoint is set.
type OTelConfig struct {
	Endpoint string            `yaml:"endpoint"`
	Insecure bool              `yaml:"insecure"`
	Headers  map[string]string `yaml:"headers"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Mode:        "full",
		MinSeverity: string(finding.Low),
		LogLevel:    "info",
		Output: OutputConfig{
			Dir:   ".",
			Title: defaults.ReportTitle,
			Theme: "light",
		},
		Scan: ScanConfig{
			Binary: defaults.ScanBinary,
			Flags:  defaults.ScanFlags,
		},
		Recon: ReconConfig{
			Timeout:      defaults.ReconTimeout,
			WhoisTimeout: defaults.WhoisTimeout,
		},
		Exploit: ExploitConfig{
			Rate: defaults.ProbeRate,
		},
		HistoryDir:  defaults.HistoryDir,
		HistoryKeep: defaults.HistoryKeep,
	}
}

// Load reads path over the defaults. A missing file is not an error unless
// required is set, in which case ErrMissingRequired is returned.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if required {
				return nil, fmt.Errorf("%w: config file %s", ErrMissingRequired, path)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var modes = []string{"full", "recon", "scan", "exploit"}

// Validate normalizes case-insensitive fields and rejects bad values.
func (c *Config) Validate() error {
	var problems []string

	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if !contains(modes, c.Mode) {
		problems = append(problems, fmt.Sprintf("mode %q (want one of %s)", c.Mode, strings.Join(modes, ", ")))
	}

	if sev, ok := finding.ParseSeverity(c.MinSeverity); ok {
		c.MinSeverity = string(sev)
	} else {
		problems = append(problems, fmt.Sprintf("min_severity %q (want Low, Medium or High)", c.MinSeverity))
	}

	if _, err := c.SlogLevel(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Recon.Timeout < 0 || c.Recon.WhoisTimeout < 0 {
		problems = append(problems, "recon timeouts must not be negative")
	}
	if c.Exploit.Rate < 0 {
		problems = append(problems, "exploit.rate must not be negative")
	}
	if c.HistoryKeep < 0 {
		problems = append(problems, "history_keep must not be negative")
	}
	if c.Output.Theme != "" && c.Output.Theme != "light" && c.Output.Theme != "dark" {
		problems = append(problems, fmt.Sprintf("output.theme %q (want light or dark)", c.Output.Theme))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// RequireTarget returns ErrMissingRequired when no target is set.
func (c *Config) RequireTarget() error {
	if strings.TrimSpace(c.Target) == "" {
		return fmt.Errorf("%w: target", ErrMissingRequired)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q", c.LogLevel)
	}
	return lvl, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
