package nmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// DefaultFlags are passed to the scanner when none are configured.
const DefaultFlags = "-sV"

// Failure messages placed into the report instead of scan output.
const (
	MsgNotInstalled = "Nmap is not installed or not found in your system PATH."
	msgFailedPrefix = "Nmap scan failed:\n"
	msgUnexpected   = "Unexpected error during Nmap scan: "
)

// ExecFunc runs a command and returns its combined stdout and stderr.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Outcome is the result of one scan invocation.
type Outcome struct {
	Records []ServiceRecord
	// Table is the report content: the formatted records, the no-ports
	// placeholder, or a failure message.
	Table string
	// Failed is set when the scanner could not produce output.
	Failed bool
}

// Runner invokes the scanner binary against a single address.
type Runner struct {
	Binary string
	Flags  string
	Exec   ExecFunc
	Logger *slog.Logger
}

// NewRunner returns a Runner with defaults applied for empty fields.
func NewRunner(binary, flags string, logger *slog.Logger) *Runner {
	if binary == "" {
		binary = "nmap"
	}
	if strings.TrimSpace(flags) == "" {
		flags = DefaultFlags
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Binary: binary, Flags: flags, Exec: combinedOutput, Logger: logger}
}

// SplitFlags splits a flag string on whitespace.
func SplitFlags(flags string) []string {
	return strings.Fields(flags)
}

// Args returns the full argument vector for scanning ip.
func (r *Runner) Args(ip string) []string {
	return append(SplitFlags(r.Flags), ip)
}

// Scan runs the scanner and parses its output. Failures are reported
// through Outcome.Failed and a descriptive Table; Scan never returns an
// error. No timeout is applied; cancel ctx to stop a long scan.
func (r *Runner) Scan(ctx context.Context, ip string) Outcome {
	run := r.Exec
	if run == nil {
		run = combinedOutput
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	args := r.Args(ip)
	logger.Debug("starting port scan", slog.String("binary", r.Binary), slog.Any("args", args))

	out, err := run(ctx, r.Binary, args...)
	if err != nil {
		msg := describeFailure(err, out)
		logger.Warn("port scan failed", slog.String("target", ip), slog.String("error", err.Error()))
		return Outcome{Table: msg, Failed: true}
	}

	records := ParseOutput(string(out))
	logger.Debug("port scan complete", slog.String("target", ip), slog.Int("records", len(records)))
	return Outcome{Records: records, Table: FormatTable(records)}
}

func describeFailure(err error, out []byte) string {
	var exitErr *exec.ExitError
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return MsgNotInstalled
	case errors.As(err, &exitErr):
		return msgFailedPrefix + string(out)
	default:
		return fmt.Sprintf("%s%v", msgUnexpected, err)
	}
}

func combinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	// exec.Cmd cannot be reused after CombinedOutput; build a fresh one per call.
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
