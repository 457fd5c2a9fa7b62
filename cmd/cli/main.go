// Command pentestflow runs reconnaissance, port scanning and exploitation
// probes against a target and writes the findings as text, HTML, JSON and
// PDF reports.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pentestflow/pentestflow/pkg/cli"
	"github.com/pentestflow/pentestflow/pkg/defaults"
	"github.com/pentestflow/pentestflow/pkg/output/exitcode"
	"github.com/pentestflow/pentestflow/pkg/ui"
)

func main() {
	ctx, cancel := cli.SignalContext(defaults.ShutdownGrace, os.Stderr)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(int(code))
}

// app carries the process streams and the exit code chosen by the
// command that ran.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	flags globalFlags
	code  exitcode.Code
}

// execute runs the command line in args and returns the process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) exitcode.Code {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "%s %v\n", ui.WarningStyle.Render("[!]"), err)
		if a.code == exitcode.Success {
			a.code = exitcode.Configuration
		}
	}
	return a.code
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   defaults.ToolName,
		Short: "Automated penetration testing workflow",
		Long: `pentestflow chains reconnaissance, an nmap service scan matched against
known-vulnerable versions, and SQL injection / reflected XSS probes.
Every section is streamed to a text report; HTML, JSON and PDF reports
are written when the run finishes.

Run without arguments for the interactive menu.`,
		Version:       defaults.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runMenu(cmd)
		},
	}
	a.flags.register(root)

	for _, m := range modeCommands {
		root.AddCommand(newModeCmd(a, m))
	}
	root.AddCommand(newMenuCmd(a))
	root.AddCommand(newHistoryCmd(a))
	return root
}
