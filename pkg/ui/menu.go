package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pentestflow/pentestflow/pkg/workflow"
)

// ErrMenuExit is returned when the user picks Exit or input ends.
var ErrMenuExit = errors.New("menu: exit")

var menuChoices = []struct {
	label string
	mode  workflow.Mode
}{
	{"Full Scan", workflow.ModeFull},
	{"Reconnaissance Only", workflow.ModeRecon},
	{"Vulnerability Scan Only", workflow.ModeScan},
	{"Exploitation Only", workflow.ModeExploit},
}

// Menu asks for a target and a scan option. Invalid choices re-prompt
// until a valid one is entered.
func Menu(in io.Reader, out io.Writer) (string, workflow.Mode, error) {
	sc := bufio.NewScanner(in)

	fmt.Fprint(out, "Enter target URL (e.g., http://testphp.vulnweb.com): ")
	if !sc.Scan() {
		return "", "", ErrMenuExit
	}
	target := strings.TrimSpace(sc.Text())

	exit := len(menuChoices) + 1
	for {
		fmt.Fprintln(out, "\nSelect Scan Option:")
		for i, c := range menuChoices {
			fmt.Fprintf(out, "%d. %s\n", i+1, c.label)
		}
		fmt.Fprintf(out, "%d. Exit\n", exit)
		fmt.Fprintf(out, "Enter choice (1-%d): ", exit)

		if !sc.Scan() {
			return "", "", ErrMenuExit
		}
		if n, err := strconv.Atoi(strings.TrimSpace(sc.Text())); err == nil {
			switch {
			case n >= 1 && n <= len(menuChoices):
				return target, menuChoices[n-1].mode, nil
			case n == exit:
				fmt.Fprintln(out, "Exiting.")
				return "", "", ErrMenuExit
			}
		}
		fmt.Fprintf(out, "Invalid option. Please enter a number between 1 and %d.\n", exit)
	}
}
