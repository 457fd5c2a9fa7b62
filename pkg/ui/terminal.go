package ui

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	colorMu     sync.Mutex
	noColorMode bool
)

// SetNoColor disables colored output for the rest of the process.
func SetNoColor(noColor bool) {
	colorMu.Lock()
	defer colorMu.Unlock()
	noColorMode = noColor
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsNoColor reports whether color is disabled.
func IsNoColor() bool {
	colorMu.Lock()
	defer colorMu.Unlock()
	return noColorMode
}

// ConfigureColor disables color when f is not a terminal, when NO_COLOR
// is set, or when TERM is "dumb".
func ConfigureColor(f *os.File, forceOff bool) {
	off := forceOff ||
		os.Getenv("NO_COLOR") != "" ||
		os.Getenv("TERM") == "dumb" ||
		!IsTerminal(f)
	SetNoColor(off)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
