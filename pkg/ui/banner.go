// Package ui renders pentestflow's terminal output: the banner, the run
// summary with severity badges, and history listings.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/pentestflow/pentestflow/pkg/defaults"
)

const bannerArt = `
                 __            __  ______
    ____  ___  / /____  _____/ /_/ __/ /___ _      __
   / __ \/ _ \/ __/ _ \/ ___/ __/ /_/ / __ \ | /| / /
  / /_/ /  __/ /_/  __(__  ) /_/ __/ / /_/ / |/ |/ /
 / .___/\___/\__/\___/____/\__/_/ /_/\____/|__/|__/
/_/
`

const separator = "__________________________________________________"

// PrintBanner writes the banner and version.
func PrintBanner(w io.Writer) {
	for _, line := range strings.Split(bannerArt, "\n") {
		if line != "" {
			fmt.Fprintln(w, BannerStyle.Render(line))
		}
	}
	fmt.Fprintf(w, "%31s\n\n", VersionStyle.Render("v"+defaults.Version))
}

// PrintOption writes one ":: Label : value" line.
func PrintOption(w io.Writer, name, value string) {
	fmt.Fprintf(w, " :: %s : %s\n", ConfigLabelStyle.Render(name), value)
}

// PrintRunConfig writes the settings of a run in a fixed order.
func PrintRunConfig(w io.Writer, target, mode, minSeverity, outDir string) {
	PrintOption(w, "Target", target)
	PrintOption(w, "Mode", TitleCase(mode))
	PrintOption(w, "Min Severity", minSeverity)
	PrintOption(w, "Output", outDir)
	fmt.Fprintln(w, DividerStyle.Render(separator))
}

// PrintSection writes a section heading.
func PrintSection(w io.Writer, title string) {
	fmt.Fprintln(w, SectionStyle.Render("> "+title))
}
