// Package defaults provides canonical default values for the whole tool.
// Packages reference these constants instead of repeating literals.
//
// Usage:
//
//	cfg.Outputs.Text = defaults.TextReport
//	client := httpclient.New(httpclient.Config{Timeout: defaults.ReconTimeout})
package defaults

import (
	"fmt"
	"time"
)

// Version is the current pentestflow version.
const Version = "1.2.0"

// ToolName is used in banners, user agents and PDF metadata.
const ToolName = "pentestflow"

// ============================================================================
// REPORT ARTIFACTS
// ============================================================================
//
// Artifacts are overwritten on every run.
// ============================================================================

const (
	// TextReport is the streaming plain-text artifact.
	TextReport = "pentest_report.txt"

	// HTMLReport is the browser-viewable artifact.
	HTMLReport = "pentest_report.html"

	// JSONReport is the machine-readable artifact.
	JSONReport = "pentest_report.json"

	// PDFReport is the paginated artifact.
	PDFReport = "pentest_report.pdf"

	// ReportTitle heads the HTML and PDF documents.
	ReportTitle = "Penetration Testing Report"
)

// ============================================================================
// PDF LAYOUT (points, US Letter)
// ============================================================================

const (
	PDFMargin     = 40.0
	PDFLineHeight = 14.0
	PDFFontSize   = 12.0
	PDFTitleSize  = 14.0
	PDFPageSize   = "Letter"
)

// ============================================================================
// NETWORK
// ============================================================================
//
// The port scanner has no timeout; it is stopped only by cancellation.
// ============================================================================

const (
	// ReconTimeout bounds every recon HTTP request and DNS query.
	ReconTimeout = 5 * time.Second

	// WhoisTimeout bounds a WHOIS lookup.
	WhoisTimeout = 10 * time.Second

	// ProbeTimeout bounds a single exploitation probe request.
	ProbeTimeout = 5 * time.Second

	// ProbeRate is the maximum number of probe requests per second.
	ProbeRate = 5

	// ShutdownGrace is how long the CLI waits after an interrupt before
	// forcing exit.
	ShutdownGrace = 3 * time.Second
)

// ScanFlags are the default port scanner flags.
const ScanFlags = "-sV"

// ScanBinary is the port scanner executable looked up on PATH.
const ScanBinary = "nmap"

// DefaultScheme is prefixed to targets that lack one.
const DefaultScheme = "http://"

// ============================================================================
// STORAGE
// ============================================================================

const (
	// HistoryDir holds the run history index.
	HistoryDir = ".pentestflow/history"

	// HistoryKeep is the default number of runs kept by prune.
	HistoryKeep = 50

	// ConfigFile is looked up in the working directory when --config is unset.
	ConfigFile = "pentestflow.yaml"
)

// ============================================================================
// USER AGENTS
// ============================================================================

// UserAgent identifies recon and probe traffic.
const UserAgent = "Mozilla/5.0 (compatible; " + ToolName + "/" + Version + ")"

// UserAgentWithContext returns a user agent tagged with the stage name.
func UserAgentWithContext(context string) string {
	return fmt.Sprintf("%s/%s (%s)", ToolName, Version, context)
}
