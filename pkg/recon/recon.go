package recon

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pentestflow/pentestflow/pkg/httpclient"
	"github.com/pentestflow/pentestflow/pkg/iohelper"
	"github.com/pentestflow/pentestflow/pkg/report"
	"github.com/pentestflow/pentestflow/pkg/target"
)

// Section titles in emission order.
const (
	TitleTarget  = "Target Information"
	TitleHeaders = "HTTP Headers"
	TitleRobots  = "robots.txt Content"
	TitleWhois   = "WHOIS Information"
	TitlePage    = "Landing Page"
)

// Config configures the recon stage. Nil collaborators get real
// implementations.
type Config struct {
	HTTPClient *http.Client
	Resolver   Resolver
	Whois      WhoisLookup

	// SkipPage omits the Landing Page section.
	SkipPage bool

	Logger *slog.Logger
}

// Stage gathers passive information about the target.
type Stage struct {
	client   *http.Client
	resolver Resolver
	whois    WhoisLookup
	skipPage bool
	logger   *slog.Logger
}

// New creates a recon stage.
func New(cfg Config) *Stage {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpclient.New(httpclient.DefaultConfig())
	}
	if cfg.Resolver == nil {
		cfg.Resolver = NewDNSResolver()
	}
	if cfg.Whois == nil {
		cfg.Whois = NewWhoisClient()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Stage{
		client:   cfg.HTTPClient,
		resolver: cfg.Resolver,
		whois:    cfg.Whois,
		skipPage: cfg.SkipPage,
		logger:   cfg.Logger,
	}
}

// Name returns "recon".
func (s *Stage) Name() string { return "recon" }

// Run resolves t and records its IP, then collects the remaining
// sections.
func (s *Stage) Run(ctx context.Context, t *target.Target) []report.Section {
	ip, err := s.resolver.LookupIPv4(ctx, t.Hostname)
	if err != nil {
		s.logger.Warn("address resolution failed", slog.String("host", t.Hostname), slog.String("error", err.Error()))
	} else {
		t.SetIP(ip)
	}

	sections := []report.Section{{Title: TitleTarget, Content: TargetInfo(t)}}

	headers, body, fetchErr := s.fetchPage(ctx, t.URL)
	if fetchErr != nil {
		sections = append(sections, report.Section{Title: TitleHeaders, Content: "Failed to fetch headers: " + fetchErr.Error()})
	} else {
		sections = append(sections, report.Section{Title: TitleHeaders, Content: FormatHeaders(headers)})
	}

	sections = append(sections,
		report.Section{Title: TitleRobots, Content: s.robots(ctx, t.URL)},
		report.Section{Title: TitleWhois, Content: s.whoisInfo(ctx, t.Hostname)},
	)

	if !s.skipPage {
		content := "Landing page not analyzed: " + errString(fetchErr)
		if fetchErr == nil {
			content = SummarizePage(body)
		}
		sections = append(sections, report.Section{Title: TitlePage, Content: content})
	}
	return sections
}

// TargetInfo formats the Target Information section.
func TargetInfo(t *target.Target) string {
	ip := t.IP()
	if ip == "" {
		ip = "Unresolved"
	}
	return fmt.Sprintf("Target: %s\nHostname: %s\nIP: %s", t.URL, t.Hostname, ip)
}

// FormatHeaders renders headers as "Key: Value" lines sorted by key.
// Repeated headers are joined with ", ".
func FormatHeaders(h http.Header) string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+strings.Join(h[k], ", "))
	}
	return strings.Join(lines, "\n")
}

func (s *Stage) fetchPage(ctx context.Context, url string) (http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer iohelper.DrainAndClose(resp.Body)

	body, err := iohelper.ReadBody(resp.Body, iohelper.PageMaxBodySize)
	if err != nil {
		s.logger.Debug("landing page body truncated", slog.String("error", err.Error()))
	}
	return resp.Header, body, nil
}

func (s *Stage) robots(ctx context.Context, base string) string {
	robotsURL := strings.TrimRight(base, "/") + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return "Failed to fetch robots.txt: " + err.Error()
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "Failed to fetch robots.txt: " + err.Error()
	}
	defer iohelper.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("robots.txt not found (Status Code: %d)", resp.StatusCode)
	}
	body, err := iohelper.ReadBody(resp.Body, iohelper.TextMaxBodySize)
	if err != nil {
		return "Failed to fetch robots.txt: " + err.Error()
	}
	return strings.TrimSpace(string(body))
}

func (s *Stage) whoisInfo(ctx context.Context, hostname string) string {
	if hostname == "" {
		return "WHOIS lookup failed: no hostname"
	}
	raw, err := s.whois.Whois(ctx, WhoisQuery(hostname))
	if err != nil {
		return "WHOIS lookup failed: " + err.Error()
	}
	return FormatWhois(raw)
}

// SummarizePage extracts the title, generator and a count of forms,
// scripts and links from an HTML document.
func SummarizePage(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "Landing page not analyzed: " + err.Error()
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = "(none)"
	}
	lines := []string{"Title: " + title}

	doc.Find("meta[name]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		name, _ := sel.Attr("name")
		if !strings.EqualFold(name, "generator") {
			return true
		}
		if gen := strings.TrimSpace(sel.AttrOr("content", "")); gen != "" {
			lines = append(lines, "Generator: "+gen)
		}
		return false
	})

	var inputs []string
	doc.Find("form input[name]").Each(func(_ int, sel *goquery.Selection) {
		if name, ok := sel.Attr("name"); ok {
			inputs = append(inputs, name)
		}
	})

	lines = append(lines,
		fmt.Sprintf("Forms: %d", doc.Find("form").Length()),
		fmt.Sprintf("Scripts: %d", doc.Find("script").Length()),
		fmt.Sprintf("Links: %d", doc.Find("a[href]").Length()),
	)
	if len(inputs) > 0 {
		lines = append(lines, "Form Inputs: "+strings.Join(inputs, ", "))
	}
	return strings.Join(lines, "\n")
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
