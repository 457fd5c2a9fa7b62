// Package exploit is the exploitation stage. It sends a small number of
// benign probes to the target's query parameters and reports indicators
// of error-based SQL injection and reflected cross-site scripting.
//
// Probes only flag indicators; they never extract data. Requests are
// paced by a token-bucket limiter.
package exploit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pentestflow/pentestflow/pkg/defaults"
	"github.com/pentestflow/pentestflow/pkg/httpclient"
	"github.com/pentestflow/pentestflow/pkg/iohelper"
	"github.com/pentestflow/pentestflow/pkg/report"
	"github.com/pentestflow/pentestflow/pkg/target"
)

// Section titles.
const (
	TitleSQLi = "SQL Injection Check"
	TitleXSS  = "Reflected XSS Check"
)

// HighMarker is prepended to section content when an indicator is found.
const HighMarker = "Severity: High"

// DefaultParams are the query parameters probed when none are configured.
var DefaultParams = []string{"id", "q", "search", "page"}

// sqliPayload breaks out of a quoted string literal.
const sqliPayload = "'"

// Config configures the exploit stage.
type Config struct {
	HTTPClient *http.Client
	Params     []string
	// Rate is the maximum requests per second (default defaults.ProbeRate).
	Rate float64
	// Signatures replaces the built-in SQL error signatures when set.
	Signatures []Signature
	// NewMarker returns the unique token embedded in XSS payloads.
	NewMarker func() string
	Logger    *slog.Logger
}

// Stage runs the probes.
type Stage struct {
	client    *http.Client
	params    []string
	limit     rate.Limit
	sigs      []Signature
	newMarker func() string
	logger    *slog.Logger
}

// New creates an exploit stage with defaults applied.
func New(cfg Config) *Stage {
	if cfg.HTTPClient == nil {
		c := httpclient.DefaultConfig()
		c.Timeout = defaults.ProbeTimeout
		cfg.HTTPClient = httpclient.New(c)
	}
	if len(cfg.Params) == 0 {
		cfg.Params = DefaultParams
	}
	if cfg.Rate <= 0 {
		cfg.Rate = defaults.ProbeRate
	}
	if len(cfg.Signatures) == 0 {
		cfg.Signatures = DefaultSignatures()
	}
	if cfg.NewMarker == nil {
		cfg.NewMarker = func() string { return "pf" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10] }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Stage{
		client:    cfg.HTTPClient,
		params:    append([]string(nil), cfg.Params...),
		limit:     rate.Limit(cfg.Rate),
		sigs:      cfg.Signatures,
		newMarker: cfg.NewMarker,
		logger:    cfg.Logger,
	}
}

// Name returns "exploit".
func (s *Stage) Name() string { return "exploit" }

// Run probes t.URL and returns the SQL injection and XSS sections.
func (s *Stage) Run(ctx context.Context, t *target.Target) []report.Section {
	p := &prober{
		stage:   s,
		limiter: rate.NewLimiter(s.limit, 1),
	}
	return []report.Section{
		{Title: TitleSQLi, Content: p.sqli(ctx, t.URL)},
		{Title: TitleXSS, Content: p.xss(ctx, t.URL)},
	}
}

// prober holds per-run state so concurrent runs do not share a limiter.
type prober struct {
	stage   *Stage
	limiter *rate.Limiter
}

func (p *prober) sqli(ctx context.Context, base string) string {
	baseline, err := p.get(ctx, base, "", "")
	if err != nil {
		return "SQL injection probe failed: " + err.Error()
	}
	if sig, _, ok := MatchSQLError(baseline, p.stage.sigs); ok {
		return fmt.Sprintf("Inconclusive: the unmodified page already contains a database error signature (%s).", sig.DBMS)
	}

	var failures []string
	for _, param := range p.stage.params {
		body, err := p.get(ctx, base, param, sqliPayload)
		if err != nil {
			if ctx.Err() != nil {
				return "SQL injection probe failed: " + err.Error()
			}
			failures = append(failures, param+": "+err.Error())
			continue
		}
		if sig, evidence, ok := MatchSQLError(body, p.stage.sigs); ok {
			p.stage.logger.Info("sql error signature observed",
				slog.String("param", param), slog.String("dbms", sig.DBMS))
			return strings.Join([]string{
				HighMarker,
				"Parameter: " + param,
				"Payload: " + sqliPayload,
				"DBMS: " + sig.DBMS,
				"Evidence: " + evidence,
				"Remediation: Use parameterized queries and suppress database errors in responses.",
			}, "\n")
		}
	}
	return clean("No SQL error signatures observed", p.stage.params, failures)
}

func (p *prober) xss(ctx context.Context, base string) string {
	marker := p.stage.newMarker()
	payload := `"><script>alert('` + marker + `')</script>`

	var failures []string
	for _, param := range p.stage.params {
		body, err := p.get(ctx, base, param, payload)
		if err != nil {
			if ctx.Err() != nil {
				return "XSS probe failed: " + err.Error()
			}
			failures = append(failures, param+": "+err.Error())
			continue
		}
		if strings.Contains(body, payload) {
			p.stage.logger.Info("unescaped reflection observed", slog.String("param", param))
			return strings.Join([]string{
				HighMarker,
				"Parameter: " + param,
				"Payload: " + payload,
				"Evidence: payload reflected without encoding",
				"Remediation: Encode user input for the HTML context it is written into.",
			}, "\n")
		}
	}
	return clean("No unescaped reflection observed", p.stage.params, failures)
}

func clean(headline string, params, failures []string) string {
	if len(failures) == len(params) && len(params) > 0 {
		return "Probe failed for every parameter:\n" + strings.Join(failures, "\n")
	}
	lines := []string{headline + " for parameters: " + strings.Join(params, ", ")}
	if len(failures) > 0 {
		lines = append(lines, "Failed requests:")
		lines = append(lines, failures...)
	}
	return strings.Join(lines, "\n")
}

var errNotHTTP = errors.New("target is not an http(s) URL")

// get fetches base with param set to value. An empty param fetches base
// unchanged.
func (p *prober) get(ctx context.Context, base, param, value string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errNotHTTP
	}
	if param != "" {
		q := u.Query()
		q.Set(param, value)
		u.RawQuery = q.Encode()
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := p.stage.client.Do(req)
	if err != nil {
		return "", err
	}
	defer iohelper.DrainAndClose(resp.Body)

	body, err := iohelper.ReadBody(resp.Body, iohelper.PageMaxBodySize)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
