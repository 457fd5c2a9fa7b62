package recon

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"golang.org/x/net/publicsuffix"

	"github.com/pentestflow/pentestflow/pkg/defaults"
)

// WhoisLookup returns raw WHOIS text for a domain or address.
type WhoisLookup interface {
	Whois(ctx context.Context, query string) (string, error)
}

// WhoisClient queries public WHOIS servers.
type WhoisClient struct {
	Timeout time.Duration
}

// NewWhoisClient returns a client with the default timeout.
func NewWhoisClient() *WhoisClient {
	return &WhoisClient{Timeout: defaults.WhoisTimeout}
}

// Whois performs the lookup. The underlying library is not
// context-aware, so cancellation abandons the query in the background.
func (c *WhoisClient) Whois(ctx context.Context, query string) (string, error) {
	type result struct {
		raw string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		raw, err := whois.NewClient().SetTimeout(c.Timeout).Whois(query)
		ch <- result{raw, err}
	}()
	select {
	case r := <-ch:
		return r.raw, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// WhoisQuery picks what to look up for hostname: IP literals as-is,
// names reduced to their registrable domain (www.example.co.uk becomes
// example.co.uk).
func WhoisQuery(hostname string) string {
	if net.ParseIP(hostname) != nil {
		return hostname
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(strings.TrimSuffix(hostname, ".")); err == nil {
		return d
	}
	return hostname
}

// FormatWhois summarizes raw WHOIS text. When the text cannot be parsed
// (IP registries, unusual TLD formats) it is returned trimmed.
func FormatWhois(raw string) string {
	info, err := whoisparser.Parse(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}

	var lines []string
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", label, value))
		}
	}
	if d := info.Domain; d != nil {
		add("Domain", d.Domain)
		add("Created", d.CreatedDate)
		add("Updated", d.UpdatedDate)
		add("Expires", d.ExpirationDate)
		add("Name Servers", strings.Join(d.NameServers, ", "))
		add("Status", strings.Join(d.Status, ", "))
	}
	if r := info.Registrar; r != nil {
		add("Registrar", r.Name)
	}
	if r := info.Registrant; r != nil {
		add("Registrant Organization", r.Organization)
		add("Registrant Country", r.Country)
		add("Registrant Email", r.Email)
	}
	if a := info.Administrative; a != nil {
		add("Admin Email", a.Email)
	}
	if len(lines) == 0 {
		return strings.TrimSpace(raw)
	}
	return strings.Join(lines, "\n")
}
