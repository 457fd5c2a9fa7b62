// Package target normalizes the user-supplied target and carries what the
// stages learn about it.
package target

import (
	"net/url"
	"strings"
	"sync"

	"github.com/pentestflow/pentestflow/pkg/defaults"
)

// Target is the host under test. Recon fills in IP; later stages read it.
type Target struct {
	Raw      string
	URL      string
	Hostname string

	mu sync.RWMutex
	ip string
}

// Normalize prefixes "http://" when raw carries no scheme.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "://") {
		return raw
	}
	return defaults.DefaultScheme + raw
}

// New builds a Target from user input.
func New(raw string) *Target {
	u := Normalize(raw)
	return &Target{Raw: raw, URL: u, Hostname: Hostname(u)}
}

// Hostname extracts the host portion of a URL without port. It falls back
// to the text between "://" and the next "/" when the URL does not parse.
func Hostname(rawURL string) string {
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Hostname() != "" {
		return parsed.Hostname()
	}
	rest := rawURL
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndex(rest, ":"); i >= 0 && !strings.Contains(rest[i:], "]") {
		rest = rest[:i]
	}
	return rest
}

// IP returns the resolved address, or "" when unresolved.
func (t *Target) IP() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ip
}

// SetIP records the resolved address.
func (t *Target) SetIP(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ip = ip
}

// Resolved reports whether an IP is known.
func (t *Target) Resolved() bool {
	return t.IP() != ""
}
