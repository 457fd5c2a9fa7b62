// Package httpclient builds the HTTP clients used by recon and the
// exploitation probes.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/pentestflow/pentestflow/pkg/defaults"
)

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the total request timeout (default: 5s)
	Timeout time.Duration

	// InsecureSkipVerify skips TLS certificate verification (default: false)
	InsecureSkipVerify bool

	// Proxy is the HTTP/HTTPS proxy URL (optional)
	Proxy string

	// FollowRedirects follows up to 10 redirects when true. Probes leave it
	// off so they see the response to their own request.
	FollowRedirects bool

	// UserAgent is set on requests that do not carry one (default: defaults.UserAgent)
	UserAgent string
}

// DefaultConfig returns the recon client settings.
func DefaultConfig() Config {
	return Config{
		Timeout:         defaults.ReconTimeout,
		FollowRedirects: true,
		UserAgent:       defaults.UserAgent,
	}
}

// New creates an HTTP client with the given configuration.
func New(cfg Config) *http.Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.ReconTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}

	dialer := &net.Dialer{
		Timeout:   cfg.Timeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   cfg.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
		DialContext:           dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for lab targets
		},
		Proxy: http.ProxyFromEnvironment,
	}

	// A malformed proxy URL is ignored and the environment proxy is kept.
	if cfg.Proxy != "" {
		if proxyURL, err := url.Parse(cfg.Proxy); err == nil && proxyURL.Host != "" {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{
		Transport: &userAgentTransport{base: transport, ua: cfg.UserAgent},
		Timeout:   cfg.Timeout,
	}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

// userAgentTransport sets a default User-Agent header.
type userAgentTransport struct {
	base http.RoundTripper
	ua   string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.ua)
	}
	return t.base.RoundTrip(req)
}
