package recon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"

	"github.com/pentestflow/pentestflow/pkg/defaults"
)

// Resolver maps a hostname to one IPv4 address.
type Resolver interface {
	LookupIPv4(ctx context.Context, host string) (string, error)
}

// ErrNoAddress is returned when a name has no A record.
var ErrNoAddress = errors.New("no IPv4 address found")

// DNSResolver queries the system's configured nameservers directly and
// falls back to the Go resolver, which also consults /etc/hosts.
type DNSResolver struct {
	Servers  []string // host:port
	Timeout  time.Duration
	Fallback *net.Resolver
}

// NewDNSResolver reads nameservers from /etc/resolv.conf. When the file is
// missing only the fallback resolver is used.
func NewDNSResolver() *DNSResolver {
	r := &DNSResolver{Timeout: defaults.ReconTimeout, Fallback: net.DefaultResolver}
	if conf, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil {
		for _, s := range conf.Servers {
			r.Servers = append(r.Servers, net.JoinHostPort(s, conf.Port))
		}
	}
	return r
}

// LookupIPv4 returns host unchanged when it is already an IPv4 literal.
func (r *DNSResolver) LookupIPv4(ctx context.Context, host string) (string, error) {
	if host == "" {
		return "", fmt.Errorf("resolve: empty hostname")
	}
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4.String(), nil
		}
		return "", fmt.Errorf("resolve %s: %w", host, ErrNoAddress)
	}

	if ip, err := r.query(ctx, host); err == nil {
		return ip, nil
	}

	fallback := r.Fallback
	if fallback == nil {
		fallback = net.DefaultResolver
	}
	ips, err := fallback.LookupIP(ctx, "ip4", host)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(ips) == 0 {
		return "", fmt.Errorf("resolve %s: %w", host, ErrNoAddress)
	}
	return ips[0].String(), nil
}

func (r *DNSResolver) query(ctx context.Context, host string) (string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeA)
	m.RecursionDesired = true

	client := &dns.Client{Timeout: r.Timeout}
	var lastErr error = ErrNoAddress
	for _, server := range r.Servers {
		in, _, err := client.ExchangeContext(ctx, m, server)
		if err != nil {
			lastErr = err
			continue
		}
		if in.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("%s: %s", server, dns.RcodeToString[in.Rcode])
			continue
		}
		for _, ans := range in.Answer {
			if a, ok := ans.(*dns.A); ok {
				return a.A.String(), nil
			}
		}
	}
	return "", lastErr
}
