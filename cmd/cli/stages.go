package main

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/pentestflow/pentestflow/pkg/config"
	"github.com/pentestflow/pentestflow/pkg/defaults"
	"github.com/pentestflow/pentestflow/pkg/exploit"
	"github.com/pentestflow/pentestflow/pkg/httpclient"
	"github.com/pentestflow/pentestflow/pkg/nmap"
	"github.com/pentestflow/pentestflow/pkg/recon"
	"github.com/pentestflow/pentestflow/pkg/scanner"
	"github.com/pentestflow/pentestflow/pkg/vulnmatch"
	"github.com/pentestflow/pentestflow/pkg/workflow"
)

// buildStages creates one stage of each kind from cfg.
func buildStages(cfg *config.Config, logger *slog.Logger) (workflow.StageSet, error) {
	resolver := recon.NewDNSResolver()
	resolver.Timeout = cfg.Recon.Timeout
	if len(cfg.Recon.DNSServers) > 0 {
		resolver.Servers = nil
		for _, s := range cfg.Recon.DNSServers {
			if _, _, err := net.SplitHostPort(s); err != nil {
				s = net.JoinHostPort(s, "53")
			}
			resolver.Servers = append(resolver.Servers, s)
		}
	}
	whois := recon.NewWhoisClient()
	whois.Timeout = cfg.Recon.WhoisTimeout

	reconStage := recon.New(recon.Config{
		HTTPClient: httpclient.New(httpclient.Config{
			Timeout:            cfg.Recon.Timeout,
			InsecureSkipVerify: cfg.Recon.InsecureSkipVerify,
			Proxy:              cfg.Recon.Proxy,
			FollowRedirects:    true,
			UserAgent:          defaults.UserAgent,
		}),
		Resolver: resolver,
		Whois:    whois,
		SkipPage: cfg.Recon.SkipLandingPage,
		Logger:   logger,
	})

	var extra []vulnmatch.Entry
	if cfg.Scan.TableFile != "" {
		var err error
		if extra, err = vulnmatch.LoadTable(cfg.Scan.TableFile); err != nil {
			return workflow.StageSet{}, err
		}
	}
	scanStage := scanner.New(nmap.NewRunner(cfg.Scan.Binary, cfg.Scan.Flags, logger), vulnmatch.New(extra...), logger)

	sigs := exploit.DefaultSignatures()
	if len(cfg.Exploit.SQLErrorPatterns) > 0 {
		custom, err := exploit.CompileSignatures("Custom", cfg.Exploit.SQLErrorPatterns...)
		if err != nil {
			return workflow.StageSet{}, fmt.Errorf("exploit.sql_error_patterns: %w", err)
		}
		sigs = append(sigs, custom...)
	}
	exploitStage := exploit.New(exploit.Config{
		HTTPClient: httpclient.New(httpclient.Config{
			Timeout:            defaults.ProbeTimeout,
			InsecureSkipVerify: cfg.Recon.InsecureSkipVerify,
			Proxy:              cfg.Recon.Proxy,
			UserAgent:          defaults.UserAgentWithContext("exploit"),
		}),
		Params:     cfg.Exploit.Params,
		Rate:       cfg.Exploit.Rate,
		Signatures: sigs,
		Logger:     logger,
	})

	return workflow.StageSet{Recon: reconStage, Scan: scanStage, Exploit: exploitStage}, nil
}
