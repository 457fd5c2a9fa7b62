// Package recon implements the reconnaissance stage: address resolution,
// HTTP response headers, robots.txt, WHOIS registration data and a short
// summary of the landing page.
//
// Every collector degrades to a descriptive message on failure, so the
// stage always produces the same sections in the same order:
//
//	Target Information
//	HTTP Headers
//	robots.txt Content
//	WHOIS Information
//	Landing Page
package recon
