// Package nmap runs the external port scanner and turns its plain-text
// output into ordered service records.
//
// Parsing is line-based and deliberately loose: any line that mentions a
// transport (tcp or udp) and the word open is a candidate, and candidates
// with fewer than three whitespace-separated tokens are skipped without
// complaint. The first token is the protocol/port, the second the state
// and everything after that the service descriptor.
package nmap
