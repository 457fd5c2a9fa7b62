package nmap

import (
	"fmt"
	"strings"
)

// NoOpenPortsMessage is the report content used when no record qualifies.
// It is a normal outcome, not an error.
const NoOpenPortsMessage = "No open ports detected."

// ServiceRecord is one open port as reported by the scanner.
type ServiceRecord struct {
	Protocol string `json:"protocol"` // e.g. "22/tcp"
	State    string `json:"state"`    // e.g. "open"
	Service  string `json:"service"`  // e.g. "ssh OpenSSH 8.2p1 Ubuntu"
}

// String renders the record as a fixed-width table row.
func (r ServiceRecord) String() string {
	return fmt.Sprintf("%-10s %-10s %s", r.Protocol, r.State, r.Service)
}

// ParseOutput extracts service records from raw scanner output, keeping the
// order in which they appear. It never fails; unparseable input yields no
// records.
func ParseOutput(raw string) []ServiceRecord {
	var records []ServiceRecord

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if !isCandidate(line) {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 3 {
			continue
		}
		records = append(records, ServiceRecord{
			Protocol: parts[0],
			State:    parts[1],
			Service:  strings.Join(parts[2:], " "),
		})
	}
	return records
}

func isCandidate(line string) bool {
	return (strings.Contains(line, "tcp") || strings.Contains(line, "udp")) &&
		strings.Contains(line, "open")
}

// FormatTable renders records one per line, or NoOpenPortsMessage when
// there are none.
func FormatTable(records []ServiceRecord) string {
	if len(records) == 0 {
		return NoOpenPortsMessage
	}
	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.String())
	}
	return b.String()
}
