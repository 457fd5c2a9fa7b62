package nmap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOutput = `Starting Nmap 7.94 ( https://nmap.org ) at 2024-01-01 10:00 UTC
Nmap scan report for example.com (93.184.216.34)
Host is up (0.010s latency).
Not shown: 997 filtered tcp ports (no-response)
PORT    STATE SERVICE  VERSION
22/tcp  open  ssh      OpenSSH 8.2p1 Ubuntu 4ubuntu0.5
80/tcp  open  http     Apache httpd 2.4.41 ((Ubuntu))
443/tcp closed https
Nmap done: 1 IP address (1 host up) scanned in 12.34 seconds
`

func TestParseOutput(t *testing.T) {
	t.Parallel()

	records := ParseOutput(sampleOutput)
	require.Len(t, records, 2)

	assert.Equal(t, ServiceRecord{Protocol: "22/tcp", State: "open", Service: "ssh OpenSSH 8.2p1 Ubuntu 4ubuntu0.5"}, records[0])
	assert.Equal(t, ServiceRecord{Protocol: "80/tcp", State: "open", Service: "http Apache httpd 2.4.41 ((Ubuntu))"}, records[1])
}

func TestParseOutputEdgeCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"no open", "443/tcp closed https", 0},
		{"no transport", "port 80 open http", 0},
		{"too few tokens", "53/udp open", 0},
		{"udp", "53/udp open domain", 1},
		{"uppercase TCP is not a candidate", "22/TCP open ssh", 0},
		{"open|filtered counts", "161/udp open|filtered snmp", 1},
		{"collapses whitespace", "8080/tcp   open   http-proxy    nginx", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Len(t, ParseOutput(tt.in), tt.want)
		})
	}
}

func TestParseOutputLongLine(t *testing.T) {
	t.Parallel()

	raw := "Nmap scan report\r\n" + strings.Repeat("x", 2<<20) + "\r\n80/tcp open http Apache httpd 2.4.1\r\n"
	records := ParseOutput(raw)
	require.Len(t, records, 1)
	assert.Equal(t, ServiceRecord{Protocol: "80/tcp", State: "open", Service: "http Apache httpd 2.4.1"}, records[0])
}

// Every record must come from a line containing a transport and "open".
func TestParseOutputNeverInventsRecords(t *testing.T) {
	t.Parallel()

	lines := strings.Split(sampleOutput, "\n")
	for _, r := range ParseOutput(sampleOutput) {
		found := false
		for _, l := range lines {
			if strings.HasPrefix(strings.TrimSpace(l), r.Protocol) && strings.Contains(l, "open") {
				found = true
				break
			}
		}
		assert.True(t, found, "record %v has no source line", r)
	}
}

func TestFormatTable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, NoOpenPortsMessage, FormatTable(nil))

	table := FormatTable([]ServiceRecord{
		{Protocol: "22/tcp", State: "open", Service: "ssh"},
		{Protocol: "3306/tcp", State: "open", Service: "mysql MySQL 5.7"},
	})
	assert.Equal(t, "22/tcp     open       ssh\n3306/tcp   open       mysql MySQL 5.7", table)
}
