// Package iohelper reads HTTP response bodies with size caps.
package iohelper

import (
	"io"
)

// Body size caps.
const (
	// PageMaxBodySize bounds landing pages and probe responses (2MB).
	PageMaxBodySize int64 = 2 << 20

	// TextMaxBodySize bounds small text resources such as robots.txt (512KB).
	TextMaxBodySize int64 = 512 << 10
)

// ReadBody reads at most maxSize bytes from r. A nil reader yields an
// empty slice.
func ReadBody(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// DrainAndClose discards up to 64KB of what is left in r and closes it so
// the connection can be reused. It always returns nil for use in defer.
func DrainAndClose(r io.ReadCloser) error {
	if r == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64<<10))
	r.Close()
	return nil
}
