//go:build !linux || !amd64

package linuxhost

import "fmt"

// Host is an opaque, unusable placeholder on platforms other than
// Linux/amd64, where /dev/vtxcore cannot exist.
type Host struct{}

// Open always fails outside Linux/amd64.
func Open() (*Host, error) {
	return nil, fmt.Errorf("linuxhost: not supported on this platform")
}

// Close is a no-op stub.
func (h *Host) Close() error { return nil }
