//go:build !windows

package ipc

import "time"

// NewTransport returns the platform transport: Unix domain sockets.
func NewTransport(timeout time.Duration) Transport {
	return SocketTransport{Timeout: timeout}
}
