//go:build windows

package ipc

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/Microsoft/go-winio"

	"feishu-tray/internal/endpoint"
)

// PipeTransport reaches the daemon over a Windows named pipe. Pipe handles
// from go-winio honour deadlines and Close, so reads are cancellable.
type PipeTransport struct {
	Timeout time.Duration
}

// Send implements Transport.
func (t PipeTransport) Send(ctx context.Context, ep endpoint.Endpoint, request []byte) (json.RawMessage, error) {
	dial := func(ctx context.Context, address string) (net.Conn, error) {
		return winio.DialPipeContext(ctx, address)
	}
	return exchange(ctx, dial, ep.Address, request, t.Timeout)
}

// NewTransport returns the platform transport: named pipes.
func NewTransport(timeout time.Duration) Transport {
	return PipeTransport{Timeout: timeout}
}
