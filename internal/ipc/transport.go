package ipc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"feishu-tray/internal/endpoint"
)

// DefaultTimeout bounds one request/response exchange.
const DefaultTimeout = 10 * time.Second

// ErrUnreachable covers connect, write, read, timeout and parse failures.
// Callers must not try to tell them apart.
var ErrUnreachable = errors.New("daemon unreachable")

// Transport performs one request/response exchange with the daemon.
type Transport interface {
	Send(ctx context.Context, ep endpoint.Endpoint, request []byte) (json.RawMessage, error)
}

type dialFunc func(ctx context.Context, address string) (net.Conn, error)

// exchange dials, writes request plus a newline, and reads one line back. The
// whole exchange shares one deadline, and cancelling ctx closes the
// connection so a blocked read returns immediately.
func exchange(ctx context.Context, dial dialFunc, address string, request []byte, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := dial(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %w", ErrUnreachable, address, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	line := make([]byte, 0, len(request)+1)
	line = append(line, bytes.TrimRight(request, "\r\n")...)
	line = append(line, '\n')
	if _, err := conn.Write(line); err != nil {
		return nil, fmt.Errorf("%w: write request: %w", ErrUnreachable, err)
	}

	reply, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(bytes.TrimSpace(reply)) > 0) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: read response: %w", ErrUnreachable, ctxErr)
		}
		return nil, fmt.Errorf("%w: read response: %w", ErrUnreachable, err)
	}

	reply = bytes.TrimSpace(reply)
	if !json.Valid(reply) {
		return nil, fmt.Errorf("%w: response is not valid JSON", ErrUnreachable)
	}
	return json.RawMessage(reply), nil
}

// SocketTransport reaches the daemon over a Unix domain stream socket.
type SocketTransport struct {
	Timeout time.Duration
}

// Send implements Transport.
func (t SocketTransport) Send(ctx context.Context, ep endpoint.Endpoint, request []byte) (json.RawMessage, error) {
	dial := func(ctx context.Context, address string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", address)
	}
	return exchange(ctx, dial, ep.Address, request, t.Timeout)
}
