package testsupport

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// Handler answers one request line. Returning nil keeps the connection open
// without replying, which simulates a hung daemon.
type Handler func(request json.RawMessage) []byte

// Responder is an in-process stand-in for the daemon.
type Responder struct {
	Path string

	listener net.Listener
	mu       sync.Mutex
	handler  Handler
	requests []json.RawMessage
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// NewResponder listens on a fresh socket and stops when the test ends.
func NewResponder(t testing.TB, handler Handler) *Responder {
	t.Helper()
	// Socket paths have a small length limit, so avoid t.TempDir.
	dir, err := os.MkdirTemp("", "ftr")
	if err != nil {
		t.Fatalf("create socket dir: %v", err)
	}
	path := filepath.Join(dir, "d.sock")
	listener, err := net.Listen("unix", path)
	if err != nil {
		_ = os.RemoveAll(dir)
		t.Skipf("unix sockets unavailable: %v", err)
	}
	r := &Responder{
		Path:     path,
		listener: listener,
		handler:  handler,
		conns:    make(map[net.Conn]struct{}),
	}
	r.wg.Add(1)
	go r.serve()
	t.Cleanup(func() {
		r.Close()
		_ = os.RemoveAll(dir)
	})
	return r
}

func (r *Responder) serve() {
	defer r.wg.Done()
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		r.mu.Lock()
		r.conns[conn] = struct{}{}
		r.mu.Unlock()
		r.wg.Add(1)
		go r.handle(conn)
	}
}

func (r *Responder) handle(conn net.Conn) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		delete(r.conns, conn)
		r.mu.Unlock()
		_ = conn.Close()
	}()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return
	}
	request := json.RawMessage(append([]byte(nil), line[:len(line)-1]...))

	r.mu.Lock()
	r.requests = append(r.requests, request)
	handler := r.handler
	r.mu.Unlock()

	var reply []byte
	if handler != nil {
		reply = handler(request)
	}
	if reply == nil {
		// Hold the connection until the client gives up or Close runs.
		_, _ = reader.ReadBytes('\n')
		return
	}
	_, _ = conn.Write(append(reply, '\n'))
}

// SetHandler swaps the handler for subsequent connections.
func (r *Responder) SetHandler(handler Handler) {
	r.mu.Lock()
	r.handler = handler
	r.mu.Unlock()
}

// Requests returns every request line received so far.
func (r *Responder) Requests() []json.RawMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]json.RawMessage(nil), r.requests...)
}

// RequestTypes returns the type field of every request received.
func (r *Responder) RequestTypes() []string {
	var types []string
	for _, raw := range r.Requests() {
		var req struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(raw, &req)
		types = append(types, req.Type)
	}
	return types
}

// Close stops accepting and drops open connections.
func (r *Responder) Close() {
	_ = r.listener.Close()
	r.mu.Lock()
	for conn := range r.conns {
		_ = conn.Close()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// Reply encodes a daemon envelope.
func Reply(typ string, payload any) []byte {
	data, err := json.Marshal(map[string]any{"type": typ, "payload": payload})
	if err != nil {
		panic(err)
	}
	return data
}

// StatusReply is a status_response with the given pid and session ids.
func StatusReply(pid int, sessionIDs ...string) []byte {
	sessions := make([]map[string]any, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		sessions = append(sessions, map[string]any{
			"sessionId": id,
			"cli":       "claude",
			"cwd":       "/work/" + id,
			"status":    "running",
			"startedAt": "2026-01-02T15:04:05Z",
		})
	}
	return Reply("status_response", map[string]any{
		"daemonPid":      pid,
		"activeSessions": len(sessionIDs),
		"sessions":       sessions,
	})
}

// OKReply is a generic successful outcome.
func OKReply(typ string) []byte {
	return Reply(typ, map[string]any{"ok": true})
}
