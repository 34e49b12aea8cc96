package uibridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"feishu-tray/internal/daemonctl"
	"feishu-tray/internal/diagbundle"
	"feishu-tray/internal/ipc"
	"feishu-tray/internal/logging"
	"feishu-tray/internal/tray"
	"feishu-tray/internal/updatecheck"
)

// DefaultBind is the listen address when none is configured.
const DefaultBind = "127.0.0.1:47621"

// Daemon is the request surface the bridge forwards to.
type Daemon interface {
	ReadStatus(ctx context.Context) ipc.GUIStatus
	ListBots(ctx context.Context) json.RawMessage
	SaveBot(ctx context.Context, botType string, cfg json.RawMessage) ipc.Outcome
	DeleteBot(ctx context.Context, botType, botID string) ipc.Outcome
	BindBot(ctx context.Context, sessionID, botType, botID string) ipc.Outcome
	UnbindBot(ctx context.Context, sessionID, botType string) ipc.Outcome
	TestBot(ctx context.Context, botType, botID string) ipc.Outcome
	ActivateBot(ctx context.Context, botID string) ipc.Outcome
	GetConfig(ctx context.Context) json.RawMessage
	SaveConfig(ctx context.Context, doc json.RawMessage) ipc.Outcome
	CheckCodexConfig(ctx context.Context) json.RawMessage
	SetupCodexConfig(ctx context.Context) ipc.Outcome
	CheckClaudeConfig(ctx context.Context) json.RawMessage
	SetupClaudeConfig(ctx context.Context) ipc.Outcome
}

// Lifecycle starts and stops the daemon process.
type Lifecycle interface {
	EnsureRunning(ctx context.Context) (daemonctl.StartResult, error)
	Stop(ctx context.Context) bool
}

// Exporter writes diagnostic bundles.
type Exporter interface {
	Export(dest string) (diagbundle.Result, error)
}

// UpdateFunc runs one update check. etag overrides the stored one when set.
type UpdateFunc func(ctx context.Context, etag string) (updatecheck.Result, error)

// Deps wires the bridge to the rest of the process. Nil members make their
// commands reply with an error.
type Deps struct {
	Daemon    Daemon
	Lifecycle Lifecycle
	Exporter  Exporter
	Update    UpdateFunc
	Tray      *tray.Handle
}

// Server serves /ws and /healthz.
type Server struct {
	bind     string
	deps     Deps
	logger   *slog.Logger
	upgrader websocket.Upgrader
	commands map[string]commandFunc

	mu       sync.Mutex
	baseCtx  context.Context
	listener net.Listener
	server   *http.Server
	conns    map[*connection]struct{}
	wg       sync.WaitGroup
}

// New builds a server for bind. An empty bind uses DefaultBind.
func New(bind string, deps Deps, logger *slog.Logger) *Server {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		bind = DefaultBind
	}
	s := &Server{
		bind:   bind,
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "uibridge"),
		conns:  make(map[*connection]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     allowOrigin,
	}
	s.commands = s.commandTable()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start listens and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("ui bridge listen %s: %w", s.bind, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.baseCtx = ctx
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("ui bridge server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Close()
	}()

	s.logger.Info("ui bridge listening",
		logging.String(logging.FieldEventType, "ui_bridge_listening"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

// Close shuts the HTTP server down and drops every connection.
func (s *Server) Close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	conns := make([]*connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
	s.wg.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	// The request context ends when this handler returns, so connections
	// hang off the server's context instead.
	s.mu.Lock()
	parent := s.baseCtx
	if parent == nil {
		parent = context.Background()
	}
	c := newConnection(parent, ws, s)
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()
	c.attachTray(s.deps.Tray)

	go c.writeLoop()
	go func() {
		defer s.wg.Done()
		c.readLoop()
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
	}()
}

// allowOrigin accepts requests without an Origin header and pages served from
// loopback hosts or the webview's custom scheme.
func allowOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "tauri", "file":
		return true
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1", "tauri.localhost":
		return true
	}
	return false
}
