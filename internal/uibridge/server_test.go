package uibridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"feishu-tray/internal/daemonctl"
	"feishu-tray/internal/diagbundle"
	"feishu-tray/internal/ipc"
	"feishu-tray/internal/tray"
	"feishu-tray/internal/uibridge"
	"feishu-tray/internal/updatecheck"
)

type fakeDaemon struct {
	release   chan struct{}
	saved     atomic.Value
	statusPID int64
}

func (f *fakeDaemon) ReadStatus(context.Context) ipc.GUIStatus {
	pid := f.statusPID
	return ipc.GUIStatus{Running: true, DaemonPID: &pid}
}

func (f *fakeDaemon) ListBots(ctx context.Context) json.RawMessage {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
		}
	}
	return json.RawMessage(`{"interactive":[],"push":[]}`)
}

func (f *fakeDaemon) SaveBot(_ context.Context, botType string, cfg json.RawMessage) ipc.Outcome {
	f.saved.Store(botType + ":" + string(cfg))
	return ipc.Outcome{OK: true}
}

func (f *fakeDaemon) DeleteBot(context.Context, string, string) ipc.Outcome {
	return ipc.Outcome{OK: false, Error: "no response from daemon"}
}
func (f *fakeDaemon) BindBot(context.Context, string, string, string) ipc.Outcome {
	return ipc.Outcome{OK: true}
}
func (f *fakeDaemon) UnbindBot(context.Context, string, string) ipc.Outcome {
	return ipc.Outcome{OK: true}
}
func (f *fakeDaemon) TestBot(context.Context, string, string) ipc.Outcome {
	return ipc.Outcome{OK: true}
}
func (f *fakeDaemon) ActivateBot(context.Context, string) ipc.Outcome {
	return ipc.Outcome{OK: true}
}
func (f *fakeDaemon) GetConfig(context.Context) json.RawMessage { return json.RawMessage("null") }
func (f *fakeDaemon) SaveConfig(context.Context, json.RawMessage) ipc.Outcome {
	return ipc.Outcome{OK: true}
}
func (f *fakeDaemon) CheckCodexConfig(context.Context) json.RawMessage {
	return json.RawMessage(`{"configured":true}`)
}
func (f *fakeDaemon) SetupCodexConfig(context.Context) ipc.Outcome { return ipc.Outcome{OK: true} }
func (f *fakeDaemon) CheckClaudeConfig(context.Context) json.RawMessage {
	return json.RawMessage(`{"configured":false}`)
}
func (f *fakeDaemon) SetupClaudeConfig(context.Context) ipc.Outcome { return ipc.Outcome{OK: true} }

type fakeLifecycle struct {
	err     error
	stopped atomic.Bool
}

func (f *fakeLifecycle) EnsureRunning(context.Context) (daemonctl.StartResult, error) {
	if f.err != nil {
		return daemonctl.StartResult{State: daemonctl.StateGaveUp, Launched: true, Attempts: 20}, f.err
	}
	return daemonctl.StartResult{State: daemonctl.StateRunning}, nil
}

func (f *fakeLifecycle) Stop(context.Context) bool {
	f.stopped.Store(true)
	return true
}

type fakeExporter struct{}

func (fakeExporter) Export(dest string) (diagbundle.Result, error) {
	if strings.HasPrefix(dest, "/nonexistent") {
		return diagbundle.Result{}, errors.New("create bundle " + dest + ": no such file or directory")
	}
	return diagbundle.Result{Path: dest, BundleID: "bundle-1"}, nil
}

type harness struct {
	t      *testing.T
	server *uibridge.Server
	tray   *tray.Handle
	quit   atomic.Bool
}

func startServer(t *testing.T, deps uibridge.Deps) *harness {
	t.Helper()
	h := &harness{t: t}
	h.tray = tray.New(tray.Actions{Quit: func() { h.quit.Store(true) }}, nil)
	deps.Tray = h.tray
	h.server = uibridge.New("127.0.0.1:0", deps, nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := h.server.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		h.server.Close()
	})
	return h
}

func (h *harness) dial() *websocket.Conn {
	h.t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+h.server.Addr()+"/ws", nil)
	if err != nil {
		h.t.Fatalf("dial failed: %v", err)
	}
	h.t.Cleanup(func() { _ = conn.Close() })
	// Drain the initial tray snapshot.
	for i := 0; i < 5; i++ {
		msg := readMessage(h.t, conn)
		if msg["event"] != "tray" {
			h.t.Fatalf("expected tray snapshot event, got %v", msg)
		}
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return msg
}

func send(t *testing.T, conn *websocket.Conn, id any, command string, args any) {
	t.Helper()
	msg := map[string]any{"id": id, "command": command}
	if args != nil {
		msg["args"] = args
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestReadDaemonStatus(t *testing.T) {
	h := startServer(t, uibridge.Deps{Daemon: &fakeDaemon{statusPID: 4242}})
	conn := h.dial()

	send(t, conn, 1, "read_daemon_status", nil)
	reply := readMessage(t, conn)
	if reply["id"] != float64(1) {
		t.Fatalf("unexpected id: %v", reply)
	}
	result, ok := reply["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected result object, got %v", reply)
	}
	if result["running"] != true || result["daemon_pid"] != float64(4242) {
		t.Fatalf("unexpected status: %v", result)
	}
}

func TestSlowCommandDoesNotBlockOthers(t *testing.T) {
	daemon := &fakeDaemon{release: make(chan struct{})}
	h := startServer(t, uibridge.Deps{Daemon: daemon})
	conn := h.dial()

	send(t, conn, "slow", "list_bots", nil)
	send(t, conn, "fast", "get_config", nil)

	first := readMessage(t, conn)
	if first["id"] != "fast" {
		t.Fatalf("expected fast reply first, got %v", first)
	}
	close(daemon.release)
	second := readMessage(t, conn)
	if second["id"] != "slow" {
		t.Fatalf("expected slow reply second, got %v", second)
	}
}

func TestSlowUpdateCheckDoesNotBlockMenuEvents(t *testing.T) {
	release := make(chan struct{})
	update := func(ctx context.Context, _ string) (updatecheck.Result, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return updatecheck.Result{CurrentVersion: "1.0.0"}, nil
	}
	h := startServer(t, uibridge.Deps{Update: update})
	conn := h.dial()

	send(t, conn, "update", "check_update", nil)
	send(t, conn, "menu", "menu_event", map[string]any{"id": "open"})

	first := readMessage(t, conn)
	if first["id"] != "menu" {
		t.Fatalf("expected menu reply while update check is pending, got %v", first)
	}
	close(release)
	second := readMessage(t, conn)
	if second["id"] != "update" {
		t.Fatalf("expected update reply second, got %v", second)
	}
}

func TestSaveBotForwardsArgs(t *testing.T) {
	daemon := &fakeDaemon{}
	h := startServer(t, uibridge.Deps{Daemon: daemon})
	conn := h.dial()

	send(t, conn, 7, "save_bot", map[string]any{"botType": "push", "config": map[string]any{"name": "ops"}})
	reply := readMessage(t, conn)
	result := reply["result"].(map[string]any)
	if result["ok"] != true {
		t.Fatalf("unexpected reply: %v", reply)
	}
	if got := daemon.saved.Load(); got != `push:{"name":"ops"}` {
		t.Fatalf("unexpected forwarded save: %v", got)
	}
}

func TestUnknownCommandAndBadArgs(t *testing.T) {
	h := startServer(t, uibridge.Deps{Daemon: &fakeDaemon{}})
	conn := h.dial()

	send(t, conn, 1, "format_disk", nil)
	reply := readMessage(t, conn)
	if errText, _ := reply["error"].(string); !strings.Contains(errText, "unknown command") {
		t.Fatalf("expected unknown command error, got %v", reply)
	}

	send(t, conn, 2, "delete_bot", "not-an-object")
	reply = readMessage(t, conn)
	if errText, _ := reply["error"].(string); !strings.Contains(errText, "invalid args") {
		t.Fatalf("expected invalid args error, got %v", reply)
	}
}

func TestStartDaemonReportsFailureInResult(t *testing.T) {
	h := startServer(t, uibridge.Deps{Lifecycle: &fakeLifecycle{err: daemonctl.ErrGaveUp}})
	conn := h.dial()

	send(t, conn, 1, "start_daemon", nil)
	reply := readMessage(t, conn)
	result := reply["result"].(map[string]any)
	if result["ok"] != false || result["state"] != string(daemonctl.StateGaveUp) || result["error"] == "" {
		t.Fatalf("unexpected start reply: %v", reply)
	}
}

func TestStopDaemon(t *testing.T) {
	lifecycle := &fakeLifecycle{}
	h := startServer(t, uibridge.Deps{Lifecycle: lifecycle})
	conn := h.dial()

	send(t, conn, 1, "stop_daemon", nil)
	reply := readMessage(t, conn)
	if reply["result"].(map[string]any)["ok"] != true || !lifecycle.stopped.Load() {
		t.Fatalf("unexpected stop reply: %v", reply)
	}
}

func TestExportDiagnostics(t *testing.T) {
	h := startServer(t, uibridge.Deps{Exporter: fakeExporter{}})
	conn := h.dial()

	send(t, conn, 1, "export_diagnostics", map[string]any{"destination": "/tmp/out.zip"})
	result := readMessage(t, conn)["result"].(map[string]any)
	if result["ok"] != true || result["bundle_id"] != "bundle-1" {
		t.Fatalf("unexpected export reply: %v", result)
	}

	send(t, conn, 2, "export_diagnostics", map[string]any{"destination": "/nonexistent/out.zip"})
	result = readMessage(t, conn)["result"].(map[string]any)
	if result["ok"] != false || !strings.Contains(result["error"].(string), "/nonexistent/out.zip") {
		t.Fatalf("expected failure naming destination, got %v", result)
	}

	send(t, conn, 3, "export_diagnostics", nil)
	reply := readMessage(t, conn)
	if reply["error"] == nil {
		t.Fatalf("expected missing destination error, got %v", reply)
	}
}

func TestCheckUpdatePassesETag(t *testing.T) {
	var gotETag atomic.Value
	update := func(_ context.Context, etag string) (updatecheck.Result, error) {
		gotETag.Store(etag)
		return updatecheck.Result{NotModified: true, ETag: etag}, nil
	}
	h := startServer(t, uibridge.Deps{Update: update})
	conn := h.dial()

	send(t, conn, 1, "check_update", map[string]any{"etag": `"abc"`})
	result := readMessage(t, conn)["result"].(map[string]any)
	if result["ok"] != true || result["not_modified"] != true || gotETag.Load() != `"abc"` {
		t.Fatalf("unexpected update reply: %v (etag %v)", result, gotETag.Load())
	}
}

func TestTrayChangesArePushed(t *testing.T) {
	h := startServer(t, uibridge.Deps{})
	conn := h.dial()

	h.tray.SetText(tray.ItemStatus, tray.StatusRunning)
	event := readMessage(t, conn)
	if event["event"] != "tray" || event["item"] != string(tray.ItemStatus) || event["text"] != tray.StatusRunning {
		t.Fatalf("unexpected tray event: %v", event)
	}
}

func TestMenuEventQuit(t *testing.T) {
	h := startServer(t, uibridge.Deps{})
	conn := h.dial()

	send(t, conn, 1, "menu_event", map[string]any{"id": "quit"})
	result := readMessage(t, conn)["result"].(map[string]any)
	if result["handled"] != true || !h.quit.Load() {
		t.Fatalf("expected quit to be dispatched, got %v", result)
	}

	send(t, conn, 2, "menu_event", map[string]any{"id": "sessions"})
	result = readMessage(t, conn)["result"].(map[string]any)
	if result["handled"] != false {
		t.Fatalf("expected non-clickable item to be ignored, got %v", result)
	}
}

func TestHealthz(t *testing.T) {
	h := startServer(t, uibridge.Deps{})
	resp, err := http.Get("http://" + h.server.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}

func TestRejectsForeignOrigin(t *testing.T) {
	h := startServer(t, uibridge.Deps{})
	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws://"+h.server.Addr()+"/ws", header)
	if err == nil {
		t.Fatal("expected handshake to fail for foreign origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp)
	}
}
