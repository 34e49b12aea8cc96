package statussync_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"feishu-tray/internal/endpoint"
	"feishu-tray/internal/ipc"
	"feishu-tray/internal/statussync"
	"feishu-tray/internal/testsupport"
	"feishu-tray/internal/tray"
)

type scriptedSource struct {
	mu      sync.Mutex
	results []error
	calls   int
}

func (s *scriptedSource) Status(context.Context) (ipc.DaemonState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if idx < len(s.results) && s.results[idx] != nil {
		return ipc.DaemonState{}, s.results[idx]
	}
	return ipc.DaemonState{ActiveSessions: 3}, nil
}

func (s *scriptedSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestTickWritesLabels(t *testing.T) {
	handle := tray.New(tray.Actions{}, nil)
	source := &scriptedSource{results: []error{ipc.ErrUnreachable}}
	syncer := statussync.New(source, handle, time.Second, nil)

	snap := syncer.Tick(context.Background())
	if snap.Running || snap.StatusText != "Daemon: not running" || snap.SessionsText != "Active sessions: 0" {
		t.Fatalf("unexpected not-running snapshot: %+v", snap)
	}
	if handle.Text(tray.ItemStatus) != "Daemon: not running" || handle.Text(tray.ItemSessions) != "Active sessions: 0" {
		t.Fatalf("unexpected tray labels: %+v", handle.Snapshot())
	}

	snap = syncer.Tick(context.Background())
	if !snap.Running || snap.ActiveSessions != 3 {
		t.Fatalf("unexpected running snapshot: %+v", snap)
	}
	if handle.Text(tray.ItemStatus) != "Daemon: running" || handle.Text(tray.ItemSessions) != "Active sessions: 3" {
		t.Fatalf("unexpected tray labels: %+v", handle.Snapshot())
	}
}

func TestTickDoesNotSuppressRepeats(t *testing.T) {
	handle := tray.New(tray.Actions{}, nil)
	var sets int
	handle.Watch(func(tray.ItemID, string) { sets++ })
	syncer := statussync.New(&scriptedSource{}, handle, time.Second, nil)
	syncer.Tick(context.Background())
	syncer.Tick(context.Background())
	if sets != 4 {
		t.Fatalf("expected every tick to write both labels, got %d sets", sets)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	source := &scriptedSource{}
	syncer := statussync.New(source, tray.New(tray.Actions{}, nil), 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		syncer.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for source.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if source.count() < 3 {
		t.Fatalf("expected several ticks, got %d", source.count())
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTickAgainstDaemon(t *testing.T) {
	responder := testsupport.NewResponder(t, func(json.RawMessage) []byte {
		return testsupport.StatusReply(55, "a", "b")
	})
	home := testsupport.TempHome(t)
	testsupport.WriteLockFile(t, home, responder.Path)

	client := ipc.NewClient(endpoint.NewLocator(""), ipc.SocketTransport{Timeout: time.Second}, nil)
	handle := tray.New(tray.Actions{}, nil)
	snap := statussync.New(client, handle, time.Second, nil).Tick(context.Background())
	if !snap.Running || snap.SessionsText != "Active sessions: 2" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	responder.Close()
	snap = statussync.New(client, handle, time.Second, nil).Tick(context.Background())
	if snap.Running || handle.Text(tray.ItemStatus) != tray.StatusNotRunning {
		t.Fatalf("expected not running after daemon exit: %+v", snap)
	}
}
