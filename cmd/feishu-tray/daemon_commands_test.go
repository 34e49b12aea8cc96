package main

import (
	"encoding/json"
	"strings"
	"testing"

	"feishu-tray/internal/ipc"
)

func TestStatusRunning(t *testing.T) {
	env := setupCLITestEnv(t, cliOptions{})

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running (pid 4242)")
	requireContains(t, out, "s1")
	requireContains(t, out, "/work/s1")
}

func TestStatusNotRunning(t *testing.T) {
	env := setupCLITestEnv(t, cliOptions{noDaemon: true})

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
}

func TestStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t, cliOptions{})

	out, _, err := runCLI(t, []string{"status", "--output", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var status ipc.GUIStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status json: %v\n%s", err, out)
	}
	if !status.Running || status.DaemonPID == nil || *status.DaemonPID != 4242 || status.ActiveSessions != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestStopWhenNotRunning(t *testing.T) {
	env := setupCLITestEnv(t, cliOptions{noDaemon: true})

	out, _, err := runCLI(t, []string{"stop"}, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestStopUnansweredWhileDaemonResponds(t *testing.T) {
	handler := func(request json.RawMessage) []byte {
		if requestType(request) == ipc.VerbStop {
			return nil
		}
		return defaultDaemonHandler(request)
	}
	env := setupCLITestEnv(t, cliOptions{handler: handler})

	_, _, err := runCLI(t, []string{"stop"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), ipc.ErrTextNoResponse) {
		t.Fatalf("expected no-response error while status still answers, got %v", err)
	}
}

func TestStopSendsRequest(t *testing.T) {
	env := setupCLITestEnv(t, cliOptions{})

	out, _, err := runCLI(t, []string{"stop"}, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Stop request sent")
	types := env.responder.RequestTypes()
	if len(types) != 1 || types[0] != ipc.VerbStop {
		t.Fatalf("expected one stop request, got %v", types)
	}
}

func TestStartWhenAlreadyRunning(t *testing.T) {
	env := setupCLITestEnv(t, cliOptions{})

	out, _, err := runCLI(t, []string{"start"}, env.configPath)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Daemon already running")
}

func TestInvalidOutputFormat(t *testing.T) {
	env := setupCLITestEnv(t, cliOptions{})

	if _, _, err := runCLI(t, []string{"status", "-o", "xml"}, env.configPath); err == nil {
		t.Fatal("expected error for unsupported output format")
	}
}
