package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"feishu-tray/internal/testsupport"
)

type cliTestEnv struct {
	home       string
	stateDir   string
	configPath string
	responder  *testsupport.Responder
}

type cliOptions struct {
	updateURL string
	handler   testsupport.Handler
	noDaemon  bool
}

func setupCLITestEnv(t *testing.T, opts cliOptions) *cliTestEnv {
	t.Helper()

	home := testsupport.TempHome(t)
	stateDir := filepath.Join(t.TempDir(), "state")
	env := &cliTestEnv{home: home, stateDir: stateDir}

	if !opts.noDaemon {
		handler := opts.handler
		if handler == nil {
			handler = defaultDaemonHandler
		}
		env.responder = testsupport.NewResponder(t, handler)
		testsupport.WriteLockFile(t, home, env.responder.Path)
	}

	updateURL := opts.updateURL
	if updateURL == "" {
		updateURL = "http://127.0.0.1:1/releases/latest"
	}
	env.configPath = filepath.Join(home, ".config", "feishu-tray", "config.toml")
	writeTestConfig(t, env.configPath, stateDir, updateURL)
	return env
}

func defaultDaemonHandler(request json.RawMessage) []byte {
	switch requestType(request) {
	case "status_request":
		return testsupport.StatusReply(4242, "s1")
	case "list_bots_request":
		return testsupport.Reply("list_bots_response", map[string]any{
			"interactive": []map[string]any{{"id": "b1", "name": "Ops", "appSecret": "s3cr3t-value", "appId": "cli_a1"}},
			"push":        []map[string]any{},
		})
	case "get_config_request":
		return testsupport.Reply("get_config_response", map[string]any{"language": "en", "autoApprove": false})
	case "save_bot_request":
		return testsupport.Reply("save_bot_response", map[string]any{"ok": false, "error": "missing appId"})
	default:
		return testsupport.OKReply("ok_response")
	}
}

func requestType(request json.RawMessage) string {
	var req struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(request, &req)
	return req.Type
}

func writeTestConfig(t *testing.T, path, stateDir, updateURL string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	content := fmt.Sprintf(`[daemon]
request_timeout_seconds = 2

[supervisor]
auto_start = false
poll_interval_ms = 10
max_attempts = 3

[update]
url = %q
timeout_seconds = 2
current_version = "1.2.0"

[ui]
bind = "127.0.0.1:0"

[paths]
state_dir = %q

[logging]
level = "error"
`, updateURL, stateDir)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
