package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"feishu-tray/internal/config"
)

// TempHome points USERPROFILE and HOME at a fresh directory and returns it.
func TempHome(t testing.TB) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	return home
}

// DataDir returns <home>/.feishu-cli, creating it.
func DataDir(t testing.TB, home string) string {
	t.Helper()
	dir := filepath.Join(home, ".feishu-cli")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create data dir: %v", err)
	}
	return dir
}

// WriteLockFile publishes address as the daemon endpoint under home.
func WriteLockFile(t testing.TB, home, address string) {
	t.Helper()
	data, err := json.Marshal(map[string]any{"pid": os.Getpid(), "ipc": address})
	if err != nil {
		t.Fatalf("encode lock file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(DataDir(t, home), "daemon.json"), data, 0o644); err != nil {
		t.Fatalf("write lock file: %v", err)
	}
}

// NewConfig returns defaults with the state directory in a temp dir and the
// UI bridge on an ephemeral port.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.UI.Bind = "127.0.0.1:0"
	return &cfg
}
