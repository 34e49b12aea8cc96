package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"feishu-tray/internal/config"
	"feishu-tray/internal/logging"
)

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "supervisor").Info("daemon ready", logging.Int("attempts", 4))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no source information in info logs, got %q", line)
	}
	if !strings.Contains(line, " INFO supervisor: daemon ready attempts=4") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("expected component lifted into prefix, got %q", line)
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with source")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected source information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerQuotesValuesWithSpaces(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "quotes.log")
	logger, err := logging.New(logging.Options{OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.WithGroup("daemon").Info("probe", logging.String("error", "no response from daemon"))

	content, _ := os.ReadFile(logPath)
	if !strings.Contains(string(content), `daemon.error="no response from daemon"`) {
		t.Fatalf("expected grouped quoted value, got %q", content)
	}
}

func TestJSONLoggerUsesStableKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}, RunID: "run-123"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "auto start failed", "daemon_autostart_failed")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if record["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
	if record[logging.FieldRunID] != "run-123" {
		t.Fatalf("expected run id, got %v", record[logging.FieldRunID])
	}
	if record[logging.FieldEventType] != "daemon_autostart_failed" {
		t.Fatalf("expected event type, got %v", record[logging.FieldEventType])
	}
	if record[logging.FieldImpact] == nil || record[logging.FieldErrorHint] == nil {
		t.Fatalf("expected default impact and hint, got %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewForRunWritesDailyFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()

	logger, path, err := logging.NewForRun(&cfg, "abc")
	if err != nil {
		t.Fatalf("NewForRun returned error: %v", err)
	}
	if filepath.Dir(path) != cfg.LogDir() {
		t.Fatalf("expected log under %q, got %q", cfg.LogDir(), path)
	}
	if filepath.Base(path) != logging.LogFileName(time.Now()) {
		t.Fatalf("unexpected log file name %q", path)
	}
	logger.Info("hello")
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "run_id=abc") {
		t.Fatalf("expected run id in file output, got %q", content)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 0) {
		t.Fatal("expected nop logger to be disabled")
	}
	logging.WarnWithContext(nil, "ignored", "ignored")
}
