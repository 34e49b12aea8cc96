package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestRunIDHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newRunIDHandler(slog.NewJSONHandler(&buf, nil), "run-abc")).With("extra", "value")
	logger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, `"run_id":"run-abc"`) {
		t.Errorf("expected run_id in output, got: %s", output)
	}
	if !strings.Contains(output, `"extra":"value"`) {
		t.Errorf("expected extra attr in output, got: %s", output)
	}
}

func TestRunIDHandlerNilBase(t *testing.T) {
	if _, ok := newRunIDHandler(nil, "run").(NoopHandler); !ok {
		t.Error("expected NoopHandler when base is nil")
	}
}
