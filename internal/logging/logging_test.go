package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("ParseLevel(verbose) should fail")
	}
}

func TestNewTraceLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelTrace)
	logger.Log(context.Background(), LevelTrace, "key press", "keycode", 40)

	out := buf.String()
	if !strings.Contains(out, "level=TRACE") {
		t.Errorf("output %q does not name the trace level", out)
	}
	if !strings.Contains(out, "keycode=40") {
		t.Errorf("output %q is missing attributes", out)
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo)
	logger.Log(context.Background(), LevelTrace, "hidden")
	logger.Debug("hidden")
	logger.Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("output %q contains records below info", out)
	}
	if !strings.Contains(out, "level=INFO msg=shown") {
		t.Errorf("output %q is missing the info record", out)
	}
}
