package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn", true)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("quiet")
	logger.Warn("loud", "component", "camera")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(out, "loud") || !strings.Contains(out, "component=camera") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "chatty", true); err == nil {
		t.Error("expected error")
	}
}
