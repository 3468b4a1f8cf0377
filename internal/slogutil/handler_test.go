package slogutil

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelDebug)

	logger.Info("model loaded", "artifacts", 42, "dir", ".cim")

	out := buf.String()
	if !strings.Contains(out, "INFO model loaded") {
		t.Errorf("output = %q, want level and message", out)
	}
	if !strings.Contains(out, "artifacts=42") || !strings.Contains(out, "dir=.cim") {
		t.Errorf("output = %q, want attributes", out)
	}
}

func TestHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelDebug)

	logger.Warn("load failed", "error", "no such file", "path", ".cim/model.json")

	out := buf.String()
	if !strings.Contains(out, `error="no such file"`) {
		t.Errorf("output = %q, want quoted value", out)
	}
	if !strings.Contains(out, "path=.cim/model.json") {
		t.Errorf("output = %q, want bare value", out)
	}
}

func TestHandlerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn message should pass at warn level")
	}
}

func TestHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	base := NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(base.WithGroup("mcp").WithAttrs([]slog.Attr{slog.String("tool", "trace")}))

	logger.Info("called")

	out := buf.String()
	if !strings.Contains(out, "mcp.tool=trace") {
		t.Errorf("output = %q, want grouped attribute", out)
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := LevelFromString(tt.in); got != tt.want {
			t.Errorf("LevelFromString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	if got := LevelFromVerbosity(0, true); got <= slog.LevelError {
		t.Errorf("quiet should suppress all levels, got %v", got)
	}
	if got := LevelFromVerbosity(0, false); got != slog.LevelWarn {
		t.Errorf("verbosity 0 = %v, want warn", got)
	}
	if got := LevelFromVerbosity(2, false); got != slog.LevelDebug {
		t.Errorf("verbosity 2 = %v, want debug", got)
	}
}
