package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func newBufferedLogger() (*SlogLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h)), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("invalid log line %q: %v", buf.String(), err)
	}
	return m
}

func TestSlogLogger_Levels(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		log   func(l *SlogLogger)
		level string
	}{
		{"info", func(l *SlogLogger) { l.Info(ctx, "m") }, "INFO"},
		{"warn", func(l *SlogLogger) { l.Warn(ctx, "m") }, "WARN"},
		{"error", func(l *SlogLogger) { l.Error(ctx, "m") }, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newBufferedLogger()
			tt.log(l)
			m := decodeLine(t, buf)
			if m["level"] != tt.level {
				t.Fatalf("expected level %s, got %v", tt.level, m["level"])
			}
			if m["msg"] != "m" {
				t.Fatalf("expected msg %q, got %v", "m", m["msg"])
			}
		})
	}
}

func TestSlogLogger_WithAddsAttributes(t *testing.T) {
	l, buf := newBufferedLogger()

	child := l.With("module", "sweeper")
	child.Info(context.Background(), "tick")

	m := decodeLine(t, buf)
	if m["module"] != "sweeper" {
		t.Fatalf("expected module attribute, got %v", m)
	}
}
