package slogobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestCompactHandler_Line(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCompactHandler(&buf, slog.LevelDebug, false))

	logger.Info("send committed", "turns", 4, "model", "gemini")

	line := buf.String()
	if !strings.HasSuffix(line, "\n") || strings.Count(line, "\n") != 1 {
		t.Fatalf("expected a single line, got %q", line)
	}
	if !strings.Contains(line, " INFO send committed → ") {
		t.Errorf("unexpected prefix: %q", line)
	}
	if !strings.Contains(line, `{"model":"gemini","turns":4}`) {
		t.Errorf("expected sorted JSON attributes, got %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Errorf("expected no ANSI escapes with colors disabled, got %q", line)
	}
}

func TestCompactHandler_Colors(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewCompactHandler(&buf, slog.LevelDebug, true)).Warn("careful")

	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected ANSI escapes with colors enabled, got %q", buf.String())
	}
}

func TestCompactHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCompactHandler(&buf, slog.LevelWarn, false))

	logger.Info("hidden")
	logger.Error("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info record should be filtered")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("error record should be written")
	}
}

func TestCompactHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCompactHandler(&buf, slog.LevelDebug, false)).
		With("session", "s1").
		WithGroup("http").
		With("method", "POST")

	logger.Debug("request", "status", 200, slog.Group("body", "size", 12))

	_, attrs, ok := strings.Cut(buf.String(), " → ")
	if !ok {
		t.Fatalf("missing attributes: %q", buf.String())
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(attrs)), &fields); err != nil {
		t.Fatalf("attributes are not JSON: %v", err)
	}
	want := map[string]any{
		"session":        "s1",
		"http.method":    "POST",
		"http.status":    float64(200),
		"http.body.size": float64(12),
	}
	for key, value := range want {
		if fields[key] != value {
			t.Errorf("field %q = %v, want %v", key, fields[key], value)
		}
	}
}

func TestCompactHandler_ErrorAndDurationValues(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewCompactHandler(&buf, slog.LevelDebug, false)).
		Error("failed", "error", errors.New("boom"), "took", 1500*time.Millisecond)

	out := buf.String()
	if !strings.Contains(out, `"error":"boom"`) || !strings.Contains(out, `"took":"1.5s"`) {
		t.Errorf("unexpected rendering: %q", out)
	}
}

func TestCompactHandler_TraceLevel(t *testing.T) {
	var buf bytes.Buffer
	h := NewCompactHandler(&buf, LevelTrace, false)
	if !h.Enabled(context.Background(), LevelTrace) {
		t.Fatal("trace should be enabled at trace level")
	}
	slog.New(h).Log(context.Background(), LevelTrace, "deep")
	if !strings.Contains(buf.String(), "TRACE deep") {
		t.Errorf("expected TRACE tag, got %q", buf.String())
	}
}
