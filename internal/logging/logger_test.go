package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelDebug)
	return slog.New(newPrettyHandler(&buf, levelVar)), &buf
}

func TestPrettyHandlerLineFormat(t *testing.T) {
	logger, buf := newBufferLogger()

	logger.Info("raid started",
		String(FieldSessionID, "abc123"),
		Int(FieldAmount, 500))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, " INFO ") {
		t.Fatalf("missing level label: %q", line)
	}
	if !strings.Contains(line, "raid started") {
		t.Fatalf("missing message: %q", line)
	}
	if !strings.Contains(line, "session_id=abc123") {
		t.Fatalf("missing attr: %q", line)
	}
	if !strings.Contains(line, "amount=500") {
		t.Fatalf("missing int attr: %q", line)
	}
	// A parseable timestamp leads the line.
	fields := strings.Fields(line)
	if _, err := time.Parse(time.RFC3339, fields[0]); err != nil {
		t.Fatalf("timestamp %q: %v", fields[0], err)
	}
}

func TestPrettyHandlerComponentPrefix(t *testing.T) {
	logger, buf := newBufferLogger()
	NewComponentLogger(logger, "engine").Warn("announcement failed")

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, "WARN engine: announcement failed") {
		t.Fatalf("component not prefixed: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component leaked as attr: %q", line)
	}
}

func TestPrettyHandlerQuotesValues(t *testing.T) {
	logger, buf := newBufferLogger()
	logger.Info("announce", String("message", "A Merchant Sloop has been spotted!"))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, `message="A Merchant Sloop has been spotted!"`) {
		t.Fatalf("value not quoted: %q", line)
	}
}

func TestPrettyHandlerGroupsAndErrors(t *testing.T) {
	logger, buf := newBufferLogger()
	logger.WithGroup("raid").Error("settlement failed",
		Error(errors.New("disk full")),
		Int("attempt", 2))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, `raid.error="disk full"`) {
		t.Fatalf("grouped error attr missing: %q", line)
	}
	if !strings.Contains(line, "raid.attempt=2") {
		t.Fatalf("grouped attr missing: %q", line)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		" error ": slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("unknown format accepted")
	}
	if _, err := New(Options{Format: "json"}); err != nil {
		t.Fatalf("json format: %v", err)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger enabled")
	}
}
