package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs(t *testing.T) {
	long := strings.Repeat("x", maxValueLen+50)
	got := sanitizeKVs([]any{"api_key", "sk-123", "Authorization", "Bearer abc", "lesson", "np-01", "code", long, "dangling"})
	want := []any{"api_key", "[REDACTED]", "Authorization", "[REDACTED]", "lesson", "np-01"}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("kv[%d] = %v, want %v", i, got[i], w)
		}
	}
	if s := got[7].(string); len(s) >= len(long) {
		t.Errorf("long value not truncated: %d bytes", len(s))
	}
	if got[8] != "dangling" {
		t.Errorf("odd trailing key dropped: %v", got)
	}
}

func TestLoggerRedactsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}
	l.With("provider", "anthropic").Warn("feedback fallback", "api_key", "secret-value")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["api_key"] != "[REDACTED]" {
		t.Errorf("api_key = %v", fields["api_key"])
	}
	if fields["provider"] != "anthropic" {
		t.Errorf("provider = %v", fields["provider"])
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"", "dev", "prod", "nop"} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.Debug("hello", "k", 1)
	}
}
