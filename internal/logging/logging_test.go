package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q)=%v, want %v", in, got, want)
		}
	}
}

func TestNewWithWriterJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewWithWriter(buf, "info", "json")
	l.Debug("hidden")
	l.Info("shown", "channel", "vehicle_data")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line emitted at info level: %q", out)
	}
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"channel":"vehicle_data"`) {
		t.Fatalf("expected JSON log line, got %q", out)
	}
}

func TestContextRoundTrip(t *testing.T) {
	l := Discard()
	ctx := NewContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatalf("logger not recovered from context")
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Fatalf("expected default logger for bare context")
	}
}
