package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWritersFansOut(t *testing.T) {
	var text, js bytes.Buffer
	logger := NewWithWriters(&text, &js, slog.LevelInfo)

	logger.Info("message stored", "customerId", "c-1")
	logger.Debug("hidden")

	if !strings.Contains(text.String(), "message stored") {
		t.Fatalf("text output missing record: %q", text.String())
	}
	if strings.Contains(text.String(), "hidden") {
		t.Fatal("debug record should be filtered at info level")
	}

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(js.Bytes()), &rec); err != nil {
		t.Fatalf("json output not parseable: %v (%q)", err, js.String())
	}
	if rec["customerId"] != "c-1" {
		t.Fatalf("expected customerId attribute, got %#v", rec)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
