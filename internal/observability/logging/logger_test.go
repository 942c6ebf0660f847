package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewJSONLoggerWritesServiceField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, "engai-api", "info")

	logger.Info("analysis_reported", "session_id", "abc")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v (%q)", err, buf.String())
	}
	if record["service"] != "engai-api" {
		t.Fatalf("expected service field, got %v", record["service"])
	}
	if record["msg"] != "analysis_reported" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
	if record["session_id"] != "abc" {
		t.Fatalf("unexpected session_id: %v", record["session_id"])
	}
}

func TestNewJSONLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, "engai-api", "warn")

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record should be filtered at warn level: %q", buf.String())
	}
	logger.Warn("kept")
	if buf.Len() == 0 {
		t.Fatalf("warn record should be written")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":    slog.LevelDebug,
		" WARNING": slog.LevelWarn,
		"error":    slog.LevelError,
		"":         slog.LevelInfo,
		"verbose":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
