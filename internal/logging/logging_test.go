package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"unknown": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New("info", &buf), "worker")

	log.Debug().Msg("hidden")
	log.Info().Str("job_id", "j1").Msg("job started")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "worker" {
		t.Errorf("component = %v, want worker", entry["component"])
	}
	if entry["job_id"] != "j1" {
		t.Errorf("job_id = %v, want j1", entry["job_id"])
	}
	if entry["message"] != "job started" {
		t.Errorf("message = %v", entry["message"])
	}
}
