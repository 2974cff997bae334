package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn", FormatJSON, "ballotcheck")

	logger.Info().Msg("hidden")
	logger.Warn().Str("ref", "YouTube:abc").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line at warn level, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if entry["service"] != "ballotcheck" || entry["ref"] != "YouTube:abc" || entry["message"] != "shown" {
		t.Errorf("unexpected entry %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected timestamp")
	}
}

func TestNewWithWriter_BadLevelFallsBack(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "loud", FormatJSON, "x")
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("expected info level, got %s", logger.GetLevel())
	}
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", FormatConsole, "x")
	logger.Info().Msg("hello")
	if strings.HasPrefix(buf.String(), "{") {
		t.Errorf("console format should not be json: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("missing message: %q", buf.String())
	}
}
