package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"scrub/internal/logging"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("checking", logging.String("file", ".checksums"), logging.Int("records", 3))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	if payload["msg"] != "checking" || payload["file"] != ".checksums" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestNewConsoleLoggerWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("verify complete", logging.Error(errors.New("boom")))

	line := buf.String()
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("expected no ANSI color for non-terminal output: %q", line)
	}
	if !strings.Contains(line, "verify complete") {
		t.Fatalf("missing message: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "warn", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("visible")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info line should have been filtered: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("warn line missing: %s", buf.String())
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.Nop()
	logger.Error("goes nowhere")
}
