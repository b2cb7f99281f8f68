package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger = logger.With(String(FieldComponent, "pipeline"))
	logger.Info("item received", String(FieldItemID, "ep-1"), Int("attempt", 2))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, " INFO pipeline: item received") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "item_id=ep-1") {
		t.Fatalf("expected item_id attribute, got %q", line)
	}
	if !strings.Contains(line, "attempt=2") {
		t.Fatalf("expected attempt attribute, got %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("published", String("title", "Episode One"))

	if !strings.Contains(buf.String(), `title="Episode One"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("hidden")
	logger.Warn("visible")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Fatalf("info record should be suppressed, got %q", output)
	}
	if !strings.Contains(output, "visible") {
		t.Fatalf("warn record should be emitted, got %q", output)
	}
}

func TestJSONHandlerRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, levelVar))

	logger.Info("run started", String("mode", "pull"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal json record: %v", err)
	}
	if record["msg"] != "run started" {
		t.Fatalf("expected msg key, got %v", record)
	}
	if record["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
