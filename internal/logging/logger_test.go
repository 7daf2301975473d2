package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hlsladder/internal/config"
	"hlsladder/internal/logging"
	"hlsladder/internal/services"
)

func TestNewFromConfigWritesJSONLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "info"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("transcode complete", logging.Rendition("low"))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("log file is not JSON: %v (%q)", err, data)
	}
	if record["msg"] != "transcode complete" || record["rendition"] != "low" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", record["level"])
	}
}

func TestConsoleLoggerRendersSubjectAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithLesson(context.Background(), "c1/l1")
	ctx = services.WithRendition(ctx, "medium")
	ctx = services.WithPhase(ctx, "transcode")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "runner")).Info(
		"encode finished",
		logging.String("status", "completed"),
	)

	out := buf.String()
	for _, want := range []string{"INFO [runner] c1/l1 · medium (transcode) - encode finished", "    - status: completed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", out)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("probe", logging.String("command", "ffprobe"))
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Fatalf("expected caller in debug output, got %q", buf.String())
	}
}

func TestConsoleLoggerCapsInfoFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	attrs := make([]logging.Attr, 0, 10)
	for _, key := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		attrs = append(attrs, logging.String(key, key))
	}
	logger.Info("many", logging.Args(attrs...)...)
	if !strings.Contains(buf.String(), "+ 2 more fields") {
		t.Fatalf("expected hidden field summary, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "upload failed", "upload_failed",
		logging.Key("c1/l1/low/000.ts"),
		logging.Error(errors.New("connection reset")),
	)

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldEventType] != "upload_failed" {
		t.Fatalf("missing event type: %v", record)
	}
	if record[logging.FieldErrorHint] == nil || record[logging.FieldImpact] == nil {
		t.Fatalf("expected injected hint and impact: %v", record)
	}
	if record["error"] != "connection reset" {
		t.Fatalf("expected error string, got %v", record["error"])
	}
	if record[logging.FieldKey] != "c1/l1/low/000.ts" {
		t.Fatalf("unexpected key: %v", record[logging.FieldKey])
	}
}

func TestTeeHandlerSkipsNil(t *testing.T) {
	if _, ok := logging.TeeHandler(nil, nil).(logging.NoopHandler); !ok {
		t.Fatal("expected noop handler when no handlers remain")
	}
}
