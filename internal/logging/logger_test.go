package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"longbox/internal/config"
	"longbox/internal/logging"
	"longbox/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg, false)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from test") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func readLog(t *testing.T, opts logging.Options, write func(*slog.Logger)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	opts.OutputPaths = []string{path}
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	write(logger)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsolePrefixesComponentAndSession(t *testing.T) {
	line := readLog(t, logging.Options{Format: "console", Level: "info"}, func(logger *slog.Logger) {
		logging.NewComponentLogger(logger, "approval").Info("series approved",
			logging.String(logging.FieldSessionID, "abc"),
			logging.Float64("confidence", 0.94123),
			logging.Strings("files", []string{"a.cbz", "b.cbz"}),
		)
	})
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
	for _, want := range []string{"INFO  approval[abc]: series approved", "confidence=0.941", "files=[a.cbz,b.cbz]"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "session_id=") {
		t.Fatalf("session id should move into the prefix, got %q", line)
	}
}

func TestConsoleFlattensGroups(t *testing.T) {
	line := readLog(t, logging.Options{Format: "console"}, func(logger *slog.Logger) {
		logger.WithGroup("apply").Info("done", logging.Int("failed", 0))
	})
	if !strings.Contains(line, "apply.failed=0") {
		t.Fatalf("expected dotted group key, got %q", line)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	line := readLog(t, logging.Options{Format: "console", Level: "debug"}, func(logger *slog.Logger) {
		logger.Info("message with caller")
	})
	if !strings.Contains(line, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", line)
	}
}

func TestJSONFormatUsesShortKeys(t *testing.T) {
	line := readLog(t, logging.Options{Format: "json", Level: "warn"}, func(logger *slog.Logger) {
		logger.Info("dropped")
		logger.Warn("kept", logging.String(logging.FieldFileID, "f-1"))
	})
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &record); err != nil {
		t.Fatalf("expected a single json record, got %q: %v", line, err)
	}
	if record["level"] != "warn" || record["msg"] != "kept" || record["file_id"] != "f-1" {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestNewRejectsUnknownFormatAndLevel(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if _, err := logging.New(logging.Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unsupported level")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSessionID(ctx, "sess-42")
	ctx = services.WithRequestID(ctx, "req-xyz")

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	logging.WithContext(ctx, base).Info("contextual log")

	out := buf.String()
	for _, want := range []string{"session_id=sess-42", "correlation_id=req-xyz"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logging.WarnWithContext(logger, "search failed", "series_search_failed", logging.String(logging.FieldImpact, "group stays pending"))

	out := buf.String()
	for _, want := range []string{"event_type=series_search_failed", "error_hint=", `impact="group stays pending"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if strings.Count(out, "impact=") != 1 {
		t.Fatalf("explicit impact must not be duplicated: %q", out)
	}
}

func TestNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should be disabled")
	}
}
