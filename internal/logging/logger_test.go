package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"audioflip/internal/config"
	"audioflip/internal/logging"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon ready")

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, "audioflip.log"))
	if !strings.Contains(content, "daemon ready") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "switcher").Info("message without caller", logging.String("device_id", "sink-1"))

	content := readLog(t, logPath)
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
	if !strings.Contains(content, "INFO switcher: message without caller device_id=sink-1") {
		t.Fatalf("unexpected console format: %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("message with caller")

	if content := readLog(t, logPath); !strings.Contains(content, "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerQuotesValuesWithSpaces(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "quote.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("switched", logging.String("device_name", "Headphones (USB)"), logging.Duration("elapsed", 2*time.Second))

	content := readLog(t, logPath)
	if !strings.Contains(content, `device_name="Headphones (USB)"`) {
		t.Fatalf("expected quoted value, got %q", content)
	}
	if !strings.Contains(content, "elapsed=2s") {
		t.Fatalf("expected duration value, got %q", content)
	}
}

func TestNewJSONLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Warn("verification mismatch", logging.String(logging.FieldDeviceID, "sink-2"))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", entry["level"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
	if entry[logging.FieldDeviceID] != "sink-2" {
		t.Fatalf("expected device id field, got %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "chatty", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")

	content := readLog(t, logPath)
	if strings.Contains(content, "hidden") || !strings.Contains(content, "shown") {
		t.Fatalf("expected info threshold, got %q", content)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithOrigin(logging.WithRequestID(context.Background(), "req-42"), "http")
	logging.WithContext(ctx, logger).Info("toggle requested")

	content := readLog(t, logPath)
	if !strings.Contains(content, `"correlation_id":"req-42"`) || !strings.Contains(content, `"origin":"http"`) {
		t.Fatalf("expected context fields, got %q", content)
	}
}

func TestWarnWithContextFillsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "history write failed", "history_write_failed",
		logging.Error(errors.New("disk full")),
		logging.String(logging.FieldImpact, "switch not recorded"),
	)

	content := readLog(t, logPath)
	for _, want := range []string{`"event_type":"history_write_failed"`, `"error_hint":`, `"impact":"switch not recorded"`} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %s in %q", want, content)
		}
	}
}

func TestCleanupOldLogsRemovesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "audioflip-old.log")
	freshPath := filepath.Join(dir, "audioflip-new.log")
	keepPath := filepath.Join(dir, "audioflip-current.log")
	for _, path := range []string{oldPath, freshPath, keepPath} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -10)
	for _, path := range []string{oldPath, keepPath} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 3, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "audioflip-*.log",
		Exclude: []string{keepPath},
	})
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{freshPath, keepPath} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
}

func TestAppendCrashLogRotatesLargeFile(t *testing.T) {
	dir := t.TempDir()
	crashPath := filepath.Join(dir, "crash.log")
	big := strings.Repeat("x", int(logging.CrashLogMaxBytes))
	if err := os.WriteFile(crashPath, []byte(big), 0o644); err != nil {
		t.Fatalf("seed crash log: %v", err)
	}

	if err := logging.AppendCrashLog(dir, "PANIC: boom\n"); err != nil {
		t.Fatalf("AppendCrashLog returned error: %v", err)
	}

	if got := readLog(t, crashPath); got != "PANIC: boom\n" {
		t.Fatalf("expected fresh crash log, got %d bytes", len(got))
	}
	if info, err := os.Stat(filepath.Join(dir, "crash.log.old")); err != nil || info.Size() != logging.CrashLogMaxBytes {
		t.Fatalf("expected rotated crash log, err=%v", err)
	}
}

func TestRecoverToCrashLogRepanics(t *testing.T) {
	dir := t.TempDir()
	defer func() {
		if r := recover(); r != "boom" {
			t.Fatalf("expected re-panic with original value, got %v", r)
		}
		if content := readLog(t, filepath.Join(dir, "crash.log")); !strings.Contains(content, "PANIC: boom") {
			t.Fatalf("expected panic recorded, got %q", content)
		}
	}()
	func() {
		defer logging.RecoverToCrashLog(dir)
		panic("boom")
	}()
}
