package logging_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"archivist/internal/config"
	"archivist/internal/logging"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesStateLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(t.TempDir(), "state")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("state log message")

	if got := readLog(t, cfg.DaemonLogPath()); !strings.Contains(got, "state log message") {
		t.Fatalf("expected message in daemon log, got %q", got)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	if got := readLog(t, logPath); strings.Contains(got, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", got)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	if got := readLog(t, logPath); !strings.Contains(got, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", got)
	}
}

func TestConsoleLoggerRendersJobSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-job.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "writer").Info("job archived",
		logging.String(logging.FieldJobID, "hostA"),
		logging.String(logging.FieldEventType, "job_archived"),
		logging.Int64("output_bytes", 2048),
		logging.String("archive_path", "/logs/archive/20240115/hostA.log.gz"),
		logging.String(logging.FieldCycleID, "hidden-at-info"),
	)

	got := readLog(t, logPath)
	for _, want := range []string{"INFO [writer] job hostA – job archived", "- Event: job_archived", "- Output: 2.0 kB", "- Archive Path: /logs/archive/20240115/hostA.log.gz"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output, got %q", want, got)
		}
	}
	if strings.Contains(got, "hidden-at-info") {
		t.Fatalf("expected cycle id to be hidden at info level, got %q", got)
	}
}

func TestErrorOutputsOnlyReceiveWarnings(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.log")
	errPath := filepath.Join(dir, "err.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		OutputPaths:      []string{outPath},
		ErrorOutputPaths: []string{errPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("routine progress")
	logging.WarnWithContext(logger, "flag removal failed", "flag_remove_failed", logging.Error(errors.New("denied")))

	out := readLog(t, outPath)
	if !strings.Contains(out, "routine progress") || !strings.Contains(out, "flag removal failed") {
		t.Fatalf("expected both lines in regular output, got %q", out)
	}
	errOut := readLog(t, errPath)
	if strings.Contains(errOut, "routine progress") {
		t.Fatalf("info line leaked to error output: %q", errOut)
	}
	for _, want := range []string{"flag removal failed", "Hint: check logs for details", "Impact: operation completed with warnings"} {
		if !strings.Contains(errOut, want) {
			t.Fatalf("expected %q in error output, got %q", want, errOut)
		}
	}
}

func TestNewJSONLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.String(logging.FieldJobID, "hostB"))

	line := strings.TrimSpace(readLog(t, logPath))
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", line, err)
	}
	if payload["level"] != "info" || payload[logging.FieldJobID] != "hostB" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "invalid", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("debug suppressed")
	logger.Info("info kept")
	got := readLog(t, logPath)
	if strings.Contains(got, "debug suppressed") || !strings.Contains(got, "info kept") {
		t.Fatalf("expected info level filtering, got %q", got)
	}
}
