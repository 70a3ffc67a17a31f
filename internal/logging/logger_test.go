package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_CreatesDirAndLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, err := NewLogger(dir, "info")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	// Directory should exist
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("log dir missing: %v", err)
	}

	log.Info("test_message_from_logging_test")
	_ = log.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "cloudpulse.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"test_message_from_logging_test"`) || !strings.Contains(string(data), `"service":"cloudpulse"`) {
		t.Fatalf("log line missing: %s", data)
	}
}

func TestNewLogger_LevelFiltersDebug(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger(dir, "warn")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if log.Core().Enabled(-1) { // debug
		t.Fatalf("debug should be disabled at warn level")
	}
	if log.Core().Enabled(0) { // info
		t.Fatalf("info should be disabled at warn level")
	}

	fallback, _ := NewLogger(dir, "bogus")
	if !fallback.Core().Enabled(0) {
		t.Fatalf("unknown level should fall back to info")
	}
}
