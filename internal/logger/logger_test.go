package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		if parseLevel(lvl) == nil {
			t.Errorf("parseLevel(%q) returned nil", lvl)
		}
	}
	if parseLevel("verbose") != nil {
		t.Error("unknown level should return nil")
	}
}

func TestNewWithOptions_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bestmirror.log")

	log := NewWithOptions(Options{Level: "info", Pretty: false, File: path})
	log.Info("refresh completed", Int("ranked", 3))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty")
	}
}

func TestOrDefault(t *testing.T) {
	if orDefault(0, 7) != 7 {
		t.Error("zero should fall back to default")
	}
	if orDefault(3, 7) != 3 {
		t.Error("positive value should be kept")
	}
}
