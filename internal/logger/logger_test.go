package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitWithDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	if err := Init(Config{Debug: true, Dir: dir}); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Errorf("log directory was not created: %s", dir)
	}

	Debug("test debug message", "key", "value")
	Info("test info message")
	Warn("test warning message")
	Error("test error message")

	if _, err := os.Stat(filepath.Join(dir, "growell.log")); err != nil {
		t.Errorf("log file missing: %v", err)
	}
}

func TestStandard(t *testing.T) {
	if err := Init(Config{}); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	std := Standard("test")
	if std == nil {
		t.Fatal("Standard() returned nil")
	}
	std.Printf("bridged %s", "message")
}
