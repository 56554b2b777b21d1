package util

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMirrorLogToFile(t *testing.T) {
	SetupLogger()
	defer log.SetOutput(os.Stderr)

	path := filepath.Join(t.TempDir(), "tracker.log")
	c, err := MirrorLogToFile(path)
	if err != nil {
		t.Fatalf("MirrorLogToFile: %v", err)
	}
	Info("cutdown armed at %d m", 25500)
	Error("gps %s", "lost")
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(b)
	if !strings.Contains(out, "[INFO]") || !strings.Contains(out, "cutdown armed at 25500 m") {
		t.Errorf("Expected info line in log, got %q", out)
	}
	if !strings.Contains(out, "[ERROR]") || !strings.Contains(out, "gps lost") {
		t.Errorf("Expected error line in log, got %q", out)
	}
}

func TestMirrorLogToFileBadPath(t *testing.T) {
	if _, err := MirrorLogToFile(filepath.Join(t.TempDir(), "missing", "x.log")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestVirtualSerialCleanupIdempotent(t *testing.T) {
	v := NewVirtualSerial()
	v.Cleanup()
	v.Cleanup()
	if err := v.CreatePair("/tmp/a", "/tmp/b"); err == nil {
		t.Error("Expected CreatePair after Cleanup to fail")
	}
}
