package main

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

func TestPIDFileRoundTrip(t *testing.T) {
	dir := t.TempDir()

	pidPath, err := writePIDFile(dir)
	if err != nil {
		t.Fatal(err)
	}

	pid, err := readPIDFile(pidPath)
	if err != nil {
		t.Fatal(err)
	}
	if pid != os.Getpid() {
		t.Errorf("expected own pid %d, got %d", os.Getpid(), pid)
	}
}

func TestReadPIDFileMissing(t *testing.T) {
	if _, err := readPIDFile(filepath.Join(t.TempDir(), "chatrelay.pid")); err == nil {
		t.Error("expected error for missing PID file")
	}
}

func TestReadPIDFileGarbage(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "chatrelay.pid")
	if err := os.WriteFile(pidPath, []byte("not a pid\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := readPIDFile(pidPath); err == nil {
		t.Error("expected error for garbage PID file")
	}
}

// The restart command delivers SIGHUP, so the daemon must subscribe to it;
// an unhandled SIGHUP would kill the process without cleanup.
func TestServeSubscribesToRestartSignal(t *testing.T) {
	found := false
	for _, sig := range serveSignals {
		if sig == syscall.SIGHUP {
			found = true
		}
	}
	if !found {
		t.Error("serve must handle SIGHUP for restart to work")
	}
}
