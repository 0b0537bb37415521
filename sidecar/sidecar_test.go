package sidecar

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/erayyap/scriptbench/log"
	"github.com/erayyap/scriptbench/types"
)

func testLogger() *log.Logger {
	return log.NewLogger(&types.RunMeta{RunID: "test-run", StartedAt: time.Now()})
}

func TestStart_StreamsOutputAndStopTerminates(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "sidecar.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho ready\nsleep 30\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	h, err := start(context.Background(), "sh", script, testLogger(), "task-1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Give the process a moment to print its readiness line before
	// tearing it down.
	time.Sleep(200 * time.Millisecond)

	h.Stop()

	if h.cmd.ProcessState == nil {
		t.Fatal("expected process to have exited after Stop")
	}
}

func TestStart_WorkingDirectoryIsScriptDir(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "sidecar.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\npwd\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	h, err := start(context.Background(), "sh", script, testLogger(), "task-2")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer h.Stop()

	if h.cmd.Dir != dir && !strings.HasSuffix(h.cmd.Dir, filepath.Base(dir)) {
		t.Errorf("expected cmd.Dir to be the script's own directory, got %q want %q", h.cmd.Dir, dir)
	}
}

func TestStart_MissingScript(t *testing.T) {
	_, err := start(context.Background(), "sh", "/no/such/script.sh", testLogger(), "task-3")
	if err == nil {
		t.Fatal("expected error for missing side-car script")
	}
}
