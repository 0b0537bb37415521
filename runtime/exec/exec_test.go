package exec

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/erayyap/scriptbench/log"
	"github.com/erayyap/scriptbench/types"
)

func testLogger() *log.Logger {
	return log.NewLogger(&types.RunMeta{RunID: "test-run", StartedAt: time.Now()})
}

func TestRun_ExitCodeAndOutput(t *testing.T) {
	res := Run(context.Background(), []string{"sh", "-c", "echo out-line; echo err-line 1>&2; exit 3"}, t.TempDir(), nil, 5*time.Second, testLogger(), "test")
	if res.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", res.ExitCode)
	}
	if !strings.Contains(res.Stdout, "out-line") {
		t.Errorf("expected stdout to contain out-line, got %q", res.Stdout)
	}
	if !strings.Contains(res.Stderr, "err-line") {
		t.Errorf("expected stderr to contain err-line, got %q", res.Stderr)
	}
	if res.TimedOut {
		t.Error("did not expect timed_out=true")
	}
}

func TestRun_Timeout(t *testing.T) {
	// Ignores SIGTERM so the only way this process ends is the forceful
	// kill after the grace period — this is what actually exercises
	// "terminate, then kill" instead of relying on the child exiting on
	// its own.
	start := time.Now()
	res := Run(context.Background(), []string{"sh", "-c", "trap '' TERM; while true; do sleep 1; done"}, t.TempDir(), nil, 200*time.Millisecond, testLogger(), "test")
	elapsed := time.Since(start)
	if !res.TimedOut {
		t.Error("expected timed_out=true")
	}
	if res.ExitCode == 0 {
		t.Error("expected non-zero exit code on timeout")
	}
	if elapsed > 10*time.Second {
		t.Errorf("expected termination shortly after the grace period, took %s", elapsed)
	}
}

func TestRun_MissingBinary(t *testing.T) {
	res := Run(context.Background(), []string{"/no/such/binary"}, t.TempDir(), nil, time.Second, testLogger(), "test")
	if res.Error == "" {
		t.Error("expected Error to be set for a missing binary")
	}
	if res.ExitCode == 0 {
		t.Error("expected non-zero exit code for spawn failure")
	}
}

func TestRun_LargeOutputDoesNotDeadlock(t *testing.T) {
	// Writes well over one pipe buffer's worth of output on both streams
	// before exiting.
	script := "head -c 2000000 /dev/zero | tr '\\0' a; head -c 2000000 /dev/zero | tr '\\0' b 1>&2"
	res := Run(context.Background(), []string{"sh", "-c", script}, t.TempDir(), nil, 30*time.Second, testLogger(), "test")
	if res.TimedOut {
		t.Fatal("should not time out")
	}
	if len(res.Stdout) < 1000000 {
		t.Errorf("expected large captured stdout, got %d bytes", len(res.Stdout))
	}
	if len(res.Stderr) < 1000000 {
		t.Errorf("expected large captured stderr, got %d bytes", len(res.Stderr))
	}
}
