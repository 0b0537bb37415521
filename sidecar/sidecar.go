// Package sidecar supervises side-car processes: it starts an optional
// long-running auxiliary process tied to a task, streams its output, and
// guarantees termination on teardown.
package sidecar

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/erayyap/scriptbench/log"
)

// gracePeriod bounds the terminate-then-kill window
// (terminate, wait up to 5s, then kill), matching the executor's grace period.
const gracePeriod = 5 * time.Second

// Handle is a live side-car process with attached log-forwarding.
type Handle struct {
	cmd    *exec.Cmd
	done   chan struct{}
	taskID string
}

// Start launches scriptPath using the host interpreter — never the
// workspace's isolated one — with its working directory set to the
// script's own directory so its relative paths resolve. A background
// worker forwards every output line to logger, prefixed for
// identification.
func Start(ctx context.Context, scriptPath string, logger *log.Logger, taskID string) (*Handle, error) {
	return start(ctx, hostInterpreter(), scriptPath, logger, taskID)
}

func start(ctx context.Context, interpreter, scriptPath string, logger *log.Logger, taskID string) (*Handle, error) {
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, fmt.Errorf("side-car script not found: %s", scriptPath)
	}

	cmd := exec.CommandContext(ctx, interpreter, scriptPath)
	cmd.Dir = filepath.Dir(scriptPath)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("side-car stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting side-car: %w", err)
	}

	h := &Handle{cmd: cmd, done: make(chan struct{}), taskID: taskID}
	go h.forward(stdout, logger.ForTask(taskID))
	return h, nil
}

func (h *Handle) forward(r io.Reader, logger *log.Logger) {
	defer close(h.done)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.WithStream("sidecar", "stdout").Info(scanner.Text(), nil)
	}
}

// Stop sends terminate, waits up to gracePeriod, then kills. Idempotent:
// calling Stop on an already-stopped handle is a no-op.
func (h *Handle) Stop() {
	if h == nil || h.cmd == nil || h.cmd.Process == nil {
		return
	}

	_ = h.cmd.Process.Signal(syscall.SIGTERM)

	waitDone := make(chan error, 1)
	go func() { waitDone <- h.cmd.Wait() }()

	select {
	case <-waitDone:
	case <-time.After(gracePeriod):
		_ = h.cmd.Process.Kill()
		<-waitDone
	}

	select {
	case <-h.done:
	case <-time.After(time.Second):
		// Output forwarder should finish almost immediately once the
		// process's stdout pipe closes; don't block teardown on it.
	}
}

func hostInterpreter() string {
	return "python3"
}
