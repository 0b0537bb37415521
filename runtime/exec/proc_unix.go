//go:build unix

package exec

import (
	"os/exec"
	"syscall"
)

// procAttr puts the child in its own process group so terminateGroup can
// signal the whole tree, not just argv[0] (e.g. a shell wrapping a
// script that spawns its own children).
func procAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// terminateGroup sends SIGTERM to the child's process group.
func terminateGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
}
