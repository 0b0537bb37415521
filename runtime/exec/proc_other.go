//go:build !unix

package exec

import (
	"os/exec"
	"syscall"
)

// procAttr is a no-op on non-POSIX platforms; there is no process-group
// primitive to opt into.
func procAttr() *syscall.SysProcAttr {
	return nil
}

// terminateGroup falls back to killing the child process directly, with
// no process-group reach. There is no separate terminate step here, so
// the kill happens at once rather than after the grace period.
func terminateGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
