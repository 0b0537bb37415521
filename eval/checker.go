package eval

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/erayyap/scriptbench/log"
	execpkg "github.com/erayyap/scriptbench/runtime/exec"
	"github.com/erayyap/scriptbench/types"
)

// checkerTimeout bounds the external checker script's own wall clock,
// independent of the task's run timeout.
const checkerTimeout = 60 * time.Second

// Checker runs task.Result.CheckerScript (already materialised flat into
// the workspace root by the provisioner) through the workspace's venv
// interpreter and passes iff its trimmed stdout is literally "TRUE".
func Checker(ctx context.Context, t *types.Task, ws *types.Workspace, logger *log.Logger) (bool, map[string]any) {
	if t.Result.CheckerScript == "" {
		return false, map[string]any{"error": "no checker_script configured for task"}
	}

	// The provisioner materialises the checker script flat into the
	// workspace root (workspace.copyFlat), so only its basename exists
	// there regardless of where it lived under the task-assets root.
	argv := []string{ws.PythonPath(), filepath.Base(t.Result.CheckerScript)}
	res := execpkg.Run(ctx, argv, ws.Root, nil, checkerTimeout, logger, "checker")

	details := map[string]any{
		"checker_script": t.Result.CheckerScript,
		"exit_code":      res.ExitCode,
		"stdout":         res.Stdout,
		"stderr":         res.Stderr,
		"timed_out":      res.TimedOut,
	}
	if res.Error != "" {
		details["error"] = res.Error
		return false, details
	}
	if res.TimedOut {
		details["error"] = "checker script timed out"
		return false, details
	}

	pass := strings.TrimSpace(res.Stdout) == "TRUE"
	details["comparison_result"] = pass
	return pass, details
}
