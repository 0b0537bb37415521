// Package workspace provisions the per-task sandbox: it creates a
// uniquely named ephemeral directory per task, materialises task
// inputs into it, and stands up a fresh isolated interpreter
// environment rooted inside it.
package workspace

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/erayyap/scriptbench/log"
	execpkg "github.com/erayyap/scriptbench/runtime/exec"
	"github.com/erayyap/scriptbench/types"
)

const venvDirName = "venv"

// createVenvTimeout bounds the `python -m venv` call; venv creation
// itself touches disk and the interpreter's stdlib only, never the
// network, so this is generous but not unbounded.
const createVenvTimeout = 60 * time.Second

var sanitizePattern = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Provisioner creates and tears down per-task workspaces.
type Provisioner struct {
	TaskAssetsRoot string
	Logger         *log.Logger
}

func New(taskAssetsRoot string, logger *log.Logger) *Provisioner {
	return &Provisioner{TaskAssetsRoot: taskAssetsRoot, Logger: logger}
}

// Provision creates a uniquely named directory, materialises the task's
// inputs, copies the checker script if any, and creates the isolated
// interpreter environment.
func (p *Provisioner) Provision(ctx context.Context, t *types.Task) (*types.Workspace, error) {
	prefix := fmt.Sprintf("scriptbench_%s_", sanitizePattern.ReplaceAllString(t.ID, "_"))
	root, err := os.MkdirTemp("", prefix)
	if err != nil {
		return nil, fmt.Errorf("creating workspace dir: %w", err)
	}

	ws := &types.Workspace{Root: root, TaskID: t.ID, VenvPath: filepath.Join(root, venvDirName)}
	logger := p.Logger.ForTask(t.ID)

	if err := p.materialiseInputs(t, ws, logger); err != nil {
		_ = os.RemoveAll(root)
		return nil, err
	}

	if t.Result.Kind == types.ResultChecker {
		if err := p.copyFlat(p.TaskAssetsRoot, t.Result.CheckerScript, root, logger, "checker script"); err != nil {
			_ = os.RemoveAll(root)
			return nil, err
		}
	}

	if err := p.createVenv(ctx, ws, logger); err != nil {
		_ = os.RemoveAll(root)
		return nil, err
	}

	return ws, nil
}

func (p *Provisioner) materialiseInputs(t *types.Task, ws *types.Workspace, logger *log.Logger) error {
	if t.Inputs.Folder != "" {
		src := filepath.Join(p.TaskAssetsRoot, strings.Trim(t.Inputs.Folder, "/"))
		dst := filepath.Join(ws.Root, strings.Trim(t.Inputs.Folder, "/"))
		if _, err := os.Stat(src); err != nil {
			logger.Warn("task folder does not exist", map[string]any{"path": src})
			return nil
		}
		return copyTree(src, dst)
	}

	if t.Inputs.File != "" {
		if err := p.copyFlat(p.TaskAssetsRoot, t.Inputs.File, ws.Root, logger, "task file"); err != nil {
			return err
		}
		if t.Inputs.GroundTruthFile != "" {
			if err := p.copyFlat(p.TaskAssetsRoot, t.Inputs.GroundTruthFile, ws.Root, logger, "ground truth file"); err != nil {
				return err
			}
		}
	}
	return nil
}

// copyFlat copies an assets-root-relative path into dstDir, stripping
// any parent directory structure so the file lands flat in the
// workspace.
func (p *Provisioner) copyFlat(assetsRoot, rel, dstDir string, logger *log.Logger, what string) error {
	src := filepath.Join(assetsRoot, strings.Trim(rel, "/"))
	if _, err := os.Stat(src); err != nil {
		logger.Warn(what+" does not exist", map[string]any{"path": src})
		return nil
	}
	dst := filepath.Join(dstDir, filepath.Base(rel))
	return copyFile(src, dst)
}

func (p *Provisioner) createVenv(ctx context.Context, ws *types.Workspace, logger *log.Logger) error {
	res := execpkg.Run(ctx, []string{"python3", "-m", "venv", ws.VenvPath}, ws.Root, os.Environ(), createVenvTimeout, logger, "venv-create")
	if res.ExitCode != 0 {
		return fmt.Errorf("venv creation failed (exit %d): %s", res.ExitCode, firstNonEmpty(res.Error, res.Stderr, res.Stdout))
	}
	return nil
}

// Teardown deletes the workspace directory. Best-effort: a failure to
// delete is logged, never propagated. Side-cars must already be stopped
// by the caller before Teardown runs.
func (p *Provisioner) Teardown(ws *types.Workspace, logger *log.Logger) {
	if ws == nil {
		return
	}
	if err := os.RemoveAll(ws.Root); err != nil {
		logger.ForTask(ws.TaskID).Warn("workspace teardown failed", map[string]any{"error": err.Error(), "root": ws.Root})
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}
