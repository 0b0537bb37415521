// Package agent implements the multi-turn agent backend: a bounded
// protocol in which a model alternately proposes a shell command and
// observes its output inside a per-task sandbox until it emits a
// completion sentinel.
package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/erayyap/scriptbench/log"
	execpkg "github.com/erayyap/scriptbench/runtime/exec"
	"github.com/erayyap/scriptbench/types"
)

// CommandRecord is one (command, exit_code) tuple the sandbox observed,
// recorded regardless of whether the command succeeded.
type CommandRecord struct {
	Command  string
	ExitCode int
}

// Sandbox is the agent's own isolated workspace: a nested directory plus
// venv, distinct from the task's outer workspace, so the agent's shell
// commands never collide with side-car or package-install state that
// belongs to the outer task lifecycle.
type Sandbox struct {
	Root           string
	VenvPath       string
	CommandTimeout time.Duration
	Logger         *log.Logger
	TaskID         string

	mu       sync.Mutex
	commands []CommandRecord
}

// NewSandbox creates the sandbox directory and an isolated interpreter
// environment inside it, mirroring workspace.Provisioner's own venv step
// but scoped to the agent loop alone.
func NewSandbox(ctx context.Context, taskID string, commandTimeout time.Duration, logger *log.Logger) (*Sandbox, error) {
	root, err := os.MkdirTemp("", "scriptbench_agent_"+sanitize(taskID)+"_")
	if err != nil {
		return nil, fmt.Errorf("creating agent sandbox dir: %w", err)
	}
	venvPath := filepath.Join(root, "venv")

	res := execpkg.Run(ctx, []string{"python3", "-m", "venv", venvPath}, root, os.Environ(), 60*time.Second, logger, "agent-venv-create")
	if res.ExitCode != 0 {
		_ = os.RemoveAll(root)
		return nil, fmt.Errorf("agent sandbox venv creation failed: %s", firstNonEmpty(res.Error, res.Stderr))
	}

	return &Sandbox{
		Root:           root,
		VenvPath:       venvPath,
		CommandTimeout: commandTimeout,
		Logger:         logger,
		TaskID:         taskID,
	}, nil
}

// Teardown removes the sandbox directory. Best-effort, mirroring
// workspace.Provisioner.Teardown.
func (s *Sandbox) Teardown() {
	if s == nil {
		return
	}
	if err := os.RemoveAll(s.Root); err != nil {
		s.Logger.ForTask(s.TaskID).Warn("agent sandbox teardown failed", map[string]any{"error": err.Error()})
	}
}

// env returns the filtered shell environment the agent's commands run
// under: PATH prepended with the sandbox venv's bin directory, and
// VIRTUAL_ENV pointed at the venv root
func (s *Sandbox) env() []string {
	binDir := filepath.Join(s.VenvPath, "bin")
	out := make([]string, 0, len(os.Environ())+2)
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "PATH=") {
			out = append(out, "PATH="+binDir+string(os.PathListSeparator)+strings.TrimPrefix(kv, "PATH="))
			continue
		}
		out = append(out, kv)
	}
	out = append(out, "VIRTUAL_ENV="+s.VenvPath)
	return out
}

// Exec runs command as a shell line inside the sandbox and records a
// CommandRecord regardless of outcome.
func (s *Sandbox) Exec(ctx context.Context, command string) *types.ExecutionResult {
	res := execpkg.Run(ctx, []string{"bash", "-c", command}, s.Root, s.env(), s.CommandTimeout, s.Logger.ForTask(s.TaskID), "agent-command")

	s.mu.Lock()
	s.commands = append(s.commands, CommandRecord{Command: command, ExitCode: res.ExitCode})
	s.mu.Unlock()

	return res
}

// Commands returns a copy of every command the sandbox has executed so
// far, in order.
func (s *Sandbox) Commands() []CommandRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CommandRecord, len(s.commands))
	copy(out, s.commands)
	return out
}

var aptInstallArg = regexp.MustCompile(`apt-get\s+(?:.*?\s+)?install\s+(?:-y\s+)?(.+)`)

// ObservedOSPackages returns the set of OS packages the agent is
// observed to have installed successfully: every apt-get install
// argument from a recorded command that exited 0.
func (s *Sandbox) ObservedOSPackages() []string {
	var packages []string
	seen := map[string]struct{}{}
	for _, rec := range s.Commands() {
		if rec.ExitCode != 0 || !strings.Contains(rec.Command, "apt-get") || !strings.Contains(rec.Command, "install") {
			continue
		}
		m := aptInstallArg.FindStringSubmatch(rec.Command)
		if m == nil {
			continue
		}
		for _, pkg := range strings.Fields(m[1]) {
			if pkg == "" || strings.HasPrefix(pkg, "-") {
				continue
			}
			if _, ok := seen[pkg]; ok {
				continue
			}
			seen[pkg] = struct{}{}
			packages = append(packages, pkg)
		}
	}
	return packages
}

// bootstrapPackages are excluded from the installed-packages delta: pip
// itself and its own bootstrap dependencies are always present in a
// fresh venv and never count as something the agent installed.
var bootstrapPackages = map[string]struct{}{"pip": {}, "setuptools": {}, "wheel": {}}

// SnapshotInterpreterPackages runs pip list inside the sandbox venv and
// returns the installed distribution names, for before/after diffing.
func (s *Sandbox) SnapshotInterpreterPackages(ctx context.Context) map[string]struct{} {
	pipPath := filepath.Join(s.VenvPath, "bin", "pip")
	res := execpkg.Run(ctx, []string{pipPath, "list", "--format=freeze"}, s.Root, s.env(), 30*time.Second, s.Logger.ForTask(s.TaskID), "agent-pip-snapshot")
	out := map[string]struct{}{}
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name := strings.SplitN(line, "==", 2)[0]
		name = strings.ToLower(name)
		if _, ok := bootstrapPackages[name]; ok {
			continue
		}
		out[name] = struct{}{}
	}
	return out
}

// InterpreterPackagesDelta returns packages present in after but not
// before, preserving no particular order beyond map iteration (the
// caller sorts for determinism).
func InterpreterPackagesDelta(before, after map[string]struct{}) []string {
	var delta []string
	for pkg := range after {
		if _, ok := before[pkg]; !ok {
			delta = append(delta, pkg)
		}
	}
	return delta
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

var sanitizePattern = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

func sanitize(s string) string { return sanitizePattern.ReplaceAllString(s, "_") }
