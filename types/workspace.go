package types

// Workspace is a freshly created directory plus an isolated interpreter
// environment rooted inside it. Owned exclusively by the orchestrator for
// the duration of one task.
type Workspace struct {
	// Root is the workspace's own temp directory.
	Root string
	// VenvPath is the isolated interpreter environment inside Root.
	VenvPath string
	// TaskID names the task this workspace belongs to, for log/dir naming.
	TaskID string
}

// PythonPath returns the interpreter launcher inside the workspace's venv.
func (w *Workspace) PythonPath() string {
	return w.VenvPath + "/bin/python"
}

// BinPath returns the venv's bin directory. The submission and checker
// runs do not put it on PATH; they run with the harness's own environment.
func (w *Workspace) BinPath() string {
	return w.VenvPath + "/bin"
}

