package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/erayyap/scriptbench/log"
	"github.com/erayyap/scriptbench/types"
)

func testLogger() *log.Logger {
	return log.NewLogger(&types.RunMeta{RunID: "test-run", StartedAt: time.Now()})
}

func TestMaterialiseInputs_FlatFileCopy(t *testing.T) {
	assetsRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(assetsRoot, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(assetsRoot, "nested", "input.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New(assetsRoot, testLogger())
	ws := &types.Workspace{Root: t.TempDir(), TaskID: "t1"}
	tk := &types.Task{ID: "t1", Inputs: types.Inputs{File: "nested/input.txt"}}

	if err := p.materialiseInputs(tk, ws, testLogger()); err != nil {
		t.Fatalf("materialiseInputs failed: %v", err)
	}

	// Flat copy: lands at workspace root, not workspace/nested/.
	data, err := os.ReadFile(filepath.Join(ws.Root, "input.txt"))
	if err != nil {
		t.Fatalf("expected flat-copied file: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestMaterialiseInputs_FolderCopyPreservesStructure(t *testing.T) {
	assetsRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(assetsRoot, "proj", "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(assetsRoot, "proj", "sub", "a.py"), []byte("print(1)"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New(assetsRoot, testLogger())
	ws := &types.Workspace{Root: t.TempDir(), TaskID: "t2"}
	tk := &types.Task{ID: "t2", Inputs: types.Inputs{Folder: "proj"}}

	if err := p.materialiseInputs(tk, ws, testLogger()); err != nil {
		t.Fatalf("materialiseInputs failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(ws.Root, "proj", "sub", "a.py")); err != nil {
		t.Errorf("expected structure preserved under workspace/proj/sub/a.py: %v", err)
	}
}

func TestMaterialiseInputs_MissingSourceIsNonFatal(t *testing.T) {
	assetsRoot := t.TempDir()
	p := New(assetsRoot, testLogger())
	ws := &types.Workspace{Root: t.TempDir(), TaskID: "t3"}
	tk := &types.Task{ID: "t3", Inputs: types.Inputs{File: "does/not/exist.txt"}}

	if err := p.materialiseInputs(tk, ws, testLogger()); err != nil {
		t.Fatalf("expected missing source to be logged, not returned as an error: %v", err)
	}
}

func TestTeardown_RemovesDirectory(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "child")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	p := New(t.TempDir(), testLogger())
	ws := &types.Workspace{Root: root, TaskID: "t4"}
	p.Teardown(ws, testLogger())

	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Errorf("expected workspace root removed, stat err=%v", err)
	}
}
