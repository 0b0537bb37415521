// Package task loads declarative task spec files: one file per task,
// JSON- or YAML-encoded, distinguished by extension.
package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/erayyap/scriptbench/types"
)

// LoadFile reads a single task spec file and validates it. The task's ID
// is set from the file's stem (its name without extension), which must
// be a stable identifier across runs.
func LoadFile(path string) (*types.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task file %s: %w", path, err)
	}

	var t types.Task
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parsing task YAML %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parsing task JSON %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unrecognised task file extension %q for %s", ext, path)
	}

	stem := filepath.Base(path)
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	t.ID = stem

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadDir globs every *.yaml, *.yml, and *.json file directly under dir
// and loads each as a Task, in a deterministic (sorted) order so reruns
// of the same corpus process tasks in the same sequence.
func LoadDir(dir string) ([]*types.Task, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("globbing %s in %s: %w", pattern, dir, err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	tasks := make([]*types.Task, 0, len(paths))
	for _, p := range paths {
		t, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
