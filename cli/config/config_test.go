package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `task_assets_root: ./tasks
agent_assets_root: ./agent_assets
run_log_root: ./runs

inference:
  model: gpt-4o
  backend: agent
  retry_attempts: 3
  retry_base_delay: 2s
  step_limit: 40
  cost_limit: 1.5
  min_steps: 5
  cmd_timeout: 30s

install:
  per_package_timeout: 5m
  cache_redis_addr: localhost:6379

storage:
  dataset: scriptbench
  backend: s3
  path: my-bucket/prefix
  s3_bucket: my-bucket
  s3_region: us-east-1

tui:
  enabled: true
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "task_assets_root", cfg.TaskAssetsRoot, "./tasks")
	assertEqual(t, "agent_assets_root", cfg.AgentAssetsRoot, "./agent_assets")
	assertEqual(t, "run_log_root", cfg.RunLogRoot, "./runs")

	assertEqual(t, "inference.model", cfg.Inference.Model, "gpt-4o")
	assertEqual(t, "inference.backend", cfg.Inference.Backend, "agent")
	if cfg.Inference.RetryAttempts != 3 {
		t.Errorf("expected retry_attempts=3, got %d", cfg.Inference.RetryAttempts)
	}
	if cfg.Inference.RetryBaseDelay.Duration != 2*time.Second {
		t.Errorf("expected retry_base_delay=2s, got %v", cfg.Inference.RetryBaseDelay.Duration)
	}
	if cfg.Inference.StepLimit != 40 {
		t.Errorf("expected step_limit=40, got %d", cfg.Inference.StepLimit)
	}
	if cfg.Inference.CostLimit != 1.5 {
		t.Errorf("expected cost_limit=1.5, got %v", cfg.Inference.CostLimit)
	}
	if cfg.Inference.MinSteps != 5 {
		t.Errorf("expected min_steps=5, got %d", cfg.Inference.MinSteps)
	}

	if cfg.Install.PerPackageTimeout.Duration != 5*time.Minute {
		t.Errorf("expected per_package_timeout=5m, got %v", cfg.Install.PerPackageTimeout.Duration)
	}
	assertEqual(t, "install.cache_redis_addr", cfg.Install.CacheRedisAddr, "localhost:6379")

	assertEqual(t, "storage.backend", cfg.Storage.Backend, "s3")
	assertEqual(t, "storage.path", cfg.Storage.Path, "my-bucket/prefix")
	assertEqual(t, "storage.s3_bucket", cfg.Storage.S3Bucket, "my-bucket")

	if !cfg.TUI.Enabled {
		t.Error("expected tui.enabled=true")
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TaskAssetsRoot != "" {
		t.Errorf("expected empty task_assets_root, got %q", cfg.TaskAssetsRoot)
	}
	if cfg.Storage.Dataset != "scriptbench" {
		t.Errorf("expected default dataset to survive an empty config, got %q", cfg.Storage.Dataset)
	}
	if cfg.Inference.Backend != "single-shot" {
		t.Errorf("expected default backend to survive an empty config, got %q", cfg.Inference.Backend)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/scriptbench.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_ROOT", "/expanded/tasks")

	yaml := `task_assets_root: ${TEST_ROOT}`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "task_assets_root", cfg.TaskAssetsRoot, "/expanded/tasks")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	yaml := `task_assets_root: ./tasks
bogus_key: should_fail
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_UnknownNestedKeyRejected(t *testing.T) {
	yaml := `storage:
  backend: fs
  path: ./data
  unknown_field: bad
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown nested key, got nil")
	}
	if !strings.Contains(err.Error(), "unknown_field") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	yaml := "inference:\n  cmd_timeout: 30s\n"
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Inference.CmdTimeout.Duration != 30*time.Second {
		t.Errorf("expected 30s, got %v", cfg.Inference.CmdTimeout.Duration)
	}
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scriptbench.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
