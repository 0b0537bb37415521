// Package config loads the harness-wide scriptbench.yaml: strict YAML
// decoding with ${VAR} environment expansion over built-in defaults.
package config

import (
	"fmt"
	"time"
)

// Config represents a scriptbench.yaml configuration file: harness-wide
// defaults. CLI flags always override config values. This is distinct
// from a task spec file (see package task) — this config governs the
// orchestrator's own defaults across an entire run, not one task.
type Config struct {
	TaskAssetsRoot  string `yaml:"task_assets_root"`
	AgentAssetsRoot string `yaml:"agent_assets_root"`
	RunLogRoot      string `yaml:"run_log_root"`

	Inference InferenceConfig `yaml:"inference"`
	Install   InstallConfig   `yaml:"install"`
	Storage   StorageConfig   `yaml:"storage"`
	TUI       TUIConfig       `yaml:"tui"`
}

// InferenceConfig holds defaults for the inference backends.
type InferenceConfig struct {
	Model          string   `yaml:"model"`
	Backend        string   `yaml:"backend"` // "single-shot" or "agent"
	RetryAttempts  int      `yaml:"retry_attempts"`
	RetryBaseDelay Duration `yaml:"retry_base_delay"`

	StepLimit  int      `yaml:"step_limit"`
	CostLimit  float64  `yaml:"cost_limit"`
	MinSteps   int      `yaml:"min_steps"`
	CmdTimeout Duration `yaml:"cmd_timeout"`
}

// InstallConfig holds defaults for the package installer.
type InstallConfig struct {
	PerPackageTimeout Duration `yaml:"per_package_timeout"`
	CacheRedisAddr    string   `yaml:"cache_redis_addr,omitempty"`
}

// StorageConfig configures the lode-backed result sink. Setting S3Bucket
// makes the sink write to S3 instead of the filesystem store.
type StorageConfig struct {
	Dataset  string `yaml:"dataset"`
	Backend  string `yaml:"backend"` // "fs" (default) or "memory" (tests)
	Path     string `yaml:"path"`
	S3Bucket string `yaml:"s3_bucket,omitempty"`
	S3Region string `yaml:"s3_region,omitempty"`

	ClassificationParquetDetail bool `yaml:"classification_parquet_detail,omitempty"`
}

// TUIConfig configures the live-progress view.
type TUIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Defaults returns a Config populated with the harness's built-in
// defaults, overridden by whatever Load reads from disk.
func Defaults() Config {
	return Config{
		RunLogRoot: "./runs",
		Inference: InferenceConfig{
			Backend:        "single-shot",
			RetryAttempts:  5,
			RetryBaseDelay: Duration{2 * time.Second},
			StepLimit:      50,
			CostLimit:      0,
			CmdTimeout:     Duration{60 * time.Second},
		},
		Install: InstallConfig{
			PerPackageTimeout: Duration{5 * time.Minute},
		},
		Storage: StorageConfig{
			Dataset: "scriptbench",
			Backend: "fs",
			Path:    "./runs",
		},
	}
}
