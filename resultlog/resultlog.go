// Package resultlog is the run-log sink: it persists one TaskResult
// record per finished task, plus that task's script and trajectory
// files, to Lode-managed storage. It is the orchestrator's only
// collaborator for durability — the orchestrator itself never touches a
// filesystem or object store directly.
package resultlog

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/justapithecus/lode/lode"

	"github.com/erayyap/scriptbench/types"
)

// Config identifies the run whose results are being written and the
// Hive partition keys the dataset is laid out under.
type Config struct {
	// Dataset is the Lode dataset ID (default "scriptbench").
	Dataset string
	// Category is a free-form label for the task corpus being run
	// (e.g. the benchmark suite name). Defaults to "default".
	Category string
	// Day is the UTC partition day, "YYYY-MM-DD". Derive with DeriveDay.
	Day string
	// RunID identifies this invocation of the harness.
	RunID string
}

// DeriveDay computes the partition day from a run's start time, in UTC.
func DeriveDay(meta types.RunMeta) string {
	return meta.StartedAt.UTC().Format("2006-01-02")
}

// Sink writes TaskResult records and their companion script/trajectory
// files to a Lode dataset Hive-partitioned by category/day/run_id.
type Sink struct {
	cfg     Config
	dataset lode.Dataset

	storeOnce sync.Once
	store     lode.Store
	storeErr  error
	factory   lode.StoreFactory
}

// NewSink creates a sink with filesystem storage rooted at dir.
func NewSink(cfg Config, dir string) (*Sink, error) {
	return NewSinkWithFactory(cfg, lode.NewFSFactory(dir))
}

// NewSinkWithFactory creates a sink against an arbitrary Lode store
// factory (the filesystem one above, an S3 one via NewS3Factory, or
// lode.NewMemoryFactory() in tests).
func NewSinkWithFactory(cfg Config, factory lode.StoreFactory) (*Sink, error) {
	ds, err := lode.NewDataset(
		lode.DatasetID(cfg.Dataset),
		factory,
		lode.WithHiveLayout("category", "day", "run_id"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return &Sink{cfg: cfg, dataset: ds, factory: factory}, nil
}

// WriteResult appends one TaskResult record to the dataset.
func (s *Sink) WriteResult(ctx context.Context, result *types.TaskResult) error {
	record := toRecordMap(result, s.cfg)
	_, err := s.dataset.Write(ctx, []any{record}, lode.Metadata{})
	return WrapWriteError(err, "task/"+result.TaskID)
}

// PutFile writes a sidecar file (a script or trajectory) to the run's
// Hive-partitioned files/ prefix, kept separate from the structured
// result records so the dataset's segment rows stay narrow.
func (s *Sink) PutFile(ctx context.Context, filename string, data []byte) error {
	store, err := s.getOrCreateStore()
	if err != nil {
		return fmt.Errorf("resultlog: file store init failed: %w", err)
	}
	path := s.filePath(filename)
	return WrapWriteError(store.Put(ctx, path, bytes.NewReader(data)), path)
}

func (s *Sink) getOrCreateStore() (lode.Store, error) {
	s.storeOnce.Do(func() {
		s.store, s.storeErr = s.factory()
	})
	return s.store, s.storeErr
}

func (s *Sink) filePath(filename string) string {
	return fmt.Sprintf("datasets/%s/partitions/category=%s/day=%s/run_id=%s/files/%s",
		s.cfg.Dataset, s.cfg.Category, s.cfg.Day, s.cfg.RunID, filename)
}

// toRecordMap converts a TaskResult to the map[string]any shape Lode's
// Hive layout writer expects, carrying the partition keys alongside the
// record fields.
func toRecordMap(r *types.TaskResult, cfg Config) map[string]any {
	return map[string]any{
		"task_id":              r.TaskID,
		"passed":               r.Passed,
		"difficulty":           r.Difficulty,
		"result_kind":          string(r.ResultKind),
		"raw_output":           r.RawOutput,
		"submission_script":    r.SubmissionScript,
		"evaluation_details":   r.EvaluationDetails,
		"os_packages":          r.OSPackages,
		"interpreter_packages": r.InterpreterPkgs,
		"error":                r.Error,
		"failure_category":     string(r.Category),
		"timing_checkpoints":   r.TimingCheckpoints,
		"category":             cfg.Category,
		"day":                  cfg.Day,
		"run_id":               cfg.RunID,
	}
}
