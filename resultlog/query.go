package resultlog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrNoResultsFound is returned when a run has no task records in the
// dataset.
var ErrNoResultsFound = errors.New("resultlog: no task results found")

// NewReadDataset opens the same Hive-partitioned dataset WriteResult
// writes into, for the `report` command to read back without needing a
// live Sink.
func NewReadDataset(cfg Config, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(cfg.Dataset),
		factory,
		lode.WithHiveLayout("category", "day", "run_id"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// QueryRun reads every TaskResult record belonging to runID, across all
// snapshots whose partition path carries run_id=<runID>, in snapshot
// order (i.e. the order results were written during the run).
func QueryRun(ctx context.Context, ds lode.Dataset, runID string) ([]map[string]any, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, "resultlog/snapshots")
	}

	var records []map[string]any
	for _, snap := range snapshots {
		if !snapshotMatchesRun(snap, runID) {
			continue
		}
		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("resultlog/snapshot/%s", snap.ID))
		}
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if runID != "" && toString(record["run_id"]) != runID {
				continue
			}
			records = append(records, record)
		}
	}

	if len(records) == 0 {
		return nil, ErrNoResultsFound
	}
	return records, nil
}

func snapshotMatchesRun(snap *lode.DatasetSnapshot, runID string) bool {
	if runID == "" {
		return true
	}
	segment := "run_id=" + runID
	for _, f := range snap.Manifest.Files {
		for _, part := range strings.Split(f.Path, "/") {
			if part == segment {
				return true
			}
		}
	}
	return false
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
