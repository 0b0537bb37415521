package resultlog

import (
	"context"
	"errors"
	"testing"

	"github.com/justapithecus/lode/lode"

	"github.com/erayyap/scriptbench/inference"
	"github.com/erayyap/scriptbench/types"
)

// sharedFactory always hands back the same in-memory store, so writes
// and reads within one test see the same data.
func sharedFactory(store lode.Store) lode.StoreFactory {
	return func() (lode.Store, error) { return store, nil }
}

func testSinkConfig() Config {
	return Config{Dataset: "scriptbench", Category: "default", Day: "2026-08-01", RunID: "run-rt"}
}

func TestSink_WriteResultRoundTrip(t *testing.T) {
	factory := sharedFactory(lode.NewMemory())
	ctx := context.Background()

	sink, err := NewSinkWithFactory(testSinkConfig(), factory)
	if err != nil {
		t.Fatalf("NewSinkWithFactory failed: %v", err)
	}

	result := &types.TaskResult{
		TaskID:           "t1",
		Passed:           true,
		Difficulty:       "easy",
		ResultKind:       types.ResultNumerical,
		RawOutput:        "ANSWER=42\n",
		SubmissionScript: "print('ANSWER=42')",
	}
	if err := sink.WriteResult(ctx, result); err != nil {
		t.Fatalf("WriteResult failed: %v", err)
	}

	ds, err := NewReadDataset(testSinkConfig(), factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}
	records, err := QueryRun(ctx, ds, "run-rt")
	if err != nil {
		t.Fatalf("QueryRun failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec["task_id"] != "t1" {
		t.Errorf("task_id = %v, want t1", rec["task_id"])
	}
	if passed, _ := rec["passed"].(bool); !passed {
		t.Error("expected passed=true in the persisted record")
	}
	if rec["submission_script"] != "print('ANSWER=42')" {
		t.Errorf("submission_script = %v", rec["submission_script"])
	}
}

func TestSink_OneRecordPerTask(t *testing.T) {
	factory := sharedFactory(lode.NewMemory())
	ctx := context.Background()

	sink, err := NewSinkWithFactory(testSinkConfig(), factory)
	if err != nil {
		t.Fatalf("NewSinkWithFactory failed: %v", err)
	}

	for _, id := range []string{"a", "b", "c"} {
		if err := sink.WriteResult(ctx, &types.TaskResult{TaskID: id}); err != nil {
			t.Fatalf("WriteResult(%s) failed: %v", id, err)
		}
	}

	ds, err := NewReadDataset(testSinkConfig(), factory)
	if err != nil {
		t.Fatal(err)
	}
	records, err := QueryRun(ctx, ds, "run-rt")
	if err != nil {
		t.Fatalf("QueryRun failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records for 3 tasks, got %d", len(records))
	}
	for _, rec := range records {
		if rec["task_id"] == "" || rec["task_id"] == nil {
			t.Error("expected every record to carry a non-empty task_id")
		}
	}
}

func TestQueryRun_NoRecords(t *testing.T) {
	factory := sharedFactory(lode.NewMemory())
	ds, err := NewReadDataset(testSinkConfig(), factory)
	if err != nil {
		t.Fatal(err)
	}
	_, err = QueryRun(context.Background(), ds, "no-such-run")
	if !errors.Is(err, ErrNoResultsFound) {
		t.Errorf("expected ErrNoResultsFound, got %v", err)
	}
}

func TestSink_ScriptAndTrajectoryFiles(t *testing.T) {
	factory := sharedFactory(lode.NewMemory())
	ctx := context.Background()

	sink, err := NewSinkWithFactory(testSinkConfig(), factory)
	if err != nil {
		t.Fatal(err)
	}

	if err := sink.WriteScript(ctx, "t1", "print('hello')"); err != nil {
		t.Errorf("WriteScript failed: %v", err)
	}

	transcript := []inference.Message{
		{Role: "system", Content: "you are an agent"},
		{Role: "user", Content: "task description"},
		{Role: "assistant", Content: "```bash\nls\n```"},
	}
	if err := sink.WriteTrajectory(ctx, "t1", transcript); err != nil {
		t.Errorf("WriteTrajectory failed: %v", err)
	}
}
