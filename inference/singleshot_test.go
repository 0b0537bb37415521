package inference

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erayyap/scriptbench/extract"
	"github.com/erayyap/scriptbench/types"
)

// scriptedModel replays canned replies (or errors) in order, recording
// how many times it was queried.
type scriptedModel struct {
	replies []Reply
	errs    []error
	calls   int
}

func (m *scriptedModel) Query(_ context.Context, _ []Message) (Reply, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return Reply{}, m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	return Reply{}, errors.New("scripted model: out of replies")
}

func (m *scriptedModel) Name() string { return "scripted" }

const wellFormedResponse = "Here is my solution.\n\n```bash\napt-get install -y curl\n```\n\n```bash\npip install requests pandas\n```\n\n```python\nprint('ANSWER=42')\n```\n"

func testTaskContext() *TaskContext {
	return &TaskContext{Task: &types.Task{ID: "t1", Description: "add numbers"}}
}

func TestSingleShot_ProducesSubmission(t *testing.T) {
	model := &scriptedModel{replies: []Reply{{Content: wellFormedResponse, Cost: 0.01}}}
	ss := NewSingleShot(model)

	sr, err := ss.Produce(context.Background(), testTaskContext())
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	sub := sr.Submission
	if sub.ScriptBody != "print('ANSWER=42')" {
		t.Errorf("script body = %q", sub.ScriptBody)
	}
	if len(sub.OSPackages) != 1 || sub.OSPackages[0] != "curl" {
		t.Errorf("os packages = %v", sub.OSPackages)
	}
	if len(sub.InterpreterPackages) != 2 || sub.InterpreterPackages[0] != "requests" {
		t.Errorf("interpreter packages = %v", sub.InterpreterPackages)
	}
	if len(sr.Transcript) != 2 {
		t.Errorf("expected request+reply transcript, got %d turns", len(sr.Transcript))
	}
	if sr.Metadata["backend"] != "single-shot" {
		t.Errorf("backend metadata = %v", sr.Metadata["backend"])
	}
}

func TestSingleShot_MissingScriptBlockFails(t *testing.T) {
	model := &scriptedModel{replies: []Reply{{Content: "no code here, sorry"}}}
	ss := NewSingleShot(model)

	_, err := ss.Produce(context.Background(), testTaskContext())
	if !extract.IsSubmissionAbsent(err) {
		t.Errorf("expected a submission-absent error, got %v", err)
	}
}

func TestSingleShot_RetriesTransientFailures(t *testing.T) {
	model := &scriptedModel{
		errs:    []error{errors.New("503"), errors.New("503"), nil},
		replies: []Reply{{}, {}, {Content: wellFormedResponse}},
	}
	ss := NewSingleShot(model)
	ss.Retry = RetryConfig{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	sr, err := ss.Produce(context.Background(), testTaskContext())
	if err != nil {
		t.Fatalf("expected the third attempt to succeed, got %v", err)
	}
	if model.calls != 3 {
		t.Errorf("expected 3 model calls, got %d", model.calls)
	}
	if sr.Submission.ScriptBody == "" {
		t.Error("expected a script body from the successful attempt")
	}
}

func TestSingleShot_ExhaustedRetriesEscalate(t *testing.T) {
	model := &scriptedModel{errs: []error{errors.New("down"), errors.New("down"), errors.New("down")}}
	ss := NewSingleShot(model)
	ss.Retry = RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	_, err := ss.Produce(context.Background(), testTaskContext())
	if err == nil {
		t.Fatal("expected an error once every attempt failed")
	}
	if model.calls != 3 {
		t.Errorf("expected exactly MaxAttempts calls, got %d", model.calls)
	}
}

func TestBackoffDelay_GrowsAndCaps(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: 400 * time.Millisecond}

	d0 := backoffDelay(cfg, 0)
	if d0 < 50*time.Millisecond || d0 > 100*time.Millisecond {
		t.Errorf("attempt 0 delay %v outside jittered [base/2, base]", d0)
	}
	d3 := backoffDelay(cfg, 3)
	if d3 > 400*time.Millisecond {
		t.Errorf("attempt 3 delay %v exceeds the cap", d3)
	}
}
