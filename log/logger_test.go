package log

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/erayyap/scriptbench/types"
)

func TestLogger_CarriesRunAndTaskContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&types.RunMeta{RunID: "run-7", StartedAt: time.Now()}).WithOutput(&buf)

	base.ForTask("t1").WithStream("submission", "stdout").Info("hello from the script", nil)

	line := buf.String()
	for _, want := range []string{`"run_id":"run-7"`, `"task_id":"t1"`, `"source":"submission"`, `"stream":"stdout"`, "hello from the script"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %s: %s", want, line)
		}
	}
}

func TestLogger_StreamVariantsAreIndependent(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&types.RunMeta{RunID: "run-8", StartedAt: time.Now()}).WithOutput(&buf)

	stdout := base.WithStream("submission", "stdout")
	stderr := base.WithStream("submission", "stderr")
	stdout.Info("out line", nil)
	stderr.Info("err line", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"stream":"stdout"`) || !strings.Contains(lines[1], `"stream":"stderr"`) {
		t.Errorf("stream tags leaked across variants: %v", lines)
	}
}
