package resultlog

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/erayyap/scriptbench/inference"
)

// WriteScript writes a task's submitted script verbatim, so a human can
// open the run log and re-run exactly what the backend produced.
func (s *Sink) WriteScript(ctx context.Context, taskID, body string) error {
	return s.PutFile(ctx, taskID+".py", []byte(body))
}

// WriteTrajectory msgpack-encodes a backend's full message transcript
// and writes it as the task's trajectory file: a compact, replayable
// record of every turn the backend exchanged with the model, distinct
// from the plain-text script and log files the run also writes.
func (s *Sink) WriteTrajectory(ctx context.Context, taskID string, transcript []inference.Message) error {
	data, err := msgpack.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("resultlog: encoding trajectory for %s: %w", taskID, err)
	}
	return s.PutFile(ctx, taskID+".trajectory.msgpack", data)
}
