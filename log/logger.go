// Package log provides the structured logger every ScriptBench
// component writes through: zap-backed JSON lines seeded with the run's
// identity, narrowed per task and per output stream as subprocess
// output is forwarded.
package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/erayyap/scriptbench/types"
)

// Logger wraps zap.Logger with run context. Every entry carries run_id
// and run_started_at; task-scoped and stream-scoped variants layer
// task_id and source/stream fields on top.
type Logger struct {
	zap  *zap.Logger
	meta *types.RunMeta
}

// NewLogger creates the run-scoped root logger, writing to stderr.
func NewLogger(runMeta *types.RunMeta) *Logger {
	return &Logger{zap: newZap(runMeta, os.Stderr), meta: runMeta}
}

// WithOutput returns a run-scoped logger writing to w instead of
// stderr, used by the CLI to mirror the log into the run directory's
// textual log file. It rebuilds from the run metadata, so call it on
// the root logger before narrowing with ForTask/WithStream.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	return &Logger{zap: newZap(l.meta, w), meta: l.meta}
}

// ForTask returns a logger with a task_id field attached, used by every
// component that logs on behalf of one task (workspace, installer,
// side-car, executor, evaluator).
func (l *Logger) ForTask(taskID string) *Logger {
	return &Logger{zap: l.zap.With(zap.String("task_id", taskID)), meta: l.meta}
}

// WithStream returns a logger tagged with the stream a line of output
// came from (stdout/stderr) and the source process that produced it
// (submission, sidecar, checker, pip(<pkg>)/apt(<pkg>) for installs,
// agent-command).
func (l *Logger) WithStream(source, stream string) *Logger {
	return &Logger{zap: l.zap.With(zap.String("source", source), zap.String("stream", stream)), meta: l.meta}
}

func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}

func newZap(runMeta *types.RunMeta, w io.Writer) *zap.Logger {
	return zap.New(newCore(w)).With(
		zap.String("run_id", runMeta.RunID),
		zap.Time("run_started_at", runMeta.StartedAt),
	)
}

func newCore(w io.Writer) zapcore.Core {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	})
	return zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel)
}
