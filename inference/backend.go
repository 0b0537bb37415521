package inference

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/erayyap/scriptbench/log"
	"github.com/erayyap/scriptbench/types"
)

// TaskContext bundles everything a backend needs to produce a
// Submission: the task itself and the workspace the task was
// provisioned into (the agent backend creates its own sandboxed workspace
// separately, under the system temp directory; the single-shot backend
// ignores it). Diagnostics —
// the transcript for the trajectory file, call metadata — travel back
// on SubmissionResult rather than being written here.
type TaskContext struct {
	Task      *types.Task
	Workspace *types.Workspace
	Logger    *log.Logger
}

// SubmissionResult pairs the extracted Submission with backend-specific
// metadata that the orchestrator folds into the TaskResult record (for
// example step count and cost for the agent backend, call duration and
// model-call count for the single-shot backend).
type SubmissionResult struct {
	Submission *types.Submission
	Metadata   map[string]any
	// Transcript is the full {role, content} message history the backend
	// exchanged with the model, for the trajectory file. Single-shot
	// backends populate it with the one request/reply pair; the agent
	// backend with the whole multi-turn loop.
	Transcript []Message
}

// RetryConfig governs the single-shot backend's model-call retry: up to
// MaxAttempts attempts with exponential backoff and jitter.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig is a conservative retry posture for external model
// calls: a handful of attempts, capped exponential backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 5, BaseDelay: 500 * time.Millisecond, MaxDelay: 30 * time.Second}
}

// withRetry calls fn up to cfg.MaxAttempts times, sleeping an
// exponentially growing, jittered delay between attempts. It returns the
// last error if every attempt fails, or the first successful Reply.
func withRetry(ctx context.Context, cfg RetryConfig, fn func(context.Context) (Reply, error)) (Reply, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		reply, err := fn(ctx)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if attempt == cfg.MaxAttempts-1 {
			break
		}
		delay := backoffDelay(cfg, attempt)
		select {
		case <-ctx.Done():
			return Reply{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return Reply{}, lastErr
}

func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	base := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if cfg.MaxDelay > 0 && base > float64(cfg.MaxDelay) {
		base = float64(cfg.MaxDelay)
	}
	jitter := base * (0.5 + rand.Float64()*0.5) //nolint:gosec // jitter only, not security sensitive
	return time.Duration(jitter)
}
