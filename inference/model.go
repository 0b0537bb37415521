// Package inference produces a Submission for a task, either from a
// single model call (single-shot) or from a bounded multi-turn agent
// loop that issues shell commands inside a per-task sandbox (see
// inference/agent).
package inference

import "context"

// Message is one transcript turn exchanged with the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is the model's response to a Query call. Cost and Calls are
// optional counters: the agent loop reads Cost for budget enforcement,
// and the single-shot backend records Calls in its metadata. A model
// that does not report them leaves both at zero and cost-based
// termination never triggers.
type Reply struct {
	Content string
	Extra   map[string]any
	Cost    float64
	Calls   int
}

// Model is the language-model SDK contract ScriptBench depends on and
// never owns. Production wiring adapts whatever SDK client the harness
// is configured with; tests substitute a scripted driver.
type Model interface {
	Query(ctx context.Context, messages []Message) (Reply, error)
	// Name identifies the model for Submission.BackendMetadata.
	Name() string
}

// Backend produces a Submission for one task. Two variants implement
// this: the single-shot chat-completion backend and the multi-turn
// agent loop (inference/agent.Backend).
type Backend interface {
	Produce(ctx context.Context, task *TaskContext) (*SubmissionResult, error)
}
