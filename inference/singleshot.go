package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/erayyap/scriptbench/extract"
)

// singleShotPromptTemplate embeds the task description and asks for
// exactly the three fenced blocks the extractor parses.
const singleShotPromptTemplate = `You are solving a programming task. Read the task description below and
produce a runnable solution.

TASK DESCRIPTION:
%s

Respond with exactly three sections:

1. A bash code block listing any OS-level packages to install (apt-get), if needed:
` + "```bash\napt-get install -y <packages>\n```" + `

2. A bash code block listing any interpreter-level packages to install (pip), if needed:
` + "```bash\npip install <packages>\n```" + `

3. A python code block containing the complete script that solves the task and
prints its answer to stdout using the ANSWER=<value> convention:
` + "```python\n<your script>\n```"

// SingleShot is the single-shot chat-completion backend: one
// fixed-template prompt, one retried model call, parsed by the
// submission extractor.
type SingleShot struct {
	Model Model
	Retry RetryConfig
}

// NewSingleShot builds a SingleShot backend with the default retry
// policy; callers may replace Retry afterwards.
func NewSingleShot(model Model) *SingleShot {
	return &SingleShot{Model: model, Retry: DefaultRetryConfig()}
}

func (s *SingleShot) Produce(ctx context.Context, tc *TaskContext) (*SubmissionResult, error) {
	retry := s.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryConfig()
	}

	prompt := fmt.Sprintf(singleShotPromptTemplate, tc.Task.Description)
	messages := []Message{{Role: "user", Content: prompt}}

	callStart := time.Now()
	reply, err := withRetry(ctx, retry, func(ctx context.Context) (Reply, error) {
		return s.Model.Query(ctx, messages)
	})
	callDuration := time.Since(callStart)
	if err != nil {
		return nil, fmt.Errorf("single-shot backend: model call exhausted retries: %w", err)
	}

	submission, err := extract.Extract(reply.Content)
	if err != nil {
		return nil, err
	}
	submission.RawTranscript = reply.Content
	submission.BackendMetadata = map[string]any{
		"backend":       "single-shot",
		"model":         s.Model.Name(),
		"call_duration": callDuration.Seconds(),
		"token_cost":    reply.Cost,
		"model_calls":   reply.Calls,
	}

	return &SubmissionResult{
		Submission: submission,
		Metadata:   submission.BackendMetadata,
		Transcript: append(messages, Message{Role: "assistant", Content: reply.Content}),
	}, nil
}

var _ Backend = (*SingleShot)(nil)
