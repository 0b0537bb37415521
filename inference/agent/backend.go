package agent

import (
	"context"
	"sort"

	"github.com/erayyap/scriptbench/inference"
	"github.com/erayyap/scriptbench/log"
	"github.com/erayyap/scriptbench/types"
)

// Backend adapts Loop to the inference.Backend contract, so the
// orchestrator can treat the single-shot and multi-turn backends
// interchangeably.
type Backend struct {
	Model  inference.Model
	Config Config
	Logger *log.Logger
}

func NewBackend(model inference.Model, cfg Config, logger *log.Logger) *Backend {
	return &Backend{Model: model, Config: cfg, Logger: logger}
}

func (b *Backend) Produce(ctx context.Context, tc *inference.TaskContext) (*inference.SubmissionResult, error) {
	loop := &Loop{Model: b.Model, Config: b.Config, Logger: b.Logger}
	result, err := loop.Run(ctx, tc.Task, tc.Workspace)
	if err != nil {
		return nil, err
	}

	switch result.Status {
	case StatusInvalidPath:
		return nil, invalidPathError{}
	case StatusLimitsExceeded:
		return nil, limitsExceededError{}
	case StatusFormatError:
		return nil, formatError{}
	}

	osPkgs, _ := result.Metadata["os_packages"].([]string)
	interpPkgs, _ := result.Metadata["interpreter_packages"].([]string)
	sort.Strings(osPkgs)

	submission := &types.Submission{
		OSPackages:          osPkgs,
		InterpreterPackages: interpPkgs,
		ScriptBody:          result.ScriptBody,
		BackendMetadata:     result.Metadata,
	}
	if len(result.Transcript) > 0 {
		submission.RawTranscript = result.Transcript[len(result.Transcript)-1].Content
	}

	return &inference.SubmissionResult{Submission: submission, Metadata: result.Metadata, Transcript: result.Transcript}, nil
}

var _ inference.Backend = (*Backend)(nil)

type invalidPathError struct{}

func (invalidPathError) Error() string {
	return "agent backend: submitted payload is not a valid workspace-relative script path"
}

// IsInvalidPath reports whether err is the agent backend's invalid-path
// terminal condition (category 8).
func IsInvalidPath(err error) bool {
	_, ok := err.(invalidPathError)
	return ok
}

type limitsExceededError struct{}

func (limitsExceededError) Error() string {
	return "agent backend: exhausted its step or cost budget before submitting"
}

// IsLimitsExceeded reports whether err is the agent backend's
// limits-exceeded terminal condition (category 6).
func IsLimitsExceeded(err error) bool {
	_, ok := err.(limitsExceededError)
	return ok
}

type formatError struct{}

func (formatError) Error() string {
	return "agent backend: persistently failed to produce a well-formed action"
}

// IsAgentFormat reports whether err is the agent backend's
// persistent-format-failure terminal condition (category 7).
func IsAgentFormat(err error) bool {
	_, ok := err.(formatError)
	return ok
}
