package types

// FailureCategory is the error taxonomy a task can fail with. Every
// category here is fatal to the task but never to the run: the
// orchestrator always converts subcomponent errors into one of these and
// keeps going to the next task.
type FailureCategory string

const (
	// CategoryNone means the task did not fail.
	CategoryNone FailureCategory = ""

	// CategorySubmissionAbsent: inference produced no script block.
	CategorySubmissionAbsent FailureCategory = "submission-absent"
	// CategoryExecutionFailed: submission ran but exited non-zero.
	CategoryExecutionFailed FailureCategory = "execution-failed"
	// CategoryExecutionTimedOut: submission exceeded its budget.
	CategoryExecutionTimedOut FailureCategory = "execution-timed-out"
	// CategoryEvaluationFailed: script ran but output did not satisfy the evaluator.
	CategoryEvaluationFailed FailureCategory = "evaluation-failed"
	// CategoryCheckerError: checker script failed to run or didn't print TRUE.
	CategoryCheckerError FailureCategory = "checker-error"
	// CategoryAgentLimit: agent exhausted its step or cost budget.
	CategoryAgentLimit FailureCategory = "agent-limit"
	// CategoryAgentFormat: agent persistently failed to produce a well-formed action.
	CategoryAgentFormat FailureCategory = "agent-format"
	// CategoryInvalidPath: agent's final payload pointed outside the workspace or to a missing file.
	CategoryInvalidPath FailureCategory = "invalid-path"
	// CategorySetupError: workspace or interpreter environment could not be created.
	CategorySetupError FailureCategory = "setup-error"
	// CategoryUnexpected: any uncaught error; task records the message and the run continues.
	CategoryUnexpected FailureCategory = "unexpected"
)

// RunExitCode is the run-level (not per-task) exit code taxonomy.
// Per-task failures never change this — they are recorded on TaskResult
// instead.
type RunExitCode int

const (
	ExitSuccess          RunExitCode = 0
	ExitConfigInvalid    RunExitCode = 1
	ExitAssetsMissing    RunExitCode = 2
	ExitRunLogUnwritable RunExitCode = 3
)
