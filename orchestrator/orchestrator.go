// Package orchestrator is the per-task state machine that composes the
// workspace provisioner, the inference backends, the submission
// extractor, the side-car supervisor, the package installer, the process
// executor, and the evaluators, producing one TaskResult per task.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/erayyap/scriptbench/eval"
	"github.com/erayyap/scriptbench/extract"
	"github.com/erayyap/scriptbench/inference"
	"github.com/erayyap/scriptbench/inference/agent"
	"github.com/erayyap/scriptbench/install"
	"github.com/erayyap/scriptbench/log"
	execpkg "github.com/erayyap/scriptbench/runtime/exec"
	"github.com/erayyap/scriptbench/sidecar"
	"github.com/erayyap/scriptbench/types"
	"github.com/erayyap/scriptbench/workspace"
)

// State names the orchestrator's position in its linear state machine.
// It exists primarily so the TUI progress view (see cli/tui) has
// something to subscribe to; the orchestrator itself never branches on
// State, only on outcomes.
type State string

const (
	StateInit               State = "init"
	StateWorkspaceReady     State = "workspace_ready"
	StateInferring          State = "inferring"
	StateSubmissionReady    State = "submission_ready"
	StateSidecarStarting    State = "sidecar_starting"
	StatePackagesInstalled  State = "packages_installed"
	StateWaitGate           State = "wait_gate"
	StateExecuting          State = "executing"
	StateEvaluating         State = "evaluating"
	StateDone               State = "done"
)

// StateChange is one state-transition event, passed to the optional
// Observer callback so a caller (the TUI, a test) can watch a task's
// progress without the orchestrator depending on any presentation
// concern.
type StateChange struct {
	TaskID string
	State  State
	At     time.Time
}

// Deps bundles every subcomponent the orchestrator composes. All fields
// are required except Observer, IsAgentBackend, and
// ClassificationParquetDetail.
type Deps struct {
	Provisioner *workspace.Provisioner
	Installer   *install.Installer
	Backend     inference.Backend
	// IsAgentBackend reports whether Backend is a multi-turn agent
	// variant, driving the side-car deferral rule below.
	IsAgentBackend bool
	Logger         *log.Logger
	// Observer, if set, receives every state transition synchronously.
	Observer func(StateChange)
	// ClassificationParquetDetail enables the classification evaluator's
	// columnar detail snapshot.
	ClassificationParquetDetail bool
}

// Orchestrator drives one task at a time through the state machine.
type Orchestrator struct {
	deps Deps
}

func New(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// RunTask drives the state machine for one task end to end, always
// returning a TaskResult — fatal errors at any state route to DONE with
// Passed=false and a populated Error/Category, and every exception from
// a subcomponent is caught at this boundary so the run as a whole keeps
// going.
func (o *Orchestrator) RunTask(ctx context.Context, t *types.Task, taskAssetsRoot string) (result *types.TaskResult) {
	logger := o.deps.Logger.ForTask(t.ID)
	var checkpoints types.TimingCheckpoints
	checkpoints.TaskStart = nowSeconds()

	result = &types.TaskResult{TaskID: t.ID, Difficulty: t.Difficulty, ResultKind: t.Result.Kind}
	defer func() {
		// The task boundary: a panic anywhere below becomes a failed
		// TaskResult instead of aborting the run, so N tasks always
		// produce N records. The teardown defers registered after this
		// one have already run by the time the panic reaches here.
		if r := recover(); r != nil {
			logger.Error("task panicked", map[string]any{"panic": fmt.Sprintf("%v", r)})
			result.Passed = false
			result.Category = types.CategoryUnexpected
			result.Error = fmt.Sprintf("panic: %v", r)
			o.transition(t.ID, StateDone)
		}
		checkpoints.TaskEnd = nowSeconds()
		result.TimingCheckpoints = checkpoints
	}()

	o.transition(t.ID, StateInit)

	// --- WORKSPACE_READY -----------------------------------------------
	ws, err := o.deps.Provisioner.Provision(ctx, t)
	if err != nil {
		return o.fail(result, types.CategorySetupError, fmt.Errorf("provisioning workspace: %w", err))
	}
	defer o.deps.Provisioner.Teardown(ws, logger)
	o.transition(t.ID, StateWorkspaceReady)

	var sidecarHandle *sidecar.Handle
	sidecarStart := time.Time{}

	// For non-agent backends the side-car starts now, during workspace
	// provisioning.
	if t.SideCarScript != "" && !o.deps.IsAgentBackend {
		sidecarHandle, sidecarStart = o.startSidecar(ctx, t, ws, logger)
	}
	defer func() {
		if sidecarHandle != nil {
			sidecarHandle.Stop()
		}
	}()

	// --- INFERRING -------------------------------------------------------
	o.transition(t.ID, StateInferring)
	submission, backendMeta, transcript, err := o.produce(ctx, t, ws)
	checkpoints.InferenceEnd = nowSeconds()
	if err != nil {
		category := types.CategoryUnexpected
		switch {
		case extract.IsSubmissionAbsent(err):
			category = types.CategorySubmissionAbsent
		case agent.IsInvalidPath(err):
			category = types.CategoryInvalidPath
		case agent.IsLimitsExceeded(err):
			category = types.CategoryAgentLimit
		case agent.IsAgentFormat(err):
			category = types.CategoryAgentFormat
		}
		return o.fail(result, category, err)
	}
	if submission.ScriptBody == "" {
		return o.fail(result, types.CategorySubmissionAbsent, fmt.Errorf("inference produced an empty script body"))
	}
	// Transcript is carried in EvaluationDetails rather than on TaskResult
	// itself: it is the run-log writer's concern (the trajectory file),
	// not part of the durable result record's own shape. The caller pops
	// it back out before persisting the record (see persistResult in
	// cli/cmd/run.go).
	result.SubmissionScript = submission.ScriptBody
	result.EvaluationDetails = map[string]any{"backend_metadata": backendMeta, "transcript": transcript}
	o.transition(t.ID, StateSubmissionReady)

	// Side-car deferral rule: for agent backends, the side-car starts
	// only now, after the agent loop has already finished, so the
	// agent's own sandbox commands never collide with side-car resources.
	if t.SideCarScript != "" && o.deps.IsAgentBackend {
		o.transition(t.ID, StateSidecarStarting)
		sidecarHandle, sidecarStart = o.startSidecar(ctx, t, ws, logger)
	}

	// --- PACKAGES_INSTALLED ----------------------------------------------
	osSummary := o.deps.Installer.InstallOSPackages(ctx, t.ID, submission.OSPackages)
	interpSummary := o.deps.Installer.InstallInterpreterPackages(ctx, t.ID, ws, submission.InterpreterPackages)
	result.OSPackages = osSummary
	result.InterpreterPkgs = interpSummary
	o.transition(t.ID, StatePackagesInstalled)

	// --- WAIT_GATE ---------------------------------------------------------
	o.waitGate(ctx, t, sidecarStart)
	checkpoints.WaitGateRelease = nowSeconds()
	o.transition(t.ID, StateWaitGate)

	// --- EXECUTING -----------------------------------------------------
	o.transition(t.ID, StateExecuting)
	execResult := o.executeSubmission(ctx, t, ws, submission, logger)
	checkpoints.ExecutionEnd = nowSeconds()
	result.RawOutput = execResult.Stdout + execResult.Stderr

	if execResult.Error != "" {
		return o.fail(result, types.CategoryExecutionFailed, fmt.Errorf("submission execution error: %s", execResult.Error))
	}
	if execResult.TimedOut {
		return o.fail(result, types.CategoryExecutionTimedOut, fmt.Errorf("submission exceeded its timeout"))
	}
	if execResult.ExitCode != 0 {
		return o.fail(result, types.CategoryExecutionFailed, fmt.Errorf("submission exited with code %d", execResult.ExitCode))
	}

	// --- EVALUATING ------------------------------------------------------
	o.transition(t.ID, StateEvaluating)
	passed, details := o.evaluate(ctx, t, ws, execResult.Stdout+execResult.Stderr, logger)
	for k, v := range details {
		result.EvaluationDetails[k] = v
	}
	result.Passed = passed
	if !passed {
		category := types.CategoryEvaluationFailed
		if t.Result.Kind == types.ResultChecker {
			category = types.CategoryCheckerError
		}
		result.Category = category
	}

	o.transition(t.ID, StateDone)
	return result
}

func (o *Orchestrator) produce(ctx context.Context, t *types.Task, ws *types.Workspace) (*types.Submission, map[string]any, []inference.Message, error) {
	tc := &inference.TaskContext{Task: t, Workspace: ws, Logger: o.deps.Logger}
	sr, err := o.deps.Backend.Produce(ctx, tc)
	if err != nil {
		return nil, nil, nil, err
	}
	return sr.Submission, sr.Metadata, sr.Transcript, nil
}

func (o *Orchestrator) startSidecar(ctx context.Context, t *types.Task, ws *types.Workspace, logger *log.Logger) (*sidecar.Handle, time.Time) {
	handle, err := sidecar.Start(ctx, t.SideCarScript, o.deps.Logger, t.ID)
	if err != nil {
		logger.Warn("side-car failed to start, continuing without it", map[string]any{"error": err.Error()})
		return nil, time.Now()
	}
	return handle, time.Now()
}

// waitGate sleeps for whatever remains of task.ScriptWaitSeconds
// measured from the side-car's own start time, so the side-car always
// gets its full warm-up window no matter how long inference and package
// installation took. With no wait configured it returns immediately.
func (o *Orchestrator) waitGate(ctx context.Context, t *types.Task, sidecarStart time.Time) {
	if t.ScriptWaitSeconds <= 0 {
		return
	}
	elapsed := time.Since(sidecarStart)
	remainder := time.Duration(t.ScriptWaitSeconds*float64(time.Second)) - elapsed
	if remainder <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(remainder):
	}
}

func (o *Orchestrator) executeSubmission(ctx context.Context, t *types.Task, ws *types.Workspace, submission *types.Submission, logger *log.Logger) *types.ExecutionResult {
	timeout := time.Duration(t.ScriptTimeoutSeconds * float64(time.Second))
	scriptPath, writeErr := writeScriptFile(ws, submission.ScriptBody)
	if writeErr != nil {
		return &types.ExecutionResult{ExitCode: -1, Error: fmt.Sprintf("writing submission script: %v", writeErr)}
	}
	argv := []string{ws.PythonPath(), scriptPath}
	return execpkg.Run(ctx, argv, ws.Root, nil, timeout, logger, "submission")
}

func (o *Orchestrator) evaluate(ctx context.Context, t *types.Task, ws *types.Workspace, runOutput string, logger *log.Logger) (bool, map[string]any) {
	switch t.Result.Kind {
	case types.ResultNumerical:
		return eval.Numerical(t, runOutput)
	case types.ResultString:
		return eval.String(t, runOutput)
	case types.ResultClassification:
		detailPath := ""
		if o.deps.ClassificationParquetDetail {
			detailPath = ws.Root + "/classification_detail.parquet"
		}
		return eval.Classification(t, ws, detailPath)
	case types.ResultChecker:
		return eval.Checker(ctx, t, ws, logger)
	default:
		return false, map[string]any{"error": fmt.Sprintf("unknown result kind %q", t.Result.Kind)}
	}
}

func (o *Orchestrator) fail(result *types.TaskResult, category types.FailureCategory, err error) *types.TaskResult {
	result.Passed = false
	result.Category = category
	result.Error = err.Error()
	o.transition(result.TaskID, StateDone)
	return result
}

func (o *Orchestrator) transition(taskID string, s State) {
	if o.deps.Observer != nil {
		o.deps.Observer(StateChange{TaskID: taskID, State: s, At: time.Now()})
	}
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// writeScriptFile materialises the submission's script body into the
// workspace root so it can be executed by path and inspected or re-run
// by a human afterwards.
func writeScriptFile(ws *types.Workspace, body string) (string, error) {
	path := ws.Root + "/submission.py"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
