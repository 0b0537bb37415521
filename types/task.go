// Package types holds the value types shared across ScriptBench's
// components: Task, Submission, ExecutionResult, TaskResult, and the
// outcome/error taxonomy.
package types

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ResultKind selects which evaluator grades a task.
type ResultKind string

const (
	ResultNumerical      ResultKind = "numerical"
	ResultString         ResultKind = "string"
	ResultClassification ResultKind = "classification"
	ResultChecker        ResultKind = "checker"
)

// ResultSpec is the union-typed grading configuration for a task.
// Exactly the fields relevant to ResultSpec.Kind are populated. The
// `expected` key is shared between the numerical and string kinds, so
// decoding goes through a wire struct that disambiguates by Kind.
type ResultSpec struct {
	Kind ResultKind

	// numerical
	Expected float64

	// string
	ExpectedString string
	CaseSensitive  bool

	// classification
	GroundTruthFile string
	Threshold       float64

	// checker
	CheckerScript string
}

type resultSpecWire struct {
	Kind            ResultKind `yaml:"kind" json:"kind"`
	Expected        any        `yaml:"expected,omitempty" json:"expected,omitempty"`
	CaseSensitive   bool       `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`
	GroundTruthFile string     `yaml:"ground_truth_file,omitempty" json:"ground_truth_file,omitempty"`
	Threshold       float64    `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	CheckerScript   string     `yaml:"checker_script,omitempty" json:"checker_script,omitempty"`
}

func (r *ResultSpec) fromWire(w resultSpecWire) error {
	r.Kind = w.Kind
	r.CaseSensitive = w.CaseSensitive
	r.GroundTruthFile = w.GroundTruthFile
	r.Threshold = w.Threshold
	r.CheckerScript = w.CheckerScript

	switch w.Kind {
	case ResultNumerical:
		switch v := w.Expected.(type) {
		case nil:
		case float64:
			r.Expected = v
		case int:
			r.Expected = float64(v)
		case int64:
			r.Expected = float64(v)
		default:
			return fmt.Errorf("result.expected: want a number for kind=numerical, got %T", w.Expected)
		}
	case ResultString:
		switch v := w.Expected.(type) {
		case nil:
		case string:
			r.ExpectedString = v
		default:
			return fmt.Errorf("result.expected: want a string for kind=string, got %T", w.Expected)
		}
	}
	return nil
}

func (r *ResultSpec) UnmarshalYAML(value *yaml.Node) error {
	var w resultSpecWire
	if err := value.Decode(&w); err != nil {
		return err
	}
	return r.fromWire(w)
}

func (r *ResultSpec) UnmarshalJSON(data []byte) error {
	var w resultSpecWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return r.fromWire(w)
}

// Inputs names the task assets to materialise into a workspace. Exactly
// one of Folder or File must be set.
type Inputs struct {
	Folder          string `yaml:"folder,omitempty" json:"folder,omitempty"`
	File            string `yaml:"file,omitempty" json:"file,omitempty"`
	GroundTruthFile string `yaml:"ground_truth_file,omitempty" json:"ground_truth_file,omitempty"`
}

// AgentAsset is a single file or folder pre-seeded into an agent-backed
// sandbox workspace before the multi-turn loop begins.
type AgentAsset struct {
	Path  string `yaml:"path" json:"path"`
	IsDir bool   `yaml:"is_dir,omitempty" json:"is_dir,omitempty"`
}

// Task is the immutable spec loaded from a declarative task file.
type Task struct {
	ID          string `yaml:"-" json:"-"` // set by the loader from the file stem
	Difficulty  string `yaml:"difficulty" json:"difficulty"`
	Description string `yaml:"description" json:"description"`

	Inputs Inputs `yaml:"inputs" json:"inputs"`

	SideCarScript        string  `yaml:"side_car_script,omitempty" json:"side_car_script,omitempty"`
	ScriptWaitSeconds    float64 `yaml:"script_wait_seconds,omitempty" json:"script_wait_seconds,omitempty"`
	ScriptTimeoutSeconds float64 `yaml:"script_timeout_seconds" json:"script_timeout_seconds"`

	Result ResultSpec `yaml:"result" json:"result"`

	AgentEnv []AgentAsset `yaml:"agent_env,omitempty" json:"agent_env,omitempty"`
}

// Validate enforces the task-file invariants.
func (t *Task) Validate() error {
	if t.Inputs.Folder != "" && t.Inputs.File != "" {
		return fmt.Errorf("task %s: inputs.folder and inputs.file are mutually exclusive", t.ID)
	}
	if t.Inputs.Folder == "" && t.Inputs.File == "" {
		return fmt.Errorf("task %s: one of inputs.folder or inputs.file is required", t.ID)
	}
	switch t.Result.Kind {
	case ResultClassification:
		if t.Result.GroundTruthFile == "" {
			return fmt.Errorf("task %s: result.kind=classification requires ground_truth_file", t.ID)
		}
	case ResultChecker:
		if t.Result.CheckerScript == "" {
			return fmt.Errorf("task %s: result.kind=checker requires checker_script", t.ID)
		}
	case ResultNumerical, ResultString:
		// no extra requirement
	default:
		return fmt.Errorf("task %s: unknown result.kind %q", t.ID, t.Result.Kind)
	}
	return nil
}

// Submission is the inference backend's output for one task.
type Submission struct {
	OSPackages          []string       `json:"os_packages"`
	InterpreterPackages []string       `json:"interpreter_packages"`
	ScriptBody          string         `json:"script_body"`
	RawTranscript       string         `json:"raw_transcript,omitempty"`
	BackendMetadata     map[string]any `json:"backend_metadata,omitempty"`
}

// ExecutionResult is what the process executor returns.
type ExecutionResult struct {
	ExitCode int     `json:"exit_code"`
	Stdout   string  `json:"stdout"`
	Stderr   string  `json:"stderr"`
	Duration float64 `json:"duration_seconds"`
	TimedOut bool    `json:"timed_out"`
	Error    string  `json:"error,omitempty"`
}

// InstallSummary records what the Package Installer attempted.
type InstallSummary struct {
	Requested []string `json:"requested"`
	Installed []string `json:"installed"`
	Failed    []string `json:"failed"`
}

// TimingCheckpoints records the wall-clock timestamps (unix seconds)
// taken at each orchestrator transition.
type TimingCheckpoints struct {
	TaskStart       float64 `json:"task_start"`
	InferenceEnd    float64 `json:"inference_end"`
	WaitGateRelease float64 `json:"wait_gate_release"`
	ExecutionEnd    float64 `json:"execution_end"`
	TaskEnd         float64 `json:"task_end"`
}

// TaskResult is the final per-task record.
type TaskResult struct {
	TaskID            string            `json:"task_id"`
	Passed            bool              `json:"passed"`
	Difficulty        string            `json:"difficulty"`
	ResultKind        ResultKind        `json:"result_kind"`
	RawOutput         string            `json:"raw_output"`
	SubmissionScript  string            `json:"submission_script"`
	EvaluationDetails map[string]any    `json:"evaluation_details"`
	TimingCheckpoints TimingCheckpoints `json:"timing_checkpoints"`
	OSPackages        InstallSummary    `json:"os_packages"`
	InterpreterPkgs   InstallSummary    `json:"interpreter_packages"`
	Error             string            `json:"error,omitempty"`
	Category          FailureCategory   `json:"failure_category,omitempty"`
}
