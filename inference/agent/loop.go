package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/erayyap/scriptbench/inference"
	"github.com/erayyap/scriptbench/log"
	"github.com/erayyap/scriptbench/types"
)

// sentinels are the completion tokens the loop recognizes, matched
// case-insensitively against the first non-blank line of a command's
// output.
var sentinels = []string{
	"MINI_SWE_AGENT_FINAL_OUTPUT",
	"COMPLETE_TASK_AND_SUBMIT_FINAL_OUTPUT",
	"END",
}

// Config is the agent loop's budget and behaviour configuration. Every
// public field is a template variable for the prelude.
type Config struct {
	StepLimit      int
	CostLimit      float64
	MinSteps       int
	CommandTimeout time.Duration
	AssetsRoot     string
}

// Status is the terminal status of one agent run, mapped by the caller
// onto the orchestrator's error taxonomy.
type Status string

const (
	StatusSubmitted      Status = "submitted"
	StatusLimitsExceeded Status = "limits-exceeded"
	StatusFormatError    Status = "format-error"
	StatusInvalidPath    Status = "invalid-path"
)

// Result is what a completed agent loop produces.
type Result struct {
	Status     Status
	ScriptBody string
	Transcript []inference.Message
	Steps      int
	Metadata   map[string]any
}

// Loop implements the multi-turn agent backend.
type Loop struct {
	Model  inference.Model
	Config Config
	Logger *log.Logger
}

// fencedShellBlock matches a single fenced code block tagged bash/sh/shell.
var fencedShellBlock = regexp.MustCompile("(?is)```(?:bash|sh|shell)\\s*\\n(.*?)\\n```")

// Run drives the loop end to end for one task: seeds the transcript,
// iterates query/parse/execute/observe, and on a submitted payload
// resolves it to a script file inside the sandbox.
func (l *Loop) Run(ctx context.Context, task *types.Task, ws *types.Workspace) (*Result, error) {
	sandbox, err := NewSandbox(ctx, task.ID, l.Config.CommandTimeout, l.Logger)
	if err != nil {
		return nil, fmt.Errorf("agent loop: %w", err)
	}
	defer sandbox.Teardown()

	SeedAssets(sandbox, l.Config.AssetsRoot, task.AgentEnv, l.Logger.ForTask(task.ID))

	before := sandbox.SnapshotInterpreterPackages(ctx)

	transcript := l.prelude(task, ws, sandbox)

	steps := 0
	formatErrors := 0
	var cost float64

	for {
		// Limit check before each turn.
		if (l.Config.StepLimit > 0 && steps >= l.Config.StepLimit) || (l.Config.CostLimit > 0 && cost >= l.Config.CostLimit) {
			meta := agentMetadata(sandbox, steps, cost)
			meta["format_errors"] = formatErrors
			return &Result{Status: terminalStatus(steps, formatErrors), Transcript: transcript, Steps: steps, Metadata: meta}, nil
		}

		// Query the model, append assistant message.
		reply, err := l.Model.Query(ctx, transcript)
		if err != nil {
			return nil, fmt.Errorf("agent loop: model query failed at step %d: %w", steps, err)
		}
		cost += reply.Cost
		transcript = append(transcript, inference.Message{Role: "assistant", Content: reply.Content})

		// The reply must contain exactly one shell block. Zero or many is
		// a format error: inject a correction message without advancing the
		// step counter, so persistent format errors are bounded only by the
		// cost limit.
		blocks := fencedShellBlock.FindAllStringSubmatch(reply.Content, -1)
		if len(blocks) != 1 {
			formatErrors++
			correction := render(formatErrorTemplate, map[string]any{"BlockCount": len(blocks), "Fence": "```"})
			transcript = append(transcript, inference.Message{Role: "user", Content: correction})
			continue
		}
		command := strings.TrimSpace(blocks[0][1])

		// Execute inside the sandbox.
		res := sandbox.Exec(ctx, command)
		steps++

		if res.TimedOut {
			msg := render(timeoutTemplate, map[string]any{
				"TimeoutSeconds": l.Config.CommandTimeout.Seconds(),
				"Output":         firstNonEmpty(res.Stdout, res.Stderr),
			})
			transcript = append(transcript, inference.Message{Role: "user", Content: msg})
			continue
		}

		output := res.Stdout
		if output == "" {
			output = res.Stderr
		}

		// Sentinel check against the first non-blank line.
		if _, rest, ok := splitSentinel(output); ok {
			if steps < l.Config.MinSteps {
				msg := render(notYetTemplate, map[string]any{"Step": steps, "MinSteps": l.Config.MinSteps})
				transcript = append(transcript, inference.Message{Role: "user", Content: msg})
				continue
			}
			return l.finish(ctx, task, ws, sandbox, transcript, steps, cost, before, strings.TrimSpace(rest))
		}

		// Render the observation and continue.
		obs := render(actionObservationTemplate, map[string]any{
			"ExitCode":  res.ExitCode,
			"TimedOut":  res.TimedOut,
			"Output":    output,
			"Step":      steps,
			"StepLimit": l.Config.StepLimit,
			"Remaining": remaining(l.Config.StepLimit, steps),
		})
		transcript = append(transcript, inference.Message{Role: "user", Content: obs})
	}
}

func (l *Loop) prelude(task *types.Task, ws *types.Workspace, sandbox *Sandbox) []inference.Message {
	sys := render(systemTemplate, map[string]any{
		"Fence":          "```",
		"StepLimit":      l.Config.StepLimit,
		"CostLimit":      l.Config.CostLimit,
		"MinSteps":       l.Config.MinSteps,
		"CommandTimeout": l.Config.CommandTimeout,
		"AssetsRoot":     l.Config.AssetsRoot,
	})
	assets := make([]string, 0, len(task.AgentEnv))
	for _, a := range task.AgentEnv {
		assets = append(assets, a.Path)
	}
	instance := render(instanceTemplate, map[string]any{
		"Description":   task.Description,
		"Difficulty":    task.Difficulty,
		"ResultKind":    string(task.Result.Kind),
		"WorkspaceRoot": sandbox.Root,
		"VenvPath":      sandbox.VenvPath,
		"AgentAssets":   assets,
	})
	return []inference.Message{
		{Role: "system", Content: sys},
		{Role: "user", Content: instance},
	}
}

// finish resolves the submitted payload to a script file: it must be a
// workspace-relative path, not absolute, not escaping the sandbox.
func (l *Loop) finish(ctx context.Context, task *types.Task, ws *types.Workspace, sandbox *Sandbox, transcript []inference.Message, steps int, cost float64, before map[string]struct{}, payload string) (*Result, error) {
	if payload == "" || filepath.IsAbs(payload) {
		return &Result{Status: StatusInvalidPath, Transcript: transcript, Steps: steps, Metadata: agentMetadata(sandbox, steps, cost)}, nil
	}

	resolvedRoot, err := filepath.Abs(sandbox.Root)
	if err != nil {
		return &Result{Status: StatusInvalidPath, Transcript: transcript, Steps: steps, Metadata: agentMetadata(sandbox, steps, cost)}, nil
	}
	candidate := filepath.Join(sandbox.Root, payload)
	resolvedCandidate, err := filepath.Abs(candidate)
	if err != nil || !withinRoot(resolvedRoot, resolvedCandidate) {
		return &Result{Status: StatusInvalidPath, Transcript: transcript, Steps: steps, Metadata: agentMetadata(sandbox, steps, cost)}, nil
	}

	scriptBody, err := readScriptFile(resolvedCandidate)
	if err != nil {
		return &Result{Status: StatusInvalidPath, Transcript: transcript, Steps: steps, Metadata: agentMetadata(sandbox, steps, cost)}, nil
	}

	after := sandbox.SnapshotInterpreterPackages(ctx)
	delta := InterpreterPackagesDelta(before, after)
	sort.Strings(delta)

	meta := agentMetadata(sandbox, steps, cost)
	meta["interpreter_packages"] = delta
	meta["os_packages"] = sandbox.ObservedOSPackages()

	return &Result{
		Status:     StatusSubmitted,
		ScriptBody: scriptBody,
		Transcript: transcript,
		Steps:      steps,
		Metadata:   meta,
	}, nil
}

func agentMetadata(sandbox *Sandbox, steps int, cost float64) map[string]any {
	return map[string]any{
		"backend":     "agent",
		"steps":       steps,
		"cost":        cost,
		"sandbox_dir": sandbox.Root,
	}
}

func readScriptFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// terminalStatus classifies a budget exhaustion: an agent that burned
// its whole budget on malformed turns without ever executing a command
// failed on format, not on limits.
func terminalStatus(steps, formatErrors int) Status {
	if steps == 0 && formatErrors > 0 {
		return StatusFormatError
	}
	return StatusLimitsExceeded
}

func remaining(limit, steps int) int {
	if limit <= 0 {
		return -1
	}
	r := limit - steps
	if r < 0 {
		return 0
	}
	return r
}

// splitSentinel reports whether the first non-blank line of output
// matches a completion sentinel (case-insensitive, whitespace-trimmed),
// returning that line and everything after it. Leading blank lines are
// skipped before taking "the first line".
func splitSentinel(output string) (firstLine, rest string, ok bool) {
	trimmed := strings.TrimLeft(output, " \t\r\n")
	lines := strings.SplitN(trimmed, "\n", 2)
	first := strings.TrimSpace(lines[0])
	for _, s := range sentinels {
		if strings.EqualFold(first, s) {
			if len(lines) > 1 {
				rest = lines[1]
			}
			return first, rest, true
		}
	}
	return "", "", false
}

