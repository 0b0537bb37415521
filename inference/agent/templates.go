package agent

import (
	"strings"
	"text/template"
)

// Templates render the agent loop's message kinds: the system prelude,
// the per-task instance prompt, and the per-step observation, format-
// error, not-yet, and timeout follow-ups. Template variables are every
// public field of Config, plus per-task extras (description, expected
// result, workspace paths, pre-seeded asset list, current/remaining
// steps, min-steps count) assembled by the caller into a map.
var (
	systemTemplate = template.Must(template.New("system").Parse(
		`You are an autonomous coding agent working inside a sandboxed shell.
You solve the task below by issuing exactly one shell command per turn,
fenced in a single {{.Fence}}bash{{.Fence}} block, and reading its output.

When you are completely finished, run a command whose first line of
output is one of: MINI_SWE_AGENT_FINAL_OUTPUT, COMPLETE_TASK_AND_SUBMIT_FINAL_OUTPUT, or END,
followed by the workspace-relative path to the script file that solves the task.

Step budget: {{.StepLimit}} (0 = unlimited). Cost budget: {{.CostLimit}} (0 = unlimited).
{{if .MinSteps}}You must take at least {{.MinSteps}} steps before submitting.{{end}}`))

	instanceTemplate = template.Must(template.New("instance").Parse(
		`TASK DESCRIPTION:
{{.Description}}

DIFFICULTY: {{.Difficulty}}
EXPECTED RESULT: {{.ResultKind}}
WORKSPACE ROOT: {{.WorkspaceRoot}}
ISOLATED INTERPRETER: {{.VenvPath}}
{{if .AgentAssets}}PRE-SEEDED ASSETS: {{range .AgentAssets}}{{.}} {{end}}{{end}}

Begin by exploring the workspace, then produce your solution script.`))

	actionObservationTemplate = template.Must(template.New("obs").Parse(
		`OUTPUT (exit code {{.ExitCode}}{{if .TimedOut}}, timed out{{end}}):
{{.Output}}

Step {{.Step}} of {{.StepLimit}} (remaining: {{.Remaining}}).`))

	formatErrorTemplate = template.Must(template.New("format_error").Parse(
		`Your last message did not contain exactly one fenced bash code block ({{.BlockCount}} found).
Respond again with exactly one {{.Fence}}bash{{.Fence}} block containing the single next command to run.`))

	notYetTemplate = template.Must(template.New("not_yet").Parse(
		`You attempted to submit at step {{.Step}}, but the minimum step count is {{.MinSteps}}.
Continue working; you may submit again once you have reached the minimum.`))

	timeoutTemplate = template.Must(template.New("timeout").Parse(
		`Command timed out after {{.TimeoutSeconds}}s with no completion. Partial output, if any:
{{.Output}}

Try a different approach or a shorter-running command.`))
)

func render(tpl *template.Template, vars map[string]any) string {
	var sb strings.Builder
	// A template execution error here means a programmer error in one of
	// the fixed templates above, not task input; rendering into a string
	// builder cannot itself fail for these templates' data shapes.
	_ = tpl.Execute(&sb, vars)
	return sb.String()
}
