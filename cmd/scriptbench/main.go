// Package main provides the scriptbench CLI entrypoint.
//
// Usage:
//
//	scriptbench <command> [options]
//
// Commands:
//   - run: provision, infer, install, execute, and grade every task under
//     --tasks-dir, writing one structured result record per task.
//   - report: summarize a finished run's task results.
//   - version: print the build version.
//
// `run` always exits 0 once it has written N task records, whatever mix
// of pass/fail that is. Non-zero exit codes are reserved for run-level
// setup failures that precede the task loop.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/erayyap/scriptbench/cli/cmd"
	"github.com/erayyap/scriptbench/types"
)

// commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "scriptbench",
		Usage:          "End-to-end benchmark harness for code-generating agents",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.RunCommand(),
			cmd.ReportCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit() for run-level
// failures; per-task failures never reach here, they are recorded on
// TaskResult instead.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
