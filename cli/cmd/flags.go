// Package cmd provides the urfave/cli/v2 command surface for the
// scriptbench binary: run, report and version.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags across both commands.
var (
	// ConfigFlag points at the harness-wide YAML config (cli/config).
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to scriptbench.yaml",
	}

	// NoColorFlag disables colored/TUI output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}
)
