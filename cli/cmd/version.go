package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/erayyap/scriptbench/types"
)

// VersionCommand reports the canonical project version. It never
// contacts a workspace, backend, or the run log.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			fmt.Fprintf(c.App.Writer, "scriptbench %s (%s)\n", types.Version, commit)
			return nil
		},
	}
}
