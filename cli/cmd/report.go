package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/erayyap/scriptbench/cli/config"
	"github.com/erayyap/scriptbench/resultlog"
)

// exitReportFailed is a run-level failure reading the run log back, not
// a per-task outcome: process exit codes are reserved for setup/run-level
// failures only.
const exitReportFailed = 1

// ReportCommand reads a finished run's Lode-backed records and renders a
// pass/fail summary table.
func ReportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Summarize a finished run's task results",
		Flags: []cli.Flag{
			ConfigFlag,
			&cli.StringFlag{Name: "run-id", Usage: "Run ID to summarize", Required: true},
		},
		Action: reportAction,
	}
}

func reportAction(c *cli.Context) error {
	cfg := config.Defaults()
	if p := c.String("config"); p != "" {
		loaded, err := config.Load(p)
		if err != nil {
			return cli.Exit(err.Error(), exitReportFailed)
		}
		cfg = *loaded
	}

	// Only the filesystem path is wired for `report` today: the run log's
	// usual working default. An S3-backed run can be reported on the same
	// way via resultlog.NewS3Factory, the run command's own path, if a
	// future report needs it.
	factory := lode.NewFSFactory(cfg.Storage.Path)

	ds, err := resultlog.NewReadDataset(resultlog.Config{Dataset: cfg.Storage.Dataset}, factory)
	if err != nil {
		return cli.Exit(err.Error(), exitReportFailed)
	}

	runID := c.String("run-id")
	records, err := resultlog.QueryRun(context.Background(), ds, runID)
	if err != nil {
		return cli.Exit(fmt.Sprintf("report: %v", err), exitReportFailed)
	}

	sort.Slice(records, func(i, j int) bool {
		return toStr(records[i]["task_id"]) < toStr(records[j]["task_id"])
	})

	passed, failed := 0, 0
	fmt.Fprintf(c.App.Writer, "%-28s %-8s %-10s %s\n", "TASK", "RESULT", "DIFFICULTY", "ERROR")
	for _, r := range records {
		status := "FAIL"
		if b, _ := r["passed"].(bool); b {
			status = "PASS"
			passed++
		} else {
			failed++
		}
		fmt.Fprintf(c.App.Writer, "%-28s %-8s %-10s %s\n",
			toStr(r["task_id"]), status, toStr(r["difficulty"]), toStr(r["error"]))
	}
	fmt.Fprintf(c.App.Writer, "\nrun %s: %d passed, %d failed, %d total\n", runID, passed, failed, len(records))
	return nil
}

func toStr(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
