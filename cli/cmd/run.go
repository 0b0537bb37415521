package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/erayyap/scriptbench/cli/config"
	"github.com/erayyap/scriptbench/cli/tui"
	"github.com/erayyap/scriptbench/inference"
	"github.com/erayyap/scriptbench/inference/agent"
	"github.com/erayyap/scriptbench/install"
	"github.com/erayyap/scriptbench/log"
	"github.com/erayyap/scriptbench/orchestrator"
	"github.com/erayyap/scriptbench/resultlog"
	"github.com/erayyap/scriptbench/task"
	"github.com/erayyap/scriptbench/types"
	"github.com/erayyap/scriptbench/workspace"
)

// RunCommand runs every task spec under --tasks-dir through the full
// orchestrator pipeline and writes one TaskResult per task to the
// configured run log. The run itself always exits 0 once it has
// completed and written N records, whatever mix of task pass/fail that
// is — only a setup failure that precedes the task loop changes the
// exit code.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a task corpus end to end and write a run log",
		Flags: []cli.Flag{
			ConfigFlag,
			NoColorFlag,
			&cli.StringFlag{Name: "tasks-dir", Usage: "Directory of task spec files", Required: true},
			&cli.BoolFlag{Name: "tui", Usage: "Show a live-progress view while running"},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg := config.Defaults()
	if p := c.String("config"); p != "" {
		loaded, err := config.Load(p)
		if err != nil {
			return cli.Exit(err.Error(), int(types.ExitConfigInvalid))
		}
		cfg = *loaded
	}

	tasks, err := task.LoadDir(c.String("tasks-dir"))
	if err != nil {
		return cli.Exit(err.Error(), int(types.ExitConfigInvalid))
	}

	runMeta := &types.RunMeta{RunID: fmt.Sprintf("run-%d", time.Now().Unix()), StartedAt: time.Now()}
	logger := log.NewLogger(runMeta)

	// Write the textual log into the run directory instead of stderr so
	// the run log is self-contained even when results go to a remote store.
	runDir := filepath.Join(cfg.RunLogRoot, runMeta.RunID)
	if err := os.MkdirAll(runDir, 0o755); err == nil {
		if logFile, err := os.Create(filepath.Join(runDir, "scriptbench.log")); err == nil {
			defer logFile.Close()
			logger = logger.WithOutput(logFile)
		}
	}

	sink, err := newSink(cfg, runMeta)
	if err != nil {
		return cli.Exit(err.Error(), int(types.ExitRunLogUnwritable))
	}

	backend, isAgent := buildBackend(cfg, logger)
	deps := orchestrator.Deps{
		Provisioner:                 workspace.New(cfg.TaskAssetsRoot, logger),
		Installer:                   buildInstaller(cfg, logger),
		Backend:                     backend,
		IsAgentBackend:              isAgent,
		Logger:                      logger,
		ClassificationParquetDetail: cfg.Storage.ClassificationParquetDetail,
	}

	// --tui, when given, overrides tui.enabled from the config; --no-color
	// turns the live-progress view off either way.
	showTUI := cfg.TUI.Enabled
	if c.IsSet("tui") {
		showTUI = c.Bool("tui")
	}
	if c.Bool("no-color") {
		showTUI = false
	}
	var program *tea.Program
	if showTUI {
		ids := make([]string, len(tasks))
		for i, t := range tasks {
			ids[i] = t.ID
		}
		program = tea.NewProgram(tui.NewProgressModel(ids))
		deps.Observer = func(sc orchestrator.StateChange) { program.Send(tui.StateMsg(sc)) }
		go func() { _, _ = program.Run() }()
	}

	orch := orchestrator.New(deps)
	ctx := context.Background()

	// Tasks are processed sequentially by the single orchestrator — this
	// harness never schedules tasks across cores.
	passed, failed := 0, 0
	for _, t := range tasks {
		result := orch.RunTask(ctx, t, cfg.TaskAssetsRoot)
		if err := persistResult(ctx, sink, result); err != nil {
			logger.Warn("failed to persist task result", map[string]any{"task_id": t.ID, "error": err.Error()})
		}
		if program != nil {
			program.Send(tui.ResultMsg{TaskID: t.ID, Passed: result.Passed})
		}
		if result.Passed {
			passed++
			fmt.Fprintf(c.App.Writer, "%s: PASSED\n", t.ID)
		} else {
			failed++
			if result.Error != "" {
				fmt.Fprintf(c.App.Writer, "%s: FAILED (%s)\n", t.ID, result.Error)
			} else {
				fmt.Fprintf(c.App.Writer, "%s: FAILED\n", t.ID)
			}
		}
	}

	if program != nil {
		program.Send(tui.DoneMsg{})
	}

	fmt.Fprintf(c.App.Writer, "scriptbench run %s: %d passed, %d failed, %d total\n", runMeta.RunID, passed, failed, len(tasks))
	return nil
}

// buildBackend constructs the configured inference backend (single-shot
// or the multi-turn agent loop) over a shared chat model client.
func buildBackend(cfg config.Config, logger *log.Logger) (inference.Backend, bool) {
	chatModel := inference.NewHTTPModel(cfg.Inference.Model)

	if cfg.Inference.Backend == "agent" {
		agentCfg := agent.Config{
			StepLimit:      cfg.Inference.StepLimit,
			CostLimit:      cfg.Inference.CostLimit,
			MinSteps:       cfg.Inference.MinSteps,
			CommandTimeout: cfg.Inference.CmdTimeout.Duration,
			AssetsRoot:     cfg.AgentAssetsRoot,
		}
		return agent.NewBackend(chatModel, agentCfg, logger), true
	}

	ss := inference.NewSingleShot(chatModel)
	ss.Retry = inference.RetryConfig{
		MaxAttempts: cfg.Inference.RetryAttempts,
		BaseDelay:   cfg.Inference.RetryBaseDelay.Duration,
	}
	return ss, false
}

func buildInstaller(cfg config.Config, logger *log.Logger) *install.Installer {
	var cache install.Cache
	if cfg.Install.CacheRedisAddr != "" {
		cache = install.NewRedisCache(cfg.Install.CacheRedisAddr)
	}
	return install.New(cfg.Install.PerPackageTimeout.Duration, logger, cache)
}

func newSink(cfg config.Config, runMeta *types.RunMeta) (*resultlog.Sink, error) {
	rlCfg := resultlog.Config{
		Dataset:  cfg.Storage.Dataset,
		Category: "default",
		Day:      resultlog.DeriveDay(*runMeta),
		RunID:    runMeta.RunID,
	}
	if cfg.Storage.S3Bucket != "" {
		factory, err := resultlog.NewS3Factory(resultlog.S3Config{Bucket: cfg.Storage.S3Bucket, Region: cfg.Storage.S3Region})
		if err != nil {
			return nil, err
		}
		return resultlog.NewSinkWithFactory(rlCfg, factory)
	}
	if cfg.Storage.Backend == "memory" {
		return resultlog.NewSinkWithFactory(rlCfg, lode.NewMemoryFactory())
	}
	return resultlog.NewSink(rlCfg, cfg.Storage.Path)
}

// persistResult writes the task result record and, when present, its
// script and trajectory files. The transcript key is popped out of
// EvaluationDetails first: it belongs to the trajectory file, not the
// durable result record (see orchestrator.RunTask's comment on this).
func persistResult(ctx context.Context, sink *resultlog.Sink, result *types.TaskResult) error {
	var transcript []inference.Message
	if result.EvaluationDetails != nil {
		if t, ok := result.EvaluationDetails["transcript"].([]inference.Message); ok {
			transcript = t
		}
		delete(result.EvaluationDetails, "transcript")
	}
	if err := sink.WriteResult(ctx, result); err != nil {
		return err
	}
	if result.SubmissionScript != "" {
		if err := sink.WriteScript(ctx, result.TaskID, result.SubmissionScript); err != nil {
			return err
		}
	}
	if len(transcript) > 0 {
		if err := sink.WriteTrajectory(ctx, result.TaskID, transcript); err != nil {
			return err
		}
	}
	return nil
}
