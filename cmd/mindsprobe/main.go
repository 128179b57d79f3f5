package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hamed0406/mindsprobe/internal/config"
	"github.com/hamed0406/mindsprobe/internal/logging"
	"github.com/hamed0406/mindsprobe/internal/mindsdb"
	"github.com/hamed0406/mindsprobe/internal/notify"
	"github.com/hamed0406/mindsprobe/internal/probe"
)

// errReported marks failures the runner already logged.
var errReported = errors.New("run aborted")

type cmdGlobal struct {
	cfg    config.Config
	stdout io.Writer
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(config.FromEnv(), os.Stdout)
	err := app.ExecuteContext(ctx)
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

func newApp(cfg config.Config, stdout io.Writer) *cobra.Command {
	globalCmd := &cmdGlobal{cfg: cfg, stdout: stdout}

	app := &cobra.Command{}
	app.Use = "mindsprobe"
	app.Short = "Smoke-test a MindsDB server over its HTTP API"
	app.Long = `Description:
  Smoke-test a MindsDB server over its HTTP API

  The default "run" command lists databases and tables, creates a model and a
  table, inserts and selects sample crypto rows, then reads the server status.
  Each step is printed for a human to judge; the first request that fails
  ends the run.
`
	app.SilenceUsage = true
	app.SilenceErrors = true
	app.CompletionOptions = cobra.CompletionOptions{DisableDefaultCmd: true}
	app.SetOut(stdout)

	app.PersistentFlags().AddFlagSet(globalCmd.flags())
	app.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("timeout") {
			globalCmd.cfg = globalCmd.cfg.WithTimeout(globalCmd.cfg.Timeout)
		}
	}

	runCmd := cmdRun{global: globalCmd}
	run := runCmd.Command()
	app.AddCommand(run)

	queryCmd := cmdQuery{global: globalCmd}
	app.AddCommand(queryCmd.Command())

	statusCmd := cmdStatus{global: globalCmd}
	app.AddCommand(statusCmd.Command())

	initAgentsCmd := cmdInitAgents{global: globalCmd}
	app.AddCommand(initAgentsCmd.Command())

	// No sub-command means "run".
	app.RunE = run.RunE
	app.Flags().AddFlagSet(run.Flags())

	return app
}

// flags are shared by every command and default to the environment.
func (g *cmdGlobal) flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("global", pflag.ContinueOnError)
	fs.StringVar(&g.cfg.BaseURL, "url", g.cfg.BaseURL, "MindsDB base URL (MINDSDB_URL)")
	fs.StringVar(&g.cfg.Token, "token", g.cfg.Token, "Bearer token (MINDSDB_TOKEN)")
	fs.DurationVar(&g.cfg.Timeout, "timeout", g.cfg.Timeout, "Per-request timeout, 0 for none (PROBE_TIMEOUT_MS)")
	fs.StringVar(&g.cfg.LogDir, "log-dir", g.cfg.LogDir, "Directory for rotated JSON logs (LOG_DIR)")
	fs.StringVar(&g.cfg.LogLevel, "log-level", g.cfg.LogLevel, "Log level (LOG_LEVEL)")
	return fs
}

// setup validates the configuration and builds the logger and client.
func (g *cmdGlobal) setup() (*zap.Logger, *mindsdb.Client, error) {
	if err := g.cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := logging.NewLoggerTo(g.stdout, g.cfg.LogDir, g.cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return logger, mindsdb.NewClient(g.cfg.BaseURL, g.cfg.Token, g.cfg.Timeout), nil
}

// execute runs steps and posts the summary to any configured notifier.
func (g *cmdGlobal) execute(ctx context.Context, steps []probe.Step, nextSteps []string) error {
	logger, client, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("probe_start", zap.String("url", g.cfg.BaseURL), zap.Int("steps", len(steps)))

	runner := probe.NewRunner(logger, client, steps...)
	runner.NextSteps = nextSteps
	rep, runErr := runner.Run(ctx)

	if n := notify.Enabled(notify.NewSlack(g.cfg.SlackWebhook)); len(n) > 0 {
		title, text := rep.Summary()
		if err := n.Send(context.WithoutCancel(ctx), title, text); err != nil {
			// Kept off the console: an aborted run prints one error line.
			logger.Named(logging.FileOnly).Warn("notify_failed", zap.Error(err))
		}
	}

	if runErr != nil {
		return errReported
	}
	return nil
}
