package cli

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tapewire/fixconf/internal/config"
	"github.com/tapewire/fixconf/internal/expand"
	"github.com/tapewire/fixconf/internal/report"
	"github.com/tapewire/fixconf/internal/runner"
	"github.com/tapewire/fixconf/internal/suite"
	"github.com/tapewire/fixconf/internal/transport"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config   string
	Script   string
	LogFile  string
	Output   string
	Database string
	Timeout  time.Duration
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <suite-file>",
		Short: "Execute a test suite against the counterparty",
		Long: `Execute every test case of a suite: expand the rows into concrete
messages, send each through the configured send script, poll the
counterparty log for responses and validate the expected tags.

Suites may be CSV (the original tabular layout) or YAML.

Exit codes:
  0 - All cases passed
  1 - One or more cases failed
  2 - Command error (bad suite, bad config, unusable counterparty)

Examples:
  fixconf run ./suites/order-entry.yaml
  fixconf run ./cases.csv --config fixconf.toml --timeout 10s
  fixconf run ./cases.csv --db runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to TOML config file")
	cmd.Flags().StringVar(&opts.Script, "script", "", "send script (overrides config)")
	cmd.Flags().StringVar(&opts.LogFile, "counterparty-log", "", "counterparty log file (overrides config)")
	cmd.Flags().StringVar(&opts.Output, "output", "", "report output directory (overrides config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite run log (overrides config)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "receive timeout (overrides config)")

	return cmd
}

func runSuite(opts *RunOptions, suitePath string, cmd *cobra.Command) error {
	cfg, err := loadRunConfig(opts, cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	s, err := suite.Load(suitePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load suite", err)
	}
	slog.Info("suite loaded", "suite", s.Name, "rows", len(s.Cases))

	runID := report.NewRunID(time.Now())
	csvSink := &report.CSVSink{Dir: cfg.OutputDir}
	sinks := []report.Sink{csvSink}
	if cfg.Database != "" {
		store, err := report.OpenStore(cfg.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open run log", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}
	agg := report.NewAggregator(runID, s.Name, sinks...)

	adapter := transport.NewScriptAdapter(cfg.SendScript, cfg.CounterpartyLog, cfg.PollInterval.Duration)
	expander := expand.New(expand.SystemClock{}, expand.UUIDSource{})
	r := runner.New(expander, adapter, agg, runner.Options{
		Syntax:         cfg.Syntax(),
		ReceiveTimeout: cfg.ReceiveTimeout.Duration,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sum, runErr := r.Run(ctx, s)

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		if err := formatter.Success(sum); err != nil {
			return err
		}
	} else {
		out := report.Render(sum, report.DefaultStyles())
		out += fmt.Sprintf("results: %s\nsummary: %s\n", csvSink.ResultPath, csvSink.SummaryPath)
		fmt.Fprint(cmd.OutOrStdout(), out)
	}

	if runErr != nil {
		return WrapExitError(ExitCommandError, "run aborted", runErr)
	}
	if sum.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d cases failed", sum.Failed, sum.Total))
	}
	return nil
}

// loadRunConfig loads the TOML config and applies explicit flag overrides.
func loadRunConfig(opts *RunOptions, cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("script") {
		cfg.SendScript = opts.Script
	}
	if cmd.Flags().Changed("counterparty-log") {
		cfg.CounterpartyLog = opts.LogFile
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = opts.Output
	}
	if cmd.Flags().Changed("db") {
		cfg.Database = opts.Database
	}
	if cmd.Flags().Changed("timeout") {
		cfg.ReceiveTimeout = config.Duration{Duration: opts.Timeout}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
