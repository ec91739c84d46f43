// Package main is the CLI entry point for cardgate.
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
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/card_gate/internal/config"
	"github.com/eliteGoblin/focusd/card_gate/internal/infra"
	"github.com/eliteGoblin/focusd/card_gate/internal/ui"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

// exitError carries a process exit code. Its message has already been
// shown to the operator.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cardgate [-d] [-<minutes>] [-u]",
	Short: "Block distracting sites until you finish your Anki reviews",
	Long: `cardgate blocks distracting websites through the hosts file and
unblocks them for a reward period once enough Anki cards have been
reviewed. Sites are blocked again when the reward runs out.

Editing /etc/hosts requires root.`,
	Args:               cobra.ArbitraryArgs,
	DisableFlagParsing: true,
	SilenceErrors:      true,
	SilenceUsage:       true,
	RunE:               runRoot,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show blocked hosts and the running session",
	Long:  `Shows the config in use, which managed hosts are currently redirected, and the PID of a running session.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Args:  cobra.NoArgs,
	Run:   runVersion,
}

var jsonOutput bool

func init() {
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func runRoot(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	execMode := infra.DetectExecMode()

	cfg, err := setupConfig(out, execMode)
	if err != nil {
		return err
	}

	logger := createLogger(cfg.LogFile)
	defer func() { _ = logger.Sync() }()

	console := ui.NewConsole(out, cfg.DefaultRewardMinutes)
	a := newApp(cfg, execMode, console, logger)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	return dispatch(ctx, args, cfg.DefaultRewardMinutes, console, a)
}

// dispatch runs what args select. Invalid options exit 2 with no side effects.
func dispatch(ctx context.Context, args []string, defaultMinutes int, console *ui.Console, r runner) error {
	decision := ParseArgs(args, defaultMinutes)

	switch decision.Action {
	case ActionUnblock:
		return r.Unblock(ctx)
	case ActionSession:
		return r.Session(ctx, decision.Minutes)
	case ActionInvalid:
		console.InvalidOption(decision.Arg)
		return &exitError{code: 2}
	default:
		console.Usage()
		return nil
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	execMode := infra.DetectExecMode()

	cfg, err := setupConfig(out, execMode)
	if err != nil {
		return err
	}

	console := ui.NewConsole(out, cfg.DefaultRewardMinutes)
	return newApp(cfg, execMode, console, zap.NewNop()).Status(execMode)
}

func runVersion(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	if jsonOutput {
		fmt.Fprintf(out, `{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Fprintf(out, "cardgate %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

// setupConfig loads the config, writing defaults on first run.
func setupConfig(out io.Writer, execMode *infra.ExecModeConfig) (*config.Config, error) {
	cfg, created, err := config.Setup(execMode.ConfigDir)
	if created {
		ui.NewConsole(out, 0).FirstRun(config.ResolvePath(execMode.ConfigDir))
	}
	if err != nil {
		ui.NewConsole(out, 0).Error(err)
		return nil, &exitError{code: 1, err: err}
	}
	return cfg, nil
}

// createLogger writes JSON logs to path. Logs never go to the terminal,
// which carries the progress line.
func createLogger(path string) *zap.Logger {
	zapConfig := zap.NewProductionConfig()
	zapConfig.OutputPaths = []string{path}
	zapConfig.ErrorOutputPaths = []string{path}
	zapConfig.EncoderConfig.TimeKey = "time"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapConfig.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
