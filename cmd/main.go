package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/showsync/internal/shared"
)

// exitTempFail reports a run skipped because another sync holds the queue (EX_TEMPFAIL).
const exitTempFail = 75

func init() {
	// -v belongs to --verbose; the version flag keeps -V.
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := newApp(runner)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.Run(ctx, os.Args)
	stop()

	if err := runner.Close(); err != nil {
		logger.Warn("failed to close database", "error", err)
	}
	os.Exit(exitCode(logger, err))
}

// newApp builds the root command around runner.
func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:    "showsync",
		Usage:   "Export locally queued watch history, watchlist and hidden items to Trakt",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   runner.Before,
		Commands: runner.register(),
	}
}

// exitCode logs err according to its class and returns the process exit status.
func exitCode(logger *log.Logger, err error) int {
	var running *shared.AlreadyRunningError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &running):
		logger.Warn("sync already running, skipped", "run_id", running.RunID)
		return exitTempFail
	case errors.Is(err, shared.ErrNotImplemented):
		logger.Warn("not implemented")
		return 0
	case errors.Is(err, context.Canceled):
		logger.Warn("interrupted")
		return 130
	case errors.Is(err, shared.ErrAuthorization):
		logger.Error("needs re-login, run 'showsync auth login'", "error", err)
		return 2
	case errors.Is(err, shared.ErrNetwork), errors.Is(err, shared.ErrRemoteAPI):
		logger.Error("sync failed", "error", err)
		return 1
	default:
		logger.Errorf("application error: %v", err)
		return 1
	}
}
