package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/dot-spend/internal"
)

var (
	recurringSpec string
	ratesSpec     string
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run scheduled ledger jobs in the foreground",
	Long: `Start a long running worker that writes due recurring expenses and refreshes exchange
rates on a cron schedule, for machines where spend is not run interactively every day.`,
	Example: `  spend worker
  spend worker --recurring "0 6 * * *" --rates "@every 12h"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), startWorker)
	},
}

func startWorker(deps *Dependencies) error {
	logger := deps.Logger
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := cron.New(cron.WithLogger(cronLogger{deps}), cron.WithChain(cron.SkipIfStillRunning(cronLogger{deps})))

	if _, err := c.AddFunc(recurringSpec, func() {
		generated, err := deps.Recurring.Generate(ctx, time.Now())
		if err != nil {
			logger.Error("recurring job failed", "error", err)
			return
		}
		logger.Info("recurring job finished", "generated", len(generated))
	}); err != nil {
		return invalidSchedule("recurring", recurringSpec, err)
	}

	if _, err := c.AddFunc(ratesSpec, func() {
		if !deps.needsRates(ctx) {
			return
		}
		deps.Converter.EnsureFresh(ctx, time.Now())
	}); err != nil {
		return invalidSchedule("rates", ratesSpec, err)
	}

	logger.Info("starting worker", "recurring", recurringSpec, "rates", ratesSpec, "backend", deps.Backend.Kind)
	c.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("worker is running. Press Ctrl+C to stop.")
	sig := <-sigChan
	logger.Info("received signal, shutting down worker", "signal", sig)
	cancel()

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
		logger.Info("worker shutdown complete")
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timeout reached, forcing exit")
	}
	return nil
}

func invalidSchedule(flag, spec string, err error) error {
	return internal.NewValidationFieldError(flag, fmt.Sprintf("invalid --%s schedule %q: %v", flag, spec, err), internal.ErrCodeInvalidConfig)
}

// cronLogger routes cron's own logging into slog.
type cronLogger struct {
	deps *Dependencies
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.deps.Logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.deps.Logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

func init() {
	workerCmd.Flags().StringVar(&recurringSpec, "recurring", "@hourly", "cron schedule for writing due recurring expenses")
	workerCmd.Flags().StringVar(&ratesSpec, "rates", "@every 6h", "cron schedule for refreshing exchange rates")

	rootCmd.AddCommand(workerCmd)
}
