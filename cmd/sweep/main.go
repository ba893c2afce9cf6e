package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spachava753/sweep/internal/config"
	"github.com/spachava753/sweep/internal/logging"
	"github.com/spachava753/sweep/internal/models"
	"github.com/spachava753/sweep/internal/scheduler"
)

var logLevel string

func main() {
	root := &cobra.Command{
		Use:           "sweep",
		Short:         "Time-budgeted hyperparameter sweeps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd(), validateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <experiment.yaml>",
		Short: "Run an experiment until its training budget elapses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadExperimentConfig(args[0])
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

			ctx, cancel := context.WithCancel(cmd.Context())

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			defer func() {
				signal.Stop(sigChan)
				cancel()
			}()

			go func() {
				sig := <-sigChan
				logger.Info("interrupt received, shutting down gracefully...", "signal", sig)
				cancel()
			}()

			report, err := scheduler.RunExperiment(ctx, cfg, logger)
			if errors.Is(err, models.ErrTimeout) {
				printSummary(report)
				return err
			}
			if err != nil {
				return err
			}

			printSummary(report)
			if report.Cancelled {
				os.Exit(1)
			}
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <experiment.yaml>",
		Short: "Validate an experiment config and its search space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadExperimentConfig(args[0])
			if err != nil {
				return err
			}
			if _, err := config.LoadSearchSpace(os.DirFS(filepath.Dir(cfg.SpacePath)), filepath.Base(cfg.SpacePath)); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func printSummary(report *models.ExperimentReport) {
	if report == nil {
		return
	}

	fmt.Printf("\nRun: %s\n", report.RunID)
	if report.ExperimentName != "" {
		fmt.Printf("Experiment: %s\n", report.ExperimentName)
	}
	fmt.Printf("Completed trials: %d\n", report.CompletedTrials)
	if report.BestTrial != nil {
		fmt.Printf("Best trial: %d\n", report.BestTrial.TrialID)
		fmt.Printf("Best %s: %.6g\n", report.MetricName, report.BestTrial.Metric)
		fmt.Printf("Best params: %v\n", report.BestTrial.Params)
	}
	if report.CompletedTrials > 0 {
		fmt.Printf("Mean %s: %.6g\n", report.MetricName, report.MeanMetric)
		fmt.Printf("Trial runtime p50/p95/max: %dms/%dms/%dms\n",
			report.RuntimeP50Millis, report.RuntimeP95Millis, report.RuntimeMaxMillis)
	}
	if report.TotalCost > 0 {
		fmt.Printf("Total cost: $%.4f\n", report.TotalCost)
	}
	fmt.Printf("Duration: %.2fs\n", report.TotalDurationSec)
	if report.Cancelled {
		fmt.Println("Cancelled: yes")
	}
}
