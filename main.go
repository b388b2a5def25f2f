package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"benchscope/config"
	"benchscope/core/service/pipeline"
	"benchscope/internal/bootstrap"
	"benchscope/pkg/logger"
)

var once bool

func main() {
	logger.Init(logger.Config{Level: logger.LevelInfo, Service: "benchscope"})

	rootCmd := &cobra.Command{
		Use:   "benchscope",
		Short: "Discover, score, and surface new AI/agent benchmarks",
		RunE:  run,
	}
	rootCmd.Flags().BoolVar(&once, "once", false, "run a single collection pass and exit, instead of looping on the configured interval")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(logger.Config{Level: logger.ParseLevel(cfg.LogLevel), Service: "benchscope"})

	deps, cleanup, err := bootstrap.NewDependencies(cfg)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer cleanup()

	if once {
		runOnce(deps)
		return nil
	}

	runLoop(cfg, deps)
	return nil
}

func runOnce(deps *bootstrap.Dependencies) {
	result := deps.Orchestrator.Run(context.Background())
	logRunResult(result)
}

func runLoop(cfg *config.Config, deps *bootstrap.Dependencies) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	interval := time.Duration(cfg.RunIntervalMin) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Starting benchscope, run interval %v", interval)
	runOnce(deps)

	for {
		select {
		case <-ticker.C:
			runOnce(deps)
		case <-sigChan:
			logger.Info("Shutting down")
			return
		}
	}
}

func logRunResult(result pipeline.RunResult) {
	log := logger.WithDuration(result.Duration()).
		WithField("collected", result.Collected.Output).
		WithField("scored", result.Scored.Output).
		WithField("priority_filtered", result.PriorityFiltered.Output)
	if result.PersistErr != nil {
		log = log.WithField("persist_err", result.PersistErr.Error())
	}
	if result.NotifyErr != nil {
		log = log.WithField("notify_err", result.NotifyErr.Error())
	}
	log.Info("pipeline run complete")
}
