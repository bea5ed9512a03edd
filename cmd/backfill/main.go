package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"volume-tracker/src/aggregate"
	"volume-tracker/src/backfill"
	"volume-tracker/src/config"
	"volume-tracker/src/data_source/polygon"
	"volume-tracker/src/dataday"
	"volume-tracker/src/logger"
	"volume-tracker/src/storage"

	"github.com/joho/godotenv"
)

// -----------------------------------------------------------------------------

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	queueDays := flag.Int("queue", 0, "queue this many past days for all active symbols before draining")
	flag.Parse()

	// Secrets come from the environment; .env is a dev convenience
	_ = godotenv.Load()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	store, err := storage.NewStore(cfg.Storage, appLogger)
	if err != nil {
		appLogger.Critical("Failed to init storage: %v", err)
	}
	if err := store.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate storage: %v", err)
	}
	defer store.Close()

	source := polygon.NewPolygonSource(cfg.Provider, appLogger)
	agg := aggregate.NewAggregator(store, source, appLogger, cfg.Backfill.IndexWorkers)
	days := dataday.NewManager(store, appLogger, cfg.Backfill.RetryWaitMinutes)

	if *queueDays > 0 {
		queued, err := days.QueueActiveSymbols(*queueDays)
		if err != nil {
			appLogger.Critical("Failed to queue days: %v", err)
		}
		appLogger.Info("queued %d days", queued)
	}

	runner := backfill.NewRunner(store, agg, days, appLogger, cfg.Backfill)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Critical("Backfill stopped: %v", err)
	}
	appLogger.Info("Backfill shut down")
}
