package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"volume-tracker/src/aggregate"
	"volume-tracker/src/config"
	"volume-tracker/src/data_source/polygon"
	"volume-tracker/src/dataday"
	"volume-tracker/src/live"
	"volume-tracker/src/logger"
	"volume-tracker/src/market"
	"volume-tracker/src/notify"
	"volume-tracker/src/storage"

	"github.com/joho/godotenv"
)

// -----------------------------------------------------------------------------

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	dayFlag := flag.String("day", "", "process this day (YYYY-MM-DD) once and exit")
	limit := flag.Int("limit", 0, "cap missing minutes filled per symbol per pass (0 = all)")
	workers := flag.Int("workers", 0, "override the worker pool size")
	skipIndices := flag.Bool("skip-indices", false, "do not process index symbols")
	interval := flag.Duration("interval", 5*time.Second, "polling interval")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Live.Workers = *workers
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
	notifier := notify.NewClient(cfg.Push, appLogger)

	runner := live.NewRunner(store, agg, days, notifier, appLogger, cfg.Live)

	// One-shot mode for a specific day
	if *dayFlag != "" {
		day, err := time.ParseInLocation("2006-01-02", *dayFlag, market.Location())
		if err != nil {
			appLogger.Critical("Invalid -day: %v", err)
		}
		if err := runner.RunOnce(day, *limit, *skipIndices); err != nil {
			appLogger.Critical("Live pass failed: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx, *interval); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Critical("Live stopped: %v", err)
	}
	appLogger.Info("Live shut down")
}
