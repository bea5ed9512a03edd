package main

import (
	"flag"
	"fmt"
	"os"

	"volume-tracker/src/config"
	"volume-tracker/src/dataday"
	"volume-tracker/src/logger"
	"volume-tracker/src/market"
	"volume-tracker/src/server"
	"volume-tracker/src/storage"

	"github.com/joho/godotenv"
)

// -----------------------------------------------------------------------------

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

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

	days := dataday.NewManager(store, appLogger, cfg.Backfill.RetryWaitMinutes)
	holidays := market.NewHolidayChecker()

	srv := server.NewServer(cfg.MConfig, store, days, holidays, appLogger)
	if err := srv.Start(); err != nil {
		appLogger.Critical("Server stopped: %v", err)
	}
}
