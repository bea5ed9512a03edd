package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"volume-tracker/src/config"
	"volume-tracker/src/data_source/polygon"
	"volume-tracker/src/dataday"
	"volume-tracker/src/export"
	"volume-tracker/src/interfaces"
	"volume-tracker/src/live"
	"volume-tracker/src/logger"
	"volume-tracker/src/market"
	"volume-tracker/src/models"
	"volume-tracker/src/storage"
	"volume-tracker/src/weights"

	"github.com/joho/godotenv"
)

// -----------------------------------------------------------------------------
// Operational one-shots: queue days, manage symbols and weights, import
// exported data, record holidays, pause or resume live processing.
// -----------------------------------------------------------------------------

func usage() {
	fmt.Println(`usage: admin [-config path] <command> [options]

commands:
  queue          -days N                     queue past days for all active symbols
  add-symbol     -symbol S [-name] [-type] [-api-symbol]
  set-weights    -index I -file weights.json
  import         -file data.csv
  holidays                                   record the next year of exchange holidays
  clear-incoming
  pause | resume`)
	os.Exit(2)
}

// -----------------------------------------------------------------------------

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}

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

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "queue":
		runQueue(store, cfg, appLogger, args)
	case "add-symbol":
		runAddSymbol(store, cfg, appLogger, args)
	case "set-weights":
		runSetWeights(store, appLogger, args)
	case "import":
		runImport(store, appLogger, args)
	case "holidays":
		runHolidays(store, appLogger)
	case "clear-incoming":
		if err := store.ClearIncomingPrices(); err != nil {
			appLogger.Critical("clear-incoming failed: %v", err)
		}
		appLogger.Info("incoming prices cleared")
	case "pause":
		setPaused(store, appLogger, true)
	case "resume":
		setPaused(store, appLogger, false)
	default:
		usage()
	}
}

// -----------------------------------------------------------------------------

func runQueue(store interfaces.IStore, cfg *config.Config, log *logger.Logger, args []string) {
	fs := flag.NewFlagSet("queue", flag.ExitOnError)
	days := fs.Int("days", 5, "number of past days to queue")
	fs.Parse(args)

	manager := dataday.NewManager(store, log, cfg.Backfill.RetryWaitMinutes)
	queued, err := manager.QueueActiveSymbols(*days)
	if err != nil {
		log.Critical("queue failed: %v", err)
	}
	log.Info("queued %d days", queued)
}

// -----------------------------------------------------------------------------

func runAddSymbol(store interfaces.IStore, cfg *config.Config, log *logger.Logger, args []string) {
	fs := flag.NewFlagSet("add-symbol", flag.ExitOnError)
	symbol := fs.String("symbol", "", "ticker to add")
	name := fs.String("name", "", "display name")
	symbolType := fs.String("type", models.SymbolTypeStock, "S for stock, I for index")
	apiSymbol := fs.String("api-symbol", "", "upstream identifier, indices only")
	fs.Parse(args)

	if *symbol == "" {
		log.Critical("-symbol is required")
	}

	// Stocks are checked upstream before they enter the universe
	if *symbolType == models.SymbolTypeStock {
		source := polygon.NewPolygonSource(cfg.Provider, log)
		known, err := source.VerifySymbol(*symbol)
		if err != nil {
			log.Critical("verifying %s: %v", *symbol, err)
		}
		if !known {
			log.Critical("symbol %s is unknown upstream", *symbol)
		}
	}

	m := models.MSymbol{
		Symbol:    *symbol,
		Name:      *name,
		Type:      *symbolType,
		Active:    true,
		APISymbol: *apiSymbol,
	}
	if err := store.CreateSymbol(m); err != nil {
		log.Critical("adding %s: %v", *symbol, err)
	}
	log.Info("symbol %s saved", *symbol)
}

// -----------------------------------------------------------------------------

func runSetWeights(store interfaces.IStore, log *logger.Logger, args []string) {
	fs := flag.NewFlagSet("set-weights", flag.ExitOnError)
	index := fs.String("index", "", "index symbol")
	file := fs.String("file", "", "JSON file mapping symbols to weights")
	fs.Parse(args)

	if *index == "" || *file == "" {
		log.Critical("-index and -file are required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Critical("reading %s: %v", *file, err)
	}
	var next map[string]float64
	if err := json.Unmarshal(data, &next); err != nil {
		log.Critical("parsing %s: %v", *file, err)
	}

	if _, err := weights.Apply(store, log, *index, next); err != nil {
		log.Critical("applying weights: %v", err)
	}
}

// -----------------------------------------------------------------------------

func runImport(store interfaces.IStore, log *logger.Logger, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "CSV file of exported minutes")
	fs.Parse(args)

	if *file == "" {
		log.Critical("-file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Critical("opening %s: %v", *file, err)
	}
	defer f.Close()

	imported, err := export.ImportDay(f, store)
	if err != nil {
		log.Critical("import failed: %v", err)
	}
	log.Info("imported %d minutes", imported)
}

// -----------------------------------------------------------------------------

func runHolidays(store interfaces.IStore, log *logger.Logger) {
	checker := market.NewHolidayChecker()
	upcoming := checker.UpcomingHolidays(time.Now(), 365)

	saved, err := store.SaveMarketHolidays(upcoming)
	if err != nil {
		log.Critical("saving holidays: %v", err)
	}
	log.Info("recorded %d holidays", saved)
}

// -----------------------------------------------------------------------------

func setPaused(store interfaces.IStore, log *logger.Logger, paused bool) {
	if err := store.SetSettingBool(live.SettingLivePaused, paused); err != nil {
		log.Critical("updating pause state: %v", err)
	}
	log.Info("live processing paused=%v", paused)
}
