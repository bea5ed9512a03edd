package backfill

import (
	"context"
	"errors"
	"sync"
	"time"

	"volume-tracker/src/aggregate"
	"volume-tracker/src/calculate"
	"volume-tracker/src/dataday"
	"volume-tracker/src/helpers"
	"volume-tracker/src/interfaces"
	"volume-tracker/src/logger"
	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// Runner drains the PENDING day queue. Each pass processes every eligible
// stock day, then every eligible index day, with a bounded worker pool. A
// failed day is timestamped and retried after the configured wait; a
// finished day is committed atomically. An idle pass sleeps before polling
// again.
// -----------------------------------------------------------------------------

type Runner struct {
	Store      interfaces.IStore
	Aggregator *aggregate.Aggregator
	Days       *dataday.Manager
	Log        *logger.Logger
	Config     models.MBackfillConfig
}

// -----------------------------------------------------------------------------

func NewRunner(store interfaces.IStore, agg *aggregate.Aggregator, days *dataday.Manager,
	log *logger.Logger, cfg models.MBackfillConfig) *Runner {

	return &Runner{
		Store:      store,
		Aggregator: agg,
		Days:       days,
		Log:        log.Named("backfill"),
		Config:     cfg,
	}
}

// -----------------------------------------------------------------------------

// Run polls the queue until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	sleep := time.Duration(r.Config.SleepSeconds) * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		processed, err := r.RunOnce(ctx)
		if err != nil {
			return err
		}

		if processed == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}
		}
	}
}

// -----------------------------------------------------------------------------

// RunOnce processes one pass over the queue and returns how many days were
// completed. Stocks go first so index days can read their constituents.
func (r *Runner) RunOnce(ctx context.Context) (int, error) {
	stocks, err := r.processType(ctx, models.SymbolTypeStock)
	if err != nil {
		return stocks, err
	}

	indices, err := r.processType(ctx, models.SymbolTypeIndex)
	return stocks + indices, err
}

// -----------------------------------------------------------------------------

func (r *Runner) processType(ctx context.Context, symbolType string) (int, error) {
	days, err := r.Days.Outstanding(symbolType)
	if err != nil {
		return 0, err
	}
	if len(days) == 0 {
		return 0, nil
	}
	r.Log.Info("processing %d outstanding days (type %s)", len(days), symbolType)

	var wg sync.WaitGroup
	var completed int64
	var mu sync.Mutex

	sem := make(chan struct{}, r.Config.Workers)
	for _, dd := range days {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(dd models.MDataDay) {
			defer wg.Done()
			defer func() { <-sem }()

			if r.processDay(dd) {
				mu.Lock()
				completed++
				mu.Unlock()
			}
		}(dd)
	}
	wg.Wait()

	return int(completed), ctx.Err()
}

// -----------------------------------------------------------------------------

// processDay computes and commits one symbol-day, reporting success. On
// failure the day is marked tried and left PENDING.
func (r *Runner) processDay(dd models.MDataDay) bool {
	day := dd.Day.Format("2006-01-02")

	if err := r.storeDay(dd); err != nil {
		if helpers.IsTransient(err) {
			r.Log.Warning("day %s for %s failed upstream: %v", day, dd.Symbol, err)
		} else {
			r.Log.Error("day %s for %s failed: %v", day, dd.Symbol, err)
		}
		if err := r.Days.MarkTried(dd); err != nil {
			r.Log.Error("marking %s %s tried: %v", dd.Symbol, day, err)
		}
		return false
	}

	r.Log.Info("day %s complete for %s", day, dd.Symbol)
	return true
}

// -----------------------------------------------------------------------------

func (r *Runner) storeDay(dd models.MDataDay) error {
	symbol, err := r.Store.GetSymbol(dd.Symbol)
	if err != nil {
		return err
	}

	var minutes []models.MMinute
	if symbol.IsIndex() {
		minutes, err = r.Aggregator.IndexDay(symbol, dd.Day)
	} else {
		minutes, err = r.Aggregator.StockDay(symbol.Symbol, dd.Day)
	}
	if err != nil {
		return err
	}

	correlations := dayCorrelations(dd, minutes)
	rolling := rollingForDay(dd.Symbol, minutes)

	return r.Store.StoreDayData(dd, minutes, correlations, rolling)
}

// -----------------------------------------------------------------------------

// dayCorrelations builds the whole-day correlation rows. The stored rows
// carry the full online state so live processing can continue them. A day
// whose price series is undefined yields no rows.
func dayCorrelations(dd models.MDataDay, minutes []models.MMinute) []models.MCorrelation {
	if _, err := calculate.VolumeCorrelation(minutes); errors.Is(err, helpers.ErrInsufficientData) {
		return nil
	}

	var rows []models.MCorrelation
	for _, dataType := range []string{models.DataTypeVolume, models.DataTypeSlope} {
		corr := models.MCorrelation{Symbol: dd.Symbol, Day: dd.Day, DataType: dataType}
		for _, m := range minutes {
			metric := m.CumulativeVolume
			if dataType == models.DataTypeSlope {
				metric = float64(m.Slope)
			}
			calculate.UpdateOnline(&corr, m.Last, &metric)
		}
		rows = append(rows, corr)
	}
	return rows
}

// -----------------------------------------------------------------------------

// rollingForDay computes every defined rolling correlation of the day.
func rollingForDay(symbol string, minutes []models.MMinute) []models.MRollingCorrelation {
	var rows []models.MRollingCorrelation
	for _, dataType := range []string{models.DataTypeVolume, models.DataTypeSlope} {
		for _, m := range minutes {
			value, err := calculate.Rolling(m.Time, minutes, dataType, calculate.RollingWindow)
			if err != nil {
				continue
			}
			rows = append(rows, models.MRollingCorrelation{
				Time:     m.Time,
				Symbol:   symbol,
				DataType: dataType,
				Window:   calculate.RollingWindow,
				Value:    value,
			})
		}
	}
	return rows
}
