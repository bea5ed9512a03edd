package live

import (
	"context"
	"sync"
	"time"

	"volume-tracker/src/aggregate"
	"volume-tracker/src/calculate"
	"volume-tracker/src/dataday"
	"volume-tracker/src/interfaces"
	"volume-tracker/src/logger"
	"volume-tracker/src/market"
	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// Runner processes the current trading day incrementally. Each pass brings
// every active symbol up to the last fully-formed minute, persisting and
// pushing each new minute, then updates rolling and online correlations and
// pushes the aggregate tables. State between passes lives in the store; the
// run cache only skips re-reads within one Runner lifetime.
// -----------------------------------------------------------------------------

const SettingLivePaused = "live_paused"

type Runner struct {
	Store      interfaces.IStore
	Aggregator *aggregate.Aggregator
	Days       *dataday.Manager
	Notifier   interfaces.INotifier
	Log        *logger.Logger
	Config     models.MLiveConfig

	cache *aggregate.RunCache
}

// -----------------------------------------------------------------------------

func NewRunner(store interfaces.IStore, agg *aggregate.Aggregator, days *dataday.Manager,
	notifier interfaces.INotifier, log *logger.Logger, cfg models.MLiveConfig) *Runner {

	return &Runner{
		Store:      store,
		Aggregator: agg,
		Days:       days,
		Notifier:   notifier,
		Log:        log.Named("live"),
		Config:     cfg,
		cache:      aggregate.NewRunCache(cfg.CacheSize),
	}
}

// -----------------------------------------------------------------------------

// Run polls every interval while the context lives. Passes are skipped when
// live processing is paused or the session has not opened yet.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		paused, err := r.Store.GetSettingBool(SettingLivePaused)
		if err != nil {
			r.Log.Error("reading pause setting: %v", err)
			continue
		}
		if paused {
			continue
		}

		day := market.Day(time.Now())
		if !market.IsWeekday(day) {
			continue
		}

		if err := r.RunOnce(day, 0, false); err != nil {
			r.Log.Error("live pass failed: %v", err)
		}
	}
}

// -----------------------------------------------------------------------------

// RunOnce processes one pass for the given day. limit caps how many missing
// minutes each symbol fills in this pass (0 means all); skipIndices leaves
// index symbols untouched.
func (r *Runner) RunOnce(day time.Time, limit int, skipIndices bool) error {
	stocks, err := r.Store.ActiveSymbols(models.SymbolTypeStock)
	if err != nil {
		return err
	}

	newMinutes := make(map[string][]models.MMinute)
	var mu sync.Mutex
	var wg sync.WaitGroup

	sem := make(chan struct{}, r.Config.Workers)
	for _, symbol := range stocks {
		wg.Add(1)
		sem <- struct{}{}
		go func(symbol models.MSymbol) {
			defer wg.Done()
			defer func() { <-sem }()

			rows, err := r.runForSymbol(symbol, day, limit)
			if err != nil {
				r.Log.Warning("live %s: %v", symbol.Symbol, err)
				return
			}
			if len(rows) == 0 {
				return
			}
			mu.Lock()
			newMinutes[symbol.Symbol] = rows
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	// Indices read their constituents' persisted minutes, so they run after
	// the stock pool has drained and one at a time
	if !skipIndices {
		indices, err := r.Store.ActiveSymbols(models.SymbolTypeIndex)
		if err != nil {
			return err
		}
		for _, index := range indices {
			rows, err := r.runForSymbol(index, day, limit)
			if err != nil {
				r.Log.Warning("live %s: %v", index.Symbol, err)
				continue
			}
			if len(rows) > 0 {
				newMinutes[index.Symbol] = rows
			}
		}
	}

	if len(newMinutes) == 0 {
		return nil
	}

	for symbol := range newMinutes {
		r.updateRollingCorrelations(symbol, day)
	}

	if err := r.updateCorrelations(day, newMinutes); err != nil {
		return err
	}

	r.pushSlopeTables(market.CurrentMinute())
	return nil
}

// -----------------------------------------------------------------------------

// runForSymbol fills the symbol's missing minutes up to the last
// fully-formed one, persisting and pushing each. limit caps how many are
// filled this pass; the rest wait for the next one. Returns the new rows in
// time order.
func (r *Runner) runForSymbol(symbol models.MSymbol, day time.Time, limit int) ([]models.MMinute, error) {
	dd, err := r.Days.GetOrCreateLive(symbol.Symbol, day)
	if err != nil {
		return nil, err
	}
	if dd.State == models.DayStateComplete {
		return nil, nil
	}

	existing, err := r.Store.MinutesForDay(symbol.Symbol, day)
	if err != nil {
		return nil, err
	}
	have := make(map[int64]bool, len(existing))
	for _, m := range existing {
		have[m.Time.Unix()] = true
	}

	var rows []models.MMinute
	for _, minute := range market.TradingMinutesForDay(day) {
		if have[minute.Unix()] {
			continue
		}
		if limit > 0 && len(rows) >= limit {
			break
		}

		var row models.MMinute
		if symbol.IsIndex() {
			row, err = r.Aggregator.IndexMinute(symbol, minute, r.cache)
		} else {
			row, err = r.Aggregator.StockMinute(symbol.Symbol, minute, r.cache)
		}
		if err != nil {
			return rows, err
		}

		if err := r.Store.SaveMinute(row); err != nil {
			return rows, err
		}
		r.Notifier.OnMinuteComputed(row, symbol.DisplayName())
		rows = append(rows, row)

		if market.IsClosingMinute(minute) {
			if _, err := r.Days.CompleteIfFull(dd); err != nil {
				r.Log.Error("completing %s %s: %v", dd.Symbol, day.Format("2006-01-02"), err)
			}
		}
	}
	return rows, nil
}

// -----------------------------------------------------------------------------

// updateRollingCorrelations computes and pushes the day's rolling values
// that are not persisted yet.
func (r *Runner) updateRollingCorrelations(symbol string, day time.Time) {
	minutes, err := r.Store.MinutesForDay(symbol, day)
	if err != nil {
		r.Log.Error("rolling %s: %v", symbol, err)
		return
	}

	for _, dataType := range []string{models.DataTypeVolume, models.DataTypeSlope} {
		done, err := r.Store.RollingMinutes(symbol, day, dataType, calculate.RollingWindow)
		if err != nil {
			r.Log.Error("rolling %s/%s: %v", symbol, dataType, err)
			continue
		}
		haveRolling := make(map[int64]bool, len(done))
		for _, t := range done {
			haveRolling[t.Unix()] = true
		}

		for _, m := range minutes {
			if haveRolling[m.Time.Unix()] {
				continue
			}
			value, err := calculate.Rolling(m.Time, minutes, dataType, calculate.RollingWindow)
			if err != nil {
				// Window not filled yet
				continue
			}

			rc := models.MRollingCorrelation{
				Time:     m.Time,
				Symbol:   symbol,
				DataType: dataType,
				Window:   calculate.RollingWindow,
				Value:    value,
			}
			if err := r.Store.SaveRollingCorrelation(rc); err != nil {
				r.Log.Error("saving rolling %s at %s: %v", symbol, m.Time, err)
				continue
			}
			r.Notifier.OnRollingCorrelation(rc)
		}
	}
}

// -----------------------------------------------------------------------------

// updateCorrelations folds each symbol's new minutes into its online
// correlation state and pushes refreshed tables for every correlation
// group once enough observations exist.
func (r *Runner) updateCorrelations(day time.Time, newMinutes map[string][]models.MMinute) error {
	for _, dataType := range []string{models.DataTypeVolume, models.DataTypeSlope} {
		stored, err := r.Store.CorrelationsForDay(day, dataType)
		if err != nil {
			return err
		}
		bySymbol := make(map[string]models.MCorrelation, len(stored))
		for _, c := range stored {
			bySymbol[c.Symbol] = c
		}

		var updated []models.MCorrelation
		for symbol, rows := range newMinutes {
			corr, ok := bySymbol[symbol]
			if !ok {
				corr = models.MCorrelation{Symbol: symbol, Day: day, DataType: dataType}
			}
			for _, m := range rows {
				metric := m.CumulativeVolume
				if dataType == models.DataTypeSlope {
					metric = float64(m.Slope)
				}
				calculate.UpdateOnline(&corr, m.Last, &metric)
			}
			bySymbol[symbol] = corr
			updated = append(updated, corr)
		}

		if err := r.Store.UpsertCorrelations(updated); err != nil {
			return err
		}
		r.pushCorrelationTables(dataType, bySymbol)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (r *Runner) pushCorrelationTables(dataType string, bySymbol map[string]models.MCorrelation) {
	groups, err := r.Store.GroupsByType(models.GroupTypeCorrelationTable)
	if err != nil {
		r.Log.Error("loading correlation groups: %v", err)
		groups = nil
	}

	targets := []models.MGroup{{Slug: "all"}}
	for _, g := range groups {
		targets = append(targets, g)
	}

	for _, group := range targets {
		table := models.MCorrelationTable{DataType: dataType}

		symbols := group.Symbols
		if len(symbols) == 0 {
			for symbol := range bySymbol {
				symbols = append(symbols, symbol)
			}
		}

		for _, symbol := range symbols {
			corr, ok := bySymbol[symbol]
			if !ok || corr.Count < r.Config.MinCorrelationN {
				continue
			}
			table.Entries = append(table.Entries, models.MCorrelationEntry{
				Symbol:      symbol,
				DisplayName: r.displayName(symbol),
				Value:       corr.Value,
				Count:       corr.Count,
			})
		}

		if len(table.Entries) > 0 {
			r.Notifier.OnCorrelationBatchReady(group.Slug, table)
		}
	}
}

// -----------------------------------------------------------------------------

// pushSlopeTables compares each symbol's cumulative slope at the current
// minute against yesterday's same minute and yesterday's close. The "all"
// table covers every active symbol; groups get their own tables on top.
func (r *Runner) pushSlopeTables(minute time.Time) {
	groups, err := r.Store.GroupsByType(models.GroupTypeSlopeTable)
	if err != nil {
		r.Log.Error("loading slope groups: %v", err)
		groups = nil
	}

	targets := []models.MGroup{{Slug: "all", Symbols: r.activeSymbolNames()}}
	for _, g := range groups {
		targets = append(targets, g)
	}

	for _, group := range targets {
		table, err := SlopeTable(r.Store, group.Symbols, minute)
		if err != nil {
			r.Log.Error("slope table %s: %v", group.Slug, err)
			continue
		}
		if len(table.Rows) > 0 {
			r.Notifier.OnSlopeTableReady(group.Slug, table)
		}
	}
}

// -----------------------------------------------------------------------------

// SlopeTable builds the slope comparison for a symbol set at one minute:
// cumulative slope now, at the same minute of the previous trading day, and
// at the previous close. Shared with the read API.
func SlopeTable(store interfaces.IStore, symbols []string, minute time.Time) (models.MSlopeTable, error) {
	local := minute.In(market.Location())
	previousDay := market.PreviousTradingDay(market.Day(minute))
	sameMinuteYesterday := time.Date(
		previousDay.Year(), previousDay.Month(), previousDay.Day(),
		local.Hour(), local.Minute(), 0, 0, market.Location())
	_, previousClose := market.FirstLastMinute(previousDay)

	current, err := slopesAt(store, symbols, minute)
	if err != nil {
		return models.MSlopeTable{}, err
	}
	prevMinute, err := slopesAt(store, symbols, sameMinuteYesterday)
	if err != nil {
		return models.MSlopeTable{}, err
	}
	prevClose, err := slopesAt(store, symbols, previousClose)
	if err != nil {
		return models.MSlopeTable{}, err
	}

	table := models.MSlopeTable{Minute: local.Format("15:04")}
	for _, symbol := range symbols {
		name := symbol
		if s, err := store.GetSymbol(symbol); err == nil {
			name = s.DisplayName()
		}
		table.Rows = append(table.Rows, models.MSlopeTableRow{
			Symbol:         symbol,
			DisplayName:    name,
			Current:        current[symbol],
			PreviousMinute: prevMinute[symbol],
			PreviousClose:  prevClose[symbol],
		})
	}
	return table, nil
}

// -----------------------------------------------------------------------------

func slopesAt(store interfaces.IStore, symbols []string, t time.Time) (map[string]*int, error) {
	rows, err := store.MinutesAt(symbols, t)
	if err != nil {
		return nil, err
	}

	slopes := make(map[string]*int, len(symbols))
	for _, m := range rows {
		slope := m.Slope
		slopes[m.Symbol] = &slope
	}
	return slopes, nil
}

// -----------------------------------------------------------------------------

func (r *Runner) activeSymbolNames() []string {
	var names []string
	for _, symbolType := range []string{models.SymbolTypeStock, models.SymbolTypeIndex} {
		symbols, err := r.Store.ActiveSymbols(symbolType)
		if err != nil {
			r.Log.Error("loading active symbols: %v", err)
			continue
		}
		for _, s := range symbols {
			names = append(names, s.Symbol)
		}
	}
	return names
}

// -----------------------------------------------------------------------------

func (r *Runner) displayName(symbol string) string {
	s, err := r.Store.GetSymbol(symbol)
	if err != nil {
		return symbol
	}
	return s.DisplayName()
}

