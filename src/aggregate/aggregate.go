package aggregate

import (
	"sync"
	"time"

	"volume-tracker/src/calculate"
	"volume-tracker/src/helpers"
	"volume-tracker/src/interfaces"
	"volume-tracker/src/logger"
	"volume-tracker/src/market"
	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// Aggregator turns raw ticks into per-minute rows. Stocks are classified
// against quote midpoints; indices are weighted sums of their constituents.
// The same per-minute step serves both the whole-day (backfill) and the
// single-minute (live) paths, the only difference being where the carried
// state comes from.
// -----------------------------------------------------------------------------

type Aggregator struct {
	Store        interfaces.IStore
	Source       interfaces.IMarketData
	Log          *logger.Logger
	IndexWorkers int
}

// -----------------------------------------------------------------------------

func NewAggregator(store interfaces.IStore, source interfaces.IMarketData, log *logger.Logger, indexWorkers int) *Aggregator {
	if indexWorkers <= 0 {
		indexWorkers = 1
	}
	return &Aggregator{
		Store:        store,
		Source:       source,
		Log:          log.Named("aggregate"),
		IndexWorkers: indexWorkers,
	}
}

// -----------------------------------------------------------------------------
// dayState is the intra-day carry between consecutive minutes of one symbol.
// -----------------------------------------------------------------------------

type dayState struct {
	last        *float64
	cumVolume   float64
	cumSlope    int
	incomingMid *float64
}

func stateFromRow(row models.MMinute) dayState {
	return dayState{
		last:        row.Last,
		cumVolume:   row.CumulativeVolume,
		cumSlope:    row.Slope,
		incomingMid: row.LastMidBefore,
	}
}

// -----------------------------------------------------------------------------
// Stocks
// -----------------------------------------------------------------------------

// stockMinuteStep fetches and classifies one symbol-minute, folding it into
// the carried state.
func (a *Aggregator) stockMinuteStep(symbol string, minute time.Time, state *dayState) (models.MMinute, error) {
	trades, err := a.Source.TradesInMinute(symbol, minute)
	if err != nil {
		return models.MMinute{}, err
	}
	quotes, err := a.Source.QuotesInMinute(symbol, minute)
	if err != nil {
		return models.MMinute{}, err
	}

	volume, outgoingMid := calculate.Classify(quotes, trades, state.incomingMid)

	if price := calculate.LastPrice(trades); price != nil {
		state.last = price
	}
	state.cumVolume += volume
	state.cumSlope += calculate.Slope(volume)
	state.incomingMid = outgoingMid

	return models.MMinute{
		Time:             minute,
		Symbol:           symbol,
		Last:             state.last,
		Volume:           volume,
		CumulativeVolume: state.cumVolume,
		LastMidBefore:    outgoingMid,
		Slope:            state.cumSlope,
	}, nil
}

// -----------------------------------------------------------------------------

// StockDay computes every minute of one stock's trading day in order,
// seeding the opening reference midpoint from the quote stream before the
// open. The grid is always the full session; a day whose close has not
// passed yet must not reach this path (the queue horizon guards it), or the
// COMPLETE flip would cover a partial grid. Nothing is persisted here.
func (a *Aggregator) StockDay(symbol string, day time.Time) ([]models.MMinute, error) {
	minutes := market.AllTradingMinutes(day)

	mid, err := a.Source.MidpointBefore(symbol, minutes[0])
	if err != nil {
		return nil, err
	}
	state := dayState{incomingMid: &mid}

	rows := make([]models.MMinute, 0, len(minutes))
	for _, minute := range minutes {
		row, err := a.stockMinuteStep(symbol, minute, &state)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// -----------------------------------------------------------------------------

// StockMinute computes one live minute of a stock, recovering the carried
// state from the run cache, the previous persisted minute, or, on a cold
// start, the incoming price table and the provider.
func (a *Aggregator) StockMinute(symbol string, minute time.Time, cache *RunCache) (models.MMinute, error) {
	state, err := a.carryState(symbol, minute, cache, true)
	if err != nil {
		return models.MMinute{}, err
	}

	row, err := a.stockMinuteStep(symbol, minute, &state)
	if err != nil {
		return models.MMinute{}, err
	}
	cache.Put(row)
	return row, nil
}

// -----------------------------------------------------------------------------

// carryState recovers the previous minute's state for the live path. The
// opening minute starts from zero; otherwise the previous minute must
// already exist in the cache or the store.
func (a *Aggregator) carryState(symbol string, minute time.Time, cache *RunCache, needMid bool) (dayState, error) {
	if market.IsOpeningMinute(minute) {
		state := dayState{}
		if needMid {
			mid, err := a.incomingMidpoint(symbol, minute)
			if err != nil {
				return dayState{}, err
			}
			state.incomingMid = mid
		}
		return state, nil
	}

	prev := minute.Add(-market.OneMinute)
	if row, ok := cache.Get(symbol, prev); ok {
		return stateFromRow(row), nil
	}

	row, ok, err := a.Store.MinuteBefore(symbol, minute)
	if err != nil {
		return dayState{}, err
	}
	if !ok {
		return dayState{}, helpers.Structural("no minute before %s for %s", minute, symbol)
	}

	state := stateFromRow(row)
	if needMid && state.incomingMid == nil {
		mid, err := a.incomingMidpoint(symbol, minute)
		if err != nil {
			return dayState{}, err
		}
		state.incomingMid = mid
	}
	return state, nil
}

// -----------------------------------------------------------------------------

// incomingMidpoint resolves the reference midpoint carried into minute when
// no outgoing midpoint survives. The resolved value is written back so a
// restarted process does not ask the provider again.
func (a *Aggregator) incomingMidpoint(symbol string, minute time.Time) (*float64, error) {
	prev := minute.Add(-market.OneMinute)

	if ip, ok, err := a.Store.GetIncomingPrice(symbol, prev); err != nil {
		return nil, err
	} else if ok {
		return ip.LastMidBefore, nil
	}

	mid, err := a.Source.MidpointBefore(symbol, minute)
	if err != nil {
		return nil, err
	}

	writeBack := models.MIncomingPrice{Symbol: symbol, Time: prev, LastMidBefore: &mid}
	if err := a.Store.CreateIncomingPrice(writeBack); err != nil {
		a.Log.Warning("incoming price write-back failed for %s at %s: %v", symbol, prev, err)
	}
	return &mid, nil
}

// -----------------------------------------------------------------------------
// Indices
// -----------------------------------------------------------------------------

// IndexDay computes every minute of one index's trading day. Constituents
// with a COMPLETE day are read from storage; the rest are computed on the
// fly with a bounded worker pool. Every constituent must cover the exact
// minute grid of the day.
func (a *Aggregator) IndexDay(index models.MSymbol, day time.Time) ([]models.MMinute, error) {
	weights, err := a.Store.WeightsFor(index.Symbol)
	if err != nil {
		return nil, err
	}
	if len(weights) == 0 {
		return nil, helpers.Structural("index %s has no weights", index.Symbol)
	}

	constituents := make([]string, 0, len(weights))
	for symbol := range weights {
		constituents = append(constituents, symbol)
	}

	complete, err := a.Store.CompleteDaySymbols(constituents, day)
	if err != nil {
		return nil, err
	}

	series := make(map[string][]models.MMinute, len(constituents))
	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	sem := make(chan struct{}, a.IndexWorkers)
	for _, symbol := range constituents {
		wg.Add(1)
		sem <- struct{}{}
		go func(symbol string) {
			defer wg.Done()
			defer func() { <-sem }()

			var rows []models.MMinute
			var err error
			if complete[symbol] {
				rows, err = a.Store.MinutesForDay(symbol, day)
			} else {
				a.Log.Info("computing constituent %s for %s", symbol, day.Format("2006-01-02"))
				rows, err = a.StockDay(symbol, day)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			series[symbol] = rows
		}(symbol)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	values, err := a.indexValueMap(index, day)
	if err != nil {
		return nil, err
	}

	minutes := market.AllTradingMinutes(day)
	state := dayState{}

	rows := make([]models.MMinute, 0, len(minutes))
	for i, minute := range minutes {
		atMinute := make(map[string]models.MMinute, len(weights))
		for symbol, constituent := range series {
			if i >= len(constituent) || !constituent[i].Time.Equal(minute) {
				return nil, helpers.Structural("constituent %s misaligned at %s for index %s", symbol, minute, index.Symbol)
			}
			atMinute[symbol] = constituent[i]
		}

		// Batch series first, single-minute lookup when it lacks the bar
		value := values[minute.Unix()]
		if value == nil {
			value, err = a.Source.IndexValueAt(apiSymbol(index), minute)
			if err != nil {
				return nil, err
			}
		}

		row := a.indexMinuteStep(index, minute, weights, atMinute, value, &state)
		rows = append(rows, row)
	}
	return rows, nil
}

// -----------------------------------------------------------------------------

// indexMinuteStep folds one weighted minute into the index's carried state.
// value is the upstream index level for the minute; a minute with no bar in
// either source stores a nil last, never a stale one.
func (a *Aggregator) indexMinuteStep(index models.MSymbol, minute time.Time, weights map[string]float64,
	atMinute map[string]models.MMinute, value *float64, state *dayState) models.MMinute {

	volume := calculate.WeightedVolume(weights, atMinute)
	state.cumVolume += volume
	state.cumSlope += calculate.Slope(volume)

	return models.MMinute{
		Time:             minute,
		Symbol:           index.Symbol,
		Last:             value,
		Volume:           volume,
		CumulativeVolume: state.cumVolume,
		Slope:            state.cumSlope,
	}
}

// -----------------------------------------------------------------------------

// IndexMinute computes one live minute of an index from its constituents'
// already-persisted minutes.
func (a *Aggregator) IndexMinute(index models.MSymbol, minute time.Time, cache *RunCache) (models.MMinute, error) {
	weights, err := a.Store.WeightsFor(index.Symbol)
	if err != nil {
		return models.MMinute{}, err
	}
	if len(weights) == 0 {
		return models.MMinute{}, helpers.Structural("index %s has no weights", index.Symbol)
	}

	constituents := make([]string, 0, len(weights))
	for symbol := range weights {
		constituents = append(constituents, symbol)
	}

	rows, err := a.Store.MinutesAt(constituents, minute)
	if err != nil {
		return models.MMinute{}, err
	}
	if len(rows) != len(weights) {
		return models.MMinute{}, helpers.Structural("index %s has %d of %d constituent minutes at %s",
			index.Symbol, len(rows), len(weights), minute)
	}

	atMinute := make(map[string]models.MMinute, len(rows))
	for _, row := range rows {
		atMinute[row.Symbol] = row
	}

	state, err := a.carryState(index.Symbol, minute, cache, false)
	if err != nil {
		return models.MMinute{}, err
	}

	value, err := a.Source.IndexValueAt(apiSymbol(index), minute)
	if err != nil {
		return models.MMinute{}, err
	}

	row := a.indexMinuteStep(index, minute, weights, atMinute, value, &state)
	cache.Put(row)
	return row, nil
}

// -----------------------------------------------------------------------------

func (a *Aggregator) indexValueMap(index models.MSymbol, day time.Time) (map[int64]*float64, error) {
	series, err := a.Source.IndexValueSeries(apiSymbol(index), day)
	if err != nil {
		return nil, err
	}

	values := make(map[int64]*float64, len(series))
	for _, v := range series {
		value := v.Value
		values[v.Time.Unix()] = &value
	}
	return values, nil
}

// -----------------------------------------------------------------------------

func apiSymbol(symbol models.MSymbol) string {
	if symbol.APISymbol != "" {
		return symbol.APISymbol
	}
	return symbol.Symbol
}
