package aggregate

import (
	"testing"
	"time"

	"volume-tracker/src/helpers"
	"volume-tracker/src/logger"
	"volume-tracker/src/market"
	"volume-tracker/src/mocks"
	"volume-tracker/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

var testDay = time.Date(2026, 8, 24, 0, 0, 0, 0, market.Location())

func f(v float64) *float64 { return &v }

func newAggregator(store *mocks.Store, source *mocks.Source) *Aggregator {
	log := logger.NewLogger("ERROR", "test")
	return NewAggregator(store, source, log, 2)
}

// -----------------------------------------------------------------------------

func TestStockDay(t *testing.T) {
	store := mocks.NewStore()
	source := mocks.NewSource()
	agg := newAggregator(store, source)

	minutes := market.AllTradingMinutes(testDay)
	source.OpeningMids["AAA"] = 10

	// Minute 0: buy 2 against the carried opening mid
	source.AddTrade("AAA", minutes[0], 5*time.Second, 10.5, f(2))
	// Minute 1: new mid 20, then a sell of 3 below it
	source.AddQuote("AAA", minutes[1], 10*time.Second, f(19), f(21))
	source.AddTrade("AAA", minutes[1], 20*time.Second, 19, f(3))

	rows, err := agg.StockDay("AAA", testDay)
	require.NoError(t, err)
	require.Len(t, rows, 390)

	first := rows[0]
	assert.Equal(t, 2.0, first.Volume)
	assert.Equal(t, 2.0, first.CumulativeVolume)
	assert.Equal(t, 1, first.Slope)
	require.NotNil(t, first.Last)
	assert.Equal(t, 10.5, *first.Last)
	require.NotNil(t, first.LastMidBefore)
	assert.Equal(t, 10.0, *first.LastMidBefore, "quote-less minute carries the opening mid out")

	second := rows[1]
	assert.Equal(t, -3.0, second.Volume)
	assert.Equal(t, -1.0, second.CumulativeVolume)
	assert.Equal(t, 0, second.Slope, "cumulative slope: +1 then -1")
	require.NotNil(t, second.LastMidBefore)
	assert.Equal(t, 20.0, *second.LastMidBefore)

	// The rest of the day is quiet: last price forward-fills, state holds
	last := rows[389]
	assert.Equal(t, 0.0, last.Volume)
	assert.Equal(t, -1.0, last.CumulativeVolume)
	assert.Equal(t, 0, last.Slope)
	require.NotNil(t, last.Last)
	assert.Equal(t, 19.0, *last.Last)
}

// -----------------------------------------------------------------------------

func TestStockDayDeterministic(t *testing.T) {
	store := mocks.NewStore()
	source := mocks.NewSource()
	agg := newAggregator(store, source)

	minutes := market.AllTradingMinutes(testDay)
	source.OpeningMids["AAA"] = 10
	source.AddTrade("AAA", minutes[0], time.Second, 11, f(5))

	first, err := agg.StockDay("AAA", testDay)
	require.NoError(t, err)
	second, err := agg.StockDay("AAA", testDay)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// -----------------------------------------------------------------------------

func TestStockDayFailsWithoutOpeningMid(t *testing.T) {
	store := mocks.NewStore()
	source := mocks.NewSource()
	agg := newAggregator(store, source)

	_, err := agg.StockDay("AAA", testDay)
	assert.True(t, helpers.IsTransient(err))
}

// -----------------------------------------------------------------------------

func TestStockDayAlwaysBuildsFullGrid(t *testing.T) {
	store := mocks.NewStore()
	source := mocks.NewSource()
	agg := newAggregator(store, source)

	// A day whose session has not elapsed yet must still produce all 390
	// rows, or a partial grid could be flipped complete downstream
	future := market.NextTradingDay(market.Day(time.Now().AddDate(1, 0, 0)))
	source.OpeningMids["AAA"] = 10

	rows, err := agg.StockDay("AAA", future)
	require.NoError(t, err)
	assert.Len(t, rows, 390)
}

// -----------------------------------------------------------------------------

func seedCompleteDay(store *mocks.Store, symbol string, volumeAt func(i int) float64) {
	cumulative := 0.0
	slope := 0
	for i, minute := range market.AllTradingMinutes(testDay) {
		v := volumeAt(i)
		cumulative += v
		if v > 0 {
			slope++
		} else if v < 0 {
			slope--
		}
		price := 100.0 + float64(i)
		store.SaveMinute(models.MMinute{
			Time:             minute,
			Symbol:           symbol,
			Last:             &price,
			Volume:           v,
			CumulativeVolume: cumulative,
			LastMidBefore:    &price,
			Slope:            slope,
		})
	}
	store.CreateDataDay(models.MDataDay{Symbol: symbol, Day: testDay, State: models.DayStateComplete})
}

// -----------------------------------------------------------------------------

func TestIndexDay(t *testing.T) {
	store := mocks.NewStore()
	source := mocks.NewSource()
	agg := newAggregator(store, source)

	index := models.MSymbol{Symbol: "IDX", Type: models.SymbolTypeIndex, Active: true, APISymbol: "I:IDX"}
	store.ReplaceWeights("IDX", map[string]float64{"AAA": 0.6, "BBB": 0.4})

	seedCompleteDay(store, "AAA", func(i int) float64 {
		if i == 0 {
			return 100
		}
		return 0
	})
	seedCompleteDay(store, "BBB", func(i int) float64 {
		if i == 0 {
			return 50
		}
		return 0
	})

	minutes := market.AllTradingMinutes(testDay)
	source.AddIndexValue("I:IDX", minutes[0], 5000)

	rows, err := agg.IndexDay(index, testDay)
	require.NoError(t, err)
	require.Len(t, rows, 390)

	first := rows[0]
	assert.InDelta(t, 80.0, first.Volume, 1e-9, "0.6*100 + 0.4*50")
	assert.InDelta(t, 80.0, first.CumulativeVolume, 1e-9)
	assert.Equal(t, 1, first.Slope)
	require.NotNil(t, first.Last)
	assert.Equal(t, 5000.0, *first.Last)

	// No bar in either source for minute 1: the level stays unset rather
	// than carrying a stale one into the stored row
	second := rows[1]
	assert.Equal(t, 0.0, second.Volume)
	assert.Nil(t, second.Last)
}

// -----------------------------------------------------------------------------

func TestIndexDayFallsBackToPointLookup(t *testing.T) {
	store := mocks.NewStore()
	source := mocks.NewSource()
	agg := newAggregator(store, source)

	index := models.MSymbol{Symbol: "IDX", Type: models.SymbolTypeIndex, Active: true, APISymbol: "I:IDX"}
	store.ReplaceWeights("IDX", map[string]float64{"AAA": 1.0})
	seedCompleteDay(store, "AAA", func(i int) float64 { return 0 })

	minutes := market.AllTradingMinutes(testDay)
	source.DisableIndexSeries = true
	source.AddIndexValue("I:IDX", minutes[0], 5000)

	rows, err := agg.IndexDay(index, testDay)
	require.NoError(t, err)
	require.Len(t, rows, 390)

	require.NotNil(t, rows[0].Last, "minute 0 gets its level from the single-minute lookup")
	assert.Equal(t, 5000.0, *rows[0].Last)
	assert.Nil(t, rows[1].Last)
	assert.Equal(t, 390, source.IndexPointCalls, "every minute the series lacks is looked up")
}

// -----------------------------------------------------------------------------

func TestIndexDayWithoutWeights(t *testing.T) {
	store := mocks.NewStore()
	source := mocks.NewSource()
	agg := newAggregator(store, source)

	index := models.MSymbol{Symbol: "IDX", Type: models.SymbolTypeIndex}
	_, err := agg.IndexDay(index, testDay)
	assert.True(t, helpers.IsStructural(err))
}

// -----------------------------------------------------------------------------

func TestStockMinuteWarmStart(t *testing.T) {
	store := mocks.NewStore()
	source := mocks.NewSource()
	agg := newAggregator(store, source)
	cache := NewRunCache(10)

	minutes := market.AllTradingMinutes(testDay)

	// Previous minute persisted with a carried midpoint
	store.SaveMinute(models.MMinute{
		Time:             minutes[4],
		Symbol:           "AAA",
		Last:             f(100),
		CumulativeVolume: 7,
		LastMidBefore:    f(10),
		Slope:            2,
	})

	source.AddTrade("AAA", minutes[5], time.Second, 11, f(3))

	row, err := agg.StockMinute("AAA", minutes[5], cache)
	require.NoError(t, err)

	assert.Equal(t, 3.0, row.Volume)
	assert.Equal(t, 10.0, row.CumulativeVolume)
	assert.Equal(t, 3, row.Slope)
	assert.Equal(t, 0, source.MidpointCalls, "warm start never asks the provider")

	// The computed row is cached for the next minute
	cached, ok := cache.Get("AAA", minutes[5])
	assert.True(t, ok)
	assert.Equal(t, row, cached)
}

// -----------------------------------------------------------------------------

func TestStockMinuteColdStart(t *testing.T) {
	store := mocks.NewStore()
	source := mocks.NewSource()
	source.OpeningMids["AAA"] = 10

	minutes := market.AllTradingMinutes(testDay)

	// Previous row exists but lost its carried midpoint
	store.SaveMinute(models.MMinute{Time: minutes[4], Symbol: "AAA", Last: f(100), CumulativeVolume: 7, Slope: 2})
	source.AddTrade("AAA", minutes[5], time.Second, 11, f(3))

	agg := newAggregator(store, source)
	row, err := agg.StockMinute("AAA", minutes[5], NewRunCache(10))
	require.NoError(t, err)
	assert.Equal(t, 3.0, row.Volume)
	assert.Equal(t, 1, source.MidpointCalls)

	// The resolved midpoint was written back: a restarted process reads it
	// instead of asking the provider again
	_, ok, err := store.GetIncomingPrice("AAA", minutes[4])
	require.NoError(t, err)
	assert.True(t, ok)

	again := newAggregator(store, source)
	row2, err := again.StockMinute("AAA", minutes[5], NewRunCache(10))
	require.NoError(t, err)
	assert.Equal(t, row.Volume, row2.Volume)
	assert.Equal(t, 1, source.MidpointCalls, "second cold start reuses the stored incoming price")
}

// -----------------------------------------------------------------------------

func TestStockMinuteMissingPrior(t *testing.T) {
	store := mocks.NewStore()
	source := mocks.NewSource()
	agg := newAggregator(store, source)

	minutes := market.AllTradingMinutes(testDay)
	_, err := agg.StockMinute("AAA", minutes[5], NewRunCache(10))
	assert.True(t, helpers.IsStructural(err))
}

// -----------------------------------------------------------------------------

func TestStockMinuteOpening(t *testing.T) {
	store := mocks.NewStore()
	source := mocks.NewSource()
	source.OpeningMids["AAA"] = 10
	agg := newAggregator(store, source)

	minutes := market.AllTradingMinutes(testDay)
	source.AddTrade("AAA", minutes[0], time.Second, 11, f(4))

	row, err := agg.StockMinute("AAA", minutes[0], NewRunCache(10))
	require.NoError(t, err)

	assert.Equal(t, 4.0, row.Volume)
	assert.Equal(t, 4.0, row.CumulativeVolume, "the day starts from zero at the open")
	assert.Equal(t, 1, row.Slope)
}

// -----------------------------------------------------------------------------

func TestIndexMinute(t *testing.T) {
	store := mocks.NewStore()
	source := mocks.NewSource()
	agg := newAggregator(store, source)

	index := models.MSymbol{Symbol: "IDX", Type: models.SymbolTypeIndex, Active: true, APISymbol: "I:IDX"}
	store.ReplaceWeights("IDX", map[string]float64{"AAA": 0.6, "BBB": 0.4})

	minutes := market.AllTradingMinutes(testDay)
	store.SaveMinute(models.MMinute{Time: minutes[0], Symbol: "AAA", Volume: 100})
	store.SaveMinute(models.MMinute{Time: minutes[0], Symbol: "BBB", Volume: 50})
	source.AddIndexValue("I:IDX", minutes[0], 5000)

	row, err := agg.IndexMinute(index, minutes[0], NewRunCache(10))
	require.NoError(t, err)
	assert.InDelta(t, 80.0, row.Volume, 1e-9)
	require.NotNil(t, row.Last)
	assert.Equal(t, 5000.0, *row.Last)
}

// -----------------------------------------------------------------------------

func TestIndexMinuteMissingConstituent(t *testing.T) {
	store := mocks.NewStore()
	source := mocks.NewSource()
	agg := newAggregator(store, source)

	index := models.MSymbol{Symbol: "IDX", Type: models.SymbolTypeIndex}
	store.ReplaceWeights("IDX", map[string]float64{"AAA": 0.6, "BBB": 0.4})

	minutes := market.AllTradingMinutes(testDay)
	store.SaveMinute(models.MMinute{Time: minutes[0], Symbol: "AAA", Volume: 100})

	_, err := agg.IndexMinute(index, minutes[0], NewRunCache(10))
	assert.True(t, helpers.IsStructural(err))
}
