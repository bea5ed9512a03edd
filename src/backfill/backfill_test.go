package backfill

import (
	"context"
	"testing"
	"time"

	"volume-tracker/src/aggregate"
	"volume-tracker/src/dataday"
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

func newRunner(store *mocks.Store, source *mocks.Source) *Runner {
	log := logger.NewLogger("ERROR", "test")
	agg := aggregate.NewAggregator(store, source, log, 2)
	days := dataday.NewManager(store, log, 15)
	return NewRunner(store, agg, days, log, models.MBackfillConfig{
		Workers:      2,
		SleepSeconds: 1,
	})
}

func addStock(t *testing.T, store *mocks.Store, symbol string) {
	t.Helper()
	require.NoError(t, store.CreateSymbol(models.MSymbol{
		Symbol: symbol, Name: symbol, Type: models.SymbolTypeStock, Active: true,
	}))
}

// -----------------------------------------------------------------------------

func TestRunOnceCompletesPendingDay(t *testing.T) {
	store := mocks.NewStore()
	source := mocks.NewSource()
	runner := newRunner(store, source)

	addStock(t, store, "AAA")
	require.NoError(t, store.CreateDataDay(models.MDataDay{
		Symbol: "AAA", Day: testDay, State: models.DayStatePending,
	}))

	minutes := market.AllTradingMinutes(testDay)
	source.OpeningMids["AAA"] = 10
	for i := 0; i < 20; i++ {
		source.AddTrade("AAA", minutes[i], time.Second, 11, f(2))
	}

	completed, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, store.StoreDayCalls)

	dd, ok, err := store.GetDataDay("AAA", testDay)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.DayStateComplete, dd.State)
	assert.Nil(t, dd.LastTried)

	stored, err := store.MinutesForDay("AAA", testDay)
	require.NoError(t, err)
	assert.Len(t, stored, 390)

	corrs, err := store.CorrelationsForDay(testDay, models.DataTypeVolume)
	require.NoError(t, err)
	require.Len(t, corrs, 1)
	assert.Equal(t, 390, corrs[0].Count, "every minute has a price once trading starts")

	// A second pass finds nothing outstanding
	completed, err = runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, completed)
}

// -----------------------------------------------------------------------------

func TestFailedDayStaysPendingWithRetryStamp(t *testing.T) {
	store := mocks.NewStore()
	source := mocks.NewSource()
	runner := newRunner(store, source)

	addStock(t, store, "AAA")
	require.NoError(t, store.CreateDataDay(models.MDataDay{
		Symbol: "AAA", Day: testDay, State: models.DayStatePending,
	}))
	source.FailSymbols["AAA"] = true

	completed, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, completed)
	assert.Equal(t, 0, store.StoreDayCalls, "nothing is committed on failure")

	dd, ok, err := store.GetDataDay("AAA", testDay)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.DayStatePending, dd.State)
	require.NotNil(t, dd.LastTried, "a failed attempt is timestamped")

	// The freshly stamped day is outside the retry window now
	completed, err = runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, completed)
	again, _, err := store.GetDataDay("AAA", testDay)
	require.NoError(t, err)
	assert.True(t, again.LastTried.Equal(*dd.LastTried), "backoff prevents an immediate retry")
}

// -----------------------------------------------------------------------------

func TestQuietDayCompletesWithoutCorrelations(t *testing.T) {
	store := mocks.NewStore()
	source := mocks.NewSource()
	runner := newRunner(store, source)

	addStock(t, store, "AAA")
	require.NoError(t, store.CreateDataDay(models.MDataDay{
		Symbol: "AAA", Day: testDay, State: models.DayStatePending,
	}))
	source.OpeningMids["AAA"] = 10

	completed, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, completed)

	dd, _, err := store.GetDataDay("AAA", testDay)
	require.NoError(t, err)
	assert.Equal(t, models.DayStateComplete, dd.State)

	// No trades means no prices, so the correlation series is undefined
	corrs, err := store.CorrelationsForDay(testDay, models.DataTypeVolume)
	require.NoError(t, err)
	assert.Empty(t, corrs)
}

// -----------------------------------------------------------------------------

func TestIndexDayFollowsItsConstituents(t *testing.T) {
	store := mocks.NewStore()
	source := mocks.NewSource()
	runner := newRunner(store, source)

	addStock(t, store, "AAA")
	require.NoError(t, store.CreateSymbol(models.MSymbol{
		Symbol: "IDX", Name: "Index", Type: models.SymbolTypeIndex, Active: true, APISymbol: "I:IDX",
	}))
	require.NoError(t, store.ReplaceWeights("IDX", map[string]float64{"AAA": 1.0}))

	for _, symbol := range []string{"AAA", "IDX"} {
		require.NoError(t, store.CreateDataDay(models.MDataDay{
			Symbol: symbol, Day: testDay, State: models.DayStatePending,
		}))
	}

	minutes := market.AllTradingMinutes(testDay)
	source.OpeningMids["AAA"] = 10
	source.AddTrade("AAA", minutes[0], time.Second, 11, f(5))
	source.AddIndexValue("I:IDX", minutes[0], 5000)

	// Stocks are drained before indices within the same pass
	completed, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, completed)

	indexMinutes, err := store.MinutesForDay("IDX", testDay)
	require.NoError(t, err)
	require.Len(t, indexMinutes, 390)
	assert.Equal(t, 5.0, indexMinutes[0].Volume)
	require.NotNil(t, indexMinutes[0].Last)
	assert.Equal(t, 5000.0, *indexMinutes[0].Last)
}
