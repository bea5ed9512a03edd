package storage

import (
	"path/filepath"
	"testing"
	"time"

	"volume-tracker/src/logger"
	"volume-tracker/src/market"
	"volume-tracker/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Round trips against a real sqlite file. The same SQL runs on postgres with
// rebound placeholders, so these cover the query shapes for both drivers.
// -----------------------------------------------------------------------------

var testDay = time.Date(2026, 8, 24, 0, 0, 0, 0, market.Location())

func f(v float64) *float64 { return &v }

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewStore(models.MStorageConfig{
		DBType: "sqlite",
		DBPath: filepath.Join(t.TempDir(), "volume.db"),
	}, logger.NewLogger("ERROR", "test"))
	require.NoError(t, err)
	require.NoError(t, store.Initialize())
	t.Cleanup(func() { store.Close() })
	return store
}

// -----------------------------------------------------------------------------

func TestRebind(t *testing.T) {
	s := &SQLStore{Driver: DriverSQLite}
	assert.Equal(t, "SELECT * FROM t WHERE a = ? AND b = ?", s.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	s = &SQLStore{Driver: DriverPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", s.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
}

// -----------------------------------------------------------------------------

func TestSymbolRoundTrip(t *testing.T) {
	store := newTestStore(t)

	sym := models.MSymbol{Symbol: "AAA", Name: "Alpha Corp", Type: models.SymbolTypeStock, Active: true}
	require.NoError(t, store.CreateSymbol(sym))

	got, err := store.GetSymbol("AAA")
	require.NoError(t, err)
	assert.Equal(t, sym, got)

	active, err := store.ActiveSymbols(models.SymbolTypeStock)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, store.SetSymbolActive("AAA", false))
	active, err = store.ActiveSymbols(models.SymbolTypeStock)
	require.NoError(t, err)
	assert.Empty(t, active)
}

// -----------------------------------------------------------------------------

func TestMinuteRoundTrip(t *testing.T) {
	store := newTestStore(t)
	minutes := market.AllTradingMinutes(testDay)

	first := models.MMinute{
		Time:             minutes[0],
		Symbol:           "AAA",
		Last:             f(10.5),
		Volume:           3,
		CumulativeVolume: 3,
		LastMidBefore:    f(10),
		Slope:            1,
	}
	second := models.MMinute{
		Time:             minutes[1],
		Symbol:           "AAA",
		Last:             f(10.25),
		Volume:           -2,
		CumulativeVolume: 1,
		Slope:            0,
	}
	require.NoError(t, store.SaveMinute(first))
	require.NoError(t, store.SaveMinute(second))

	rows, err := store.MinutesForDay("AAA", testDay)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Time.Equal(first.Time))
	require.NotNil(t, rows[0].Last)
	assert.Equal(t, 10.5, *rows[0].Last)
	require.NotNil(t, rows[0].LastMidBefore)
	assert.Equal(t, 10.0, *rows[0].LastMidBefore)
	assert.Nil(t, rows[1].LastMidBefore)

	prev, ok, err := store.MinuteBefore("AAA", minutes[1])
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, prev.Time.Equal(minutes[0]))

	_, ok, err = store.MinuteBefore("AAA", minutes[0])
	require.NoError(t, err)
	assert.False(t, ok)

	count, err := store.CountMinutes("AAA", testDay)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Saving the same minute again replaces it
	first.Volume = 5
	require.NoError(t, store.SaveMinute(first))
	count, err = store.CountMinutes("AAA", testDay)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// -----------------------------------------------------------------------------

func TestDataDayStateRoundTrip(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateSymbol(models.MSymbol{
		Symbol: "AAA", Name: "Alpha", Type: models.SymbolTypeStock, Active: true,
	}))

	dd := models.MDataDay{Symbol: "AAA", Day: testDay, State: models.DayStatePending}
	require.NoError(t, store.CreateDataDay(dd))

	got, ok, err := store.GetDataDay("AAA", testDay)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.DayStatePending, got.State)
	assert.Nil(t, got.LastTried)

	// Never-tried days are outstanding regardless of the retry bound
	outstanding, err := store.OutstandingDays(models.SymbolTypeStock, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, outstanding, 1)

	tried := time.Now().Truncate(time.Second)
	got.LastTried = &tried
	require.NoError(t, store.UpdateDataDay(got))

	outstanding, err = store.OutstandingDays(models.SymbolTypeStock, tried.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, outstanding, "freshly tried day is inside the backoff window")

	outstanding, err = store.OutstandingDays(models.SymbolTypeStock, tried.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, outstanding, 1, "day becomes eligible once the backoff passes")
}

// -----------------------------------------------------------------------------

func TestOutstandingDaysOrdering(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateSymbol(models.MSymbol{
		Symbol: "AAA", Name: "Alpha", Type: models.SymbolTypeStock, Active: true,
	}))

	older := testDay.AddDate(0, 0, -3)
	triedEarly := time.Now().Add(-2 * time.Hour)
	triedLate := time.Now().Add(-time.Hour)

	require.NoError(t, store.BulkCreateDataDays([]models.MDataDay{
		{Symbol: "AAA", Day: testDay, State: models.DayStatePending, LastTried: &triedEarly},
		{Symbol: "AAA", Day: older, State: models.DayStatePending, LastTried: &triedLate},
		{Symbol: "AAA", Day: testDay.AddDate(0, 0, -1), State: models.DayStatePending},
	}))

	outstanding, err := store.OutstandingDays(models.SymbolTypeStock, time.Now())
	require.NoError(t, err)
	require.Len(t, outstanding, 3)

	assert.Nil(t, outstanding[0].LastTried, "never-tried days come first")
	assert.True(t, outstanding[1].Day.Equal(testDay), "then oldest attempt")
	assert.True(t, outstanding[2].Day.Equal(older))
}

// -----------------------------------------------------------------------------

func TestStoreDayDataIsAtomic(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateSymbol(models.MSymbol{
		Symbol: "AAA", Name: "Alpha", Type: models.SymbolTypeStock, Active: true,
	}))
	require.NoError(t, store.CreateDataDay(models.MDataDay{
		Symbol: "AAA", Day: testDay, State: models.DayStatePending,
	}))

	minutes := market.AllTradingMinutes(testDay)
	var rows []models.MMinute
	for i := 0; i < 3; i++ {
		rows = append(rows, models.MMinute{
			Time: minutes[i], Symbol: "AAA", Last: f(10), Volume: 1, CumulativeVolume: float64(i + 1), Slope: i + 1,
		})
	}
	corrs := []models.MCorrelation{
		{Symbol: "AAA", Day: testDay, DataType: models.DataTypeVolume, Count: 3, Value: 0.5},
	}
	rolling := []models.MRollingCorrelation{
		{Time: minutes[2], Symbol: "AAA", DataType: models.DataTypeVolume, Window: 15, Value: 0.4},
	}

	dd := models.MDataDay{Symbol: "AAA", Day: testDay, State: models.DayStateComplete}
	require.NoError(t, store.StoreDayData(dd, rows, corrs, rolling))

	got, ok, err := store.GetDataDay("AAA", testDay)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.DayStateComplete, got.State)
	assert.Nil(t, got.LastTried)

	stored, err := store.MinutesForDay("AAA", testDay)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	gotCorrs, err := store.CorrelationsForDay(testDay, models.DataTypeVolume)
	require.NoError(t, err)
	require.Len(t, gotCorrs, 1)
	assert.Equal(t, 3, gotCorrs[0].Count)

	done, err := store.RollingMinutes("AAA", testDay, models.DataTypeVolume, 15)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.True(t, done[0].Equal(minutes[2]))
}

// -----------------------------------------------------------------------------

func TestIncomingPriceWriteOnce(t *testing.T) {
	store := newTestStore(t)
	minute := market.AllTradingMinutes(testDay)[10]

	require.NoError(t, store.CreateIncomingPrice(models.MIncomingPrice{
		Symbol: "AAA", Time: minute, LastMidBefore: f(10),
	}))
	// A second write for the same key is silently ignored
	require.NoError(t, store.CreateIncomingPrice(models.MIncomingPrice{
		Symbol: "AAA", Time: minute, LastMidBefore: f(99),
	}))

	ip, ok, err := store.GetIncomingPrice("AAA", minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, ip.LastMidBefore)
	assert.Equal(t, 10.0, *ip.LastMidBefore)

	require.NoError(t, store.ClearIncomingPrices())
	_, ok, err = store.GetIncomingPrice("AAA", minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

// -----------------------------------------------------------------------------

func TestWeightsAndGroupsRoundTrip(t *testing.T) {
	store := newTestStore(t)

	weights := map[string]float64{"AAA": 0.6, "BBB": 0.4}
	require.NoError(t, store.ReplaceWeights("IDX", weights))

	got, err := store.WeightsFor("IDX")
	require.NoError(t, err)
	assert.Equal(t, weights, got)

	require.NoError(t, store.ReplaceWeights("IDX", map[string]float64{"CCC": 1.0}))
	got, err = store.WeightsFor("IDX")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"CCC": 1.0}, got)

	group := models.MGroup{Slug: "tech", Name: "Tech", GroupType: models.GroupTypeCorrelationTable, Symbols: []string{"AAA", "BBB"}}
	require.NoError(t, store.SaveGroup(group))

	groups, err := store.GroupsByType(models.GroupTypeCorrelationTable)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, group.Symbols, groups[0].Symbols)
}

// -----------------------------------------------------------------------------

func TestSettings(t *testing.T) {
	store := newTestStore(t)

	paused, err := store.GetSettingBool("live_paused")
	require.NoError(t, err)
	assert.False(t, paused, "unset settings read as false")

	require.NoError(t, store.SetSettingBool("live_paused", true))
	paused, err = store.GetSettingBool("live_paused")
	require.NoError(t, err)
	assert.True(t, paused)

	require.NoError(t, store.SetSettingBool("live_paused", false))
	paused, err = store.GetSettingBool("live_paused")
	require.NoError(t, err)
	assert.False(t, paused)
}
