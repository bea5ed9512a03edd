package dataday

import (
	"testing"
	"time"

	"volume-tracker/src/logger"
	"volume-tracker/src/market"
	"volume-tracker/src/mocks"
	"volume-tracker/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func withNow(t *testing.T, now time.Time) {
	t.Helper()
	prev := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = prev })
}

func newManager(store *mocks.Store) *Manager {
	return NewManager(store, logger.NewLogger("ERROR", "test"), 15)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, market.Location())
}

// -----------------------------------------------------------------------------

func TestEligible(t *testing.T) {
	m := newManager(mocks.NewStore())
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, market.Location())

	pending := models.MDataDay{Symbol: "AAA", Day: day(2026, 8, 21), State: models.DayStatePending}
	assert.True(t, m.Eligible(pending, now), "never tried")

	old := now.Add(-20 * time.Minute)
	pending.LastTried = &old
	assert.True(t, m.Eligible(pending, now), "tried 20m ago with a 15m wait")

	recent := now.Add(-5 * time.Minute)
	pending.LastTried = &recent
	assert.False(t, m.Eligible(pending, now), "tried 5m ago with a 15m wait")

	live := models.MDataDay{Symbol: "AAA", Day: day(2026, 8, 21), State: models.DayStateLive}
	assert.False(t, m.Eligible(live, now))
	complete := models.MDataDay{Symbol: "AAA", Day: day(2026, 8, 21), State: models.DayStateComplete}
	assert.False(t, m.Eligible(complete, now))
}

// -----------------------------------------------------------------------------

func TestMarkTried(t *testing.T) {
	store := mocks.NewStore()
	m := newManager(store)

	now := time.Date(2026, 8, 24, 12, 0, 0, 0, market.Location())
	withNow(t, now)

	dd := models.MDataDay{Symbol: "AAA", Day: day(2026, 8, 21), State: models.DayStatePending}
	require.NoError(t, store.CreateDataDay(dd))
	require.NoError(t, m.MarkTried(dd))

	stored, ok, err := store.GetDataDay("AAA", day(2026, 8, 21))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.DayStatePending, stored.State, "a failed attempt stays pending")
	require.NotNil(t, stored.LastTried)
	assert.True(t, stored.LastTried.Equal(now))
}

// -----------------------------------------------------------------------------

func TestQueueHorizon(t *testing.T) {
	m := newManager(mocks.NewStore())

	// Mid-session: today is still forming, queue up to yesterday
	withNow(t, time.Date(2026, 8, 24, 12, 0, 0, 0, market.Location()))
	assert.True(t, m.queueHorizon().Equal(day(2026, 8, 24)))

	// After the close: today is fair game
	withNow(t, time.Date(2026, 8, 24, 17, 0, 0, 0, market.Location()))
	assert.True(t, m.queueHorizon().Equal(day(2026, 8, 25)))
}

// -----------------------------------------------------------------------------

func TestQueueDaysSince(t *testing.T) {
	store := mocks.NewStore()
	m := newManager(store)

	// Tuesday after close; queue from the previous Thursday
	withNow(t, time.Date(2026, 8, 25, 17, 0, 0, 0, market.Location()))

	// The Friday already has a row
	require.NoError(t, store.CreateDataDay(models.MDataDay{
		Symbol: "AAA", Day: day(2026, 8, 21), State: models.DayStateComplete,
	}))

	created, err := m.QueueDaysSince("AAA", day(2026, 8, 20))
	require.NoError(t, err)

	// Thu 20, Mon 24, Tue 25; Fri 21 exists, Sat/Sun skipped
	assert.Equal(t, 3, created)

	for _, d := range []time.Time{day(2026, 8, 20), day(2026, 8, 24), day(2026, 8, 25)} {
		dd, ok, err := store.GetDataDay("AAA", d)
		require.NoError(t, err)
		require.True(t, ok, "missing row for %s", d)
		assert.Equal(t, models.DayStatePending, dd.State)
	}
	for _, d := range []time.Time{day(2026, 8, 22), day(2026, 8, 23)} {
		_, ok, err := store.GetDataDay("AAA", d)
		require.NoError(t, err)
		assert.False(t, ok, "weekend day %s was queued", d)
	}

	// Re-queueing is a no-op
	created, err = m.QueueDaysSince("AAA", day(2026, 8, 20))
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

// -----------------------------------------------------------------------------

func TestQueuePastDaysResumesAfterLastKnownDay(t *testing.T) {
	store := mocks.NewStore()
	m := newManager(store)

	withNow(t, time.Date(2026, 8, 25, 17, 0, 0, 0, market.Location()))

	require.NoError(t, store.CreateDataDay(models.MDataDay{
		Symbol: "AAA", Day: day(2026, 8, 21), State: models.DayStateComplete,
	}))

	created, err := m.QueuePastDays("AAA", 30)
	require.NoError(t, err)
	assert.Equal(t, 2, created, "only Mon 24 and Tue 25 follow the last known day")
}

// -----------------------------------------------------------------------------

func TestGetOrCreateLive(t *testing.T) {
	store := mocks.NewStore()
	m := newManager(store)

	d := day(2026, 8, 24)

	// Missing row is created LIVE
	dd, err := m.GetOrCreateLive("AAA", d)
	require.NoError(t, err)
	assert.Equal(t, models.DayStateLive, dd.State)

	// A pending row is promoted and its retry stamp cleared
	tried := time.Date(2026, 8, 24, 9, 0, 0, 0, market.Location())
	require.NoError(t, store.UpdateDataDay(models.MDataDay{
		Symbol: "AAA", Day: d, State: models.DayStatePending, LastTried: &tried,
	}))
	dd, err = m.GetOrCreateLive("AAA", d)
	require.NoError(t, err)
	assert.Equal(t, models.DayStateLive, dd.State)
	assert.Nil(t, dd.LastTried)

	// A complete row is left alone
	require.NoError(t, store.UpdateDataDay(models.MDataDay{
		Symbol: "AAA", Day: d, State: models.DayStateComplete,
	}))
	dd, err = m.GetOrCreateLive("AAA", d)
	require.NoError(t, err)
	assert.Equal(t, models.DayStateComplete, dd.State)
}

// -----------------------------------------------------------------------------

func TestCompleteIfFull(t *testing.T) {
	store := mocks.NewStore()
	m := newManager(store)

	d := day(2026, 8, 24)
	dd := models.MDataDay{Symbol: "AAA", Day: d, State: models.DayStateLive}
	require.NoError(t, store.CreateDataDay(dd))

	minutes := market.AllTradingMinutes(d)
	for _, minute := range minutes[:389] {
		require.NoError(t, store.SaveMinute(models.MMinute{Time: minute, Symbol: "AAA"}))
	}

	flipped, err := m.CompleteIfFull(dd)
	require.NoError(t, err)
	assert.False(t, flipped, "389 of 390 minutes is not a full day")

	require.NoError(t, store.SaveMinute(models.MMinute{Time: minutes[389], Symbol: "AAA"}))
	flipped, err = m.CompleteIfFull(dd)
	require.NoError(t, err)
	assert.True(t, flipped)

	stored, _, err := store.GetDataDay("AAA", d)
	require.NoError(t, err)
	assert.Equal(t, models.DayStateComplete, stored.State)
}
