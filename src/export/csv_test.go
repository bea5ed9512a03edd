package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"volume-tracker/src/market"
	"volume-tracker/src/mocks"
	"volume-tracker/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

var testDay = time.Date(2026, 8, 24, 0, 0, 0, 0, market.Location())

func f(v float64) *float64 { return &v }

// -----------------------------------------------------------------------------

func TestWriteDayReadMinutesRoundTrip(t *testing.T) {
	store := mocks.NewStore()
	minutes := market.AllTradingMinutes(testDay)

	rows := []models.MMinute{
		{Time: minutes[0], Symbol: "AAA", Last: f(10.5), Volume: 3, CumulativeVolume: 3, Slope: 1},
		{Time: minutes[1], Symbol: "AAA", Last: f(10.25), Volume: -2, CumulativeVolume: 1, Slope: 0},
		{Time: minutes[2], Symbol: "AAA", Volume: 0, CumulativeVolume: 1, Slope: 0},
	}
	for _, m := range rows {
		require.NoError(t, store.SaveMinute(m))
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDay(&buf, store, "AAA", testDay))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4, "header plus three rows")
	assert.Equal(t, "Symbol,Date,Minute UTC,Last Trade,Minute Volume,Daily Volume,Slope", lines[0])
	assert.Equal(t, "AAA,2026-08-24,13:30,10.5,3,3,1", lines[1])

	parsed, err := ReadMinutes(&buf)
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	for i, m := range parsed {
		assert.True(t, m.Time.Equal(rows[i].Time), "row %d time", i)
		assert.Equal(t, rows[i].Symbol, m.Symbol)
		assert.Equal(t, rows[i].Volume, m.Volume)
		assert.Equal(t, rows[i].CumulativeVolume, m.CumulativeVolume)
		assert.Equal(t, rows[i].Slope, m.Slope)
	}
	require.NotNil(t, parsed[0].Last)
	assert.Equal(t, 10.5, *parsed[0].Last)
	assert.Nil(t, parsed[2].Last, "a blank last trade stays nil")
}

// -----------------------------------------------------------------------------

func TestReadMinutesRejectsMalformedRows(t *testing.T) {
	_, err := ReadMinutes(strings.NewReader(""))
	assert.Error(t, err)

	bad := "Symbol,Date,Minute UTC,Last Trade,Minute Volume,Daily Volume,Slope\n" +
		"AAA,2026-08-24,13:30,not-a-number,3,3,1\n"
	_, err = ReadMinutes(strings.NewReader(bad))
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestImportDayMarksDayComplete(t *testing.T) {
	store := mocks.NewStore()
	minutes := market.AllTradingMinutes(testDay)

	source := mocks.NewStore()
	for i, minute := range minutes {
		price := 10.0
		require.NoError(t, source.SaveMinute(models.MMinute{
			Time: minute, Symbol: "AAA", Last: &price, Volume: 1, CumulativeVolume: float64(i + 1), Slope: i + 1,
		}))
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDay(&buf, source, "AAA", testDay))

	imported, err := ImportDay(&buf, store)
	require.NoError(t, err)
	assert.Equal(t, 390, imported)

	stored, err := store.MinutesForDay("AAA", testDay)
	require.NoError(t, err)
	assert.Len(t, stored, 390)

	dd, ok, err := store.GetDataDay("AAA", testDay)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.DayStateComplete, dd.State, "imported days are left alone by backfill")
}
