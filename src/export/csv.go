package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"volume-tracker/src/interfaces"
	"volume-tracker/src/market"
	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// CSV import/export of minute data. The export format round-trips through
// Import, which marks the day COMPLETE so backfill leaves it alone.
// -----------------------------------------------------------------------------

var header = []string{"Symbol", "Date", "Minute UTC", "Last Trade", "Minute Volume", "Daily Volume", "Slope"}

const (
	csvDayLayout    = "2006-01-02"
	csvMinuteLayout = "15:04"
)

// -----------------------------------------------------------------------------

// WriteDay streams one symbol-day as CSV.
func WriteDay(w io.Writer, store interfaces.IStore, symbol string, day time.Time) error {
	minutes, err := store.MinutesForDay(symbol, day)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, m := range minutes {
		last := ""
		if m.Last != nil {
			last = strconv.FormatFloat(*m.Last, 'f', -1, 64)
		}
		record := []string{
			m.Symbol,
			m.Time.In(market.Location()).Format(csvDayLayout),
			m.Time.UTC().Format(csvMinuteLayout),
			last,
			strconv.FormatFloat(m.Volume, 'f', -1, 64),
			strconv.FormatFloat(m.CumulativeVolume, 'f', -1, 64),
			strconv.Itoa(m.Slope),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// -----------------------------------------------------------------------------

// ReadMinutes parses exported CSV back into minute rows.
func ReadMinutes(r io.Reader) ([]models.MMinute, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv")
	}

	var minutes []models.MMinute
	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("row %d: expected %d fields, got %d", i+2, len(header), len(record))
		}

		day, err := time.ParseInLocation(csvDayLayout, record[1], market.Location())
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		utcMinute, err := time.Parse(csvMinuteLayout, record[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		t := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).
			Add(time.Duration(utcMinute.Hour())*time.Hour + time.Duration(utcMinute.Minute())*time.Minute).
			In(market.Location())

		var last *float64
		if record[3] != "" {
			v, err := strconv.ParseFloat(record[3], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+2, err)
			}
			last = &v
		}
		volume, err := strconv.ParseFloat(record[4], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		daily, err := strconv.ParseFloat(record[5], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		slope, err := strconv.Atoi(record[6])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}

		minutes = append(minutes, models.MMinute{
			Time:             t,
			Symbol:           record[0],
			Last:             last,
			Volume:           volume,
			CumulativeVolume: daily,
			Slope:            slope,
		})
	}
	return minutes, nil
}

// -----------------------------------------------------------------------------

// ImportDay loads exported minutes and marks each touched symbol-day
// COMPLETE.
func ImportDay(r io.Reader, store interfaces.IStore) (int, error) {
	minutes, err := ReadMinutes(r)
	if err != nil {
		return 0, err
	}

	type symbolDay struct {
		symbol string
		day    string
	}
	byDay := make(map[symbolDay][]models.MMinute)
	for _, m := range minutes {
		key := symbolDay{symbol: m.Symbol, day: market.Day(m.Time).Format(csvDayLayout)}
		byDay[key] = append(byDay[key], m)
	}

	for key, rows := range byDay {
		day := market.Day(rows[0].Time)
		dd := models.MDataDay{Symbol: key.symbol, Day: day, State: models.DayStateComplete}
		if err := store.StoreDayData(dd, rows, nil, nil); err != nil {
			return 0, err
		}
	}
	return len(minutes), nil
}
