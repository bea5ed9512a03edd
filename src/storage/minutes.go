package storage

import (
	"database/sql"
	"time"

	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// Minutes
// -----------------------------------------------------------------------------

const minuteColumns = `symbol, time, last, volume, cumulative_volume, last_mid_before, slope`

const minuteUpsert = `
	INSERT INTO minutes (symbol, time, day, last, volume, cumulative_volume, last_mid_before, slope)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (symbol, time) DO UPDATE SET
		last = EXCLUDED.last,
		volume = EXCLUDED.volume,
		cumulative_volume = EXCLUDED.cumulative_volume,
		last_mid_before = EXCLUDED.last_mid_before,
		slope = EXCLUDED.slope`

// -----------------------------------------------------------------------------

func scanMinute(scan func(dest ...interface{}) error) (models.MMinute, error) {
	var m models.MMinute
	var unix int64
	var last, mid sql.NullFloat64

	if err := scan(&m.Symbol, &unix, &last, &m.Volume, &m.CumulativeVolume, &mid, &m.Slope); err != nil {
		return models.MMinute{}, err
	}
	m.Time = timeOf(unix)
	m.Last = floatPtr(last)
	m.LastMidBefore = floatPtr(mid)
	return m, nil
}

func (s *SQLStore) queryMinutes(query string, args ...interface{}) ([]models.MMinute, error) {
	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var minutes []models.MMinute
	for rows.Next() {
		m, err := scanMinute(rows.Scan)
		if err != nil {
			return nil, err
		}
		minutes = append(minutes, m)
	}
	return minutes, rows.Err()
}

// -----------------------------------------------------------------------------

func (s *SQLStore) MinutesForDay(symbol string, day time.Time) ([]models.MMinute, error) {
	query := s.rebind(`
		SELECT ` + minuteColumns + ` FROM minutes
		WHERE symbol = ? AND day = ? ORDER BY time`)
	return s.queryMinutes(query, symbol, dayKey(day))
}

// -----------------------------------------------------------------------------

func (s *SQLStore) MinutesInRange(symbol string, start, end time.Time) ([]models.MMinute, error) {
	query := s.rebind(`
		SELECT ` + minuteColumns + ` FROM minutes
		WHERE symbol = ? AND time >= ? AND time < ? ORDER BY time`)
	return s.queryMinutes(query, symbol, unixOf(start), unixOf(end))
}

// -----------------------------------------------------------------------------

func (s *SQLStore) MinutesAt(symbols []string, t time.Time) ([]models.MMinute, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	query := s.rebind(`
		SELECT ` + minuteColumns + ` FROM minutes
		WHERE time = ? AND symbol IN (` + placeholders(len(symbols)) + `)`)

	args := make([]interface{}, 0, len(symbols)+1)
	args = append(args, unixOf(t))
	for _, symbol := range symbols {
		args = append(args, symbol)
	}
	return s.queryMinutes(query, args...)
}

// -----------------------------------------------------------------------------

func (s *SQLStore) MinuteBefore(symbol string, minute time.Time) (models.MMinute, bool, error) {
	query := s.rebind(`
		SELECT ` + minuteColumns + ` FROM minutes
		WHERE symbol = ? AND time < ? ORDER BY time DESC LIMIT 1`)

	m, err := scanMinute(s.DB.QueryRow(query, symbol, unixOf(minute)).Scan)
	if err != nil {
		if isNoRows(err) {
			return models.MMinute{}, false, nil
		}
		return models.MMinute{}, false, err
	}
	return m, true, nil
}

// -----------------------------------------------------------------------------

func (s *SQLStore) SaveMinute(m models.MMinute) error {
	_, err := s.DB.Exec(s.rebind(minuteUpsert),
		m.Symbol, unixOf(m.Time), dayKey(m.Time),
		nullFloat(m.Last), m.Volume, m.CumulativeVolume, nullFloat(m.LastMidBefore), m.Slope)
	return err
}

// -----------------------------------------------------------------------------

func (s *SQLStore) CountMinutes(symbol string, day time.Time) (int, error) {
	query := s.rebind(`SELECT COUNT(*) FROM minutes WHERE symbol = ? AND day = ?`)

	var count int
	err := s.DB.QueryRow(query, symbol, dayKey(day)).Scan(&count)
	return count, err
}

// -----------------------------------------------------------------------------
// Incoming prices
// -----------------------------------------------------------------------------

func (s *SQLStore) GetIncomingPrice(symbol string, t time.Time) (models.MIncomingPrice, bool, error) {
	query := s.rebind(`SELECT symbol, time, last_mid_before FROM incoming_prices WHERE symbol = ? AND time = ?`)

	var ip models.MIncomingPrice
	var unix int64
	var mid sql.NullFloat64
	err := s.DB.QueryRow(query, symbol, unixOf(t)).Scan(&ip.Symbol, &unix, &mid)
	if err != nil {
		if isNoRows(err) {
			return models.MIncomingPrice{}, false, nil
		}
		return models.MIncomingPrice{}, false, err
	}
	ip.Time = timeOf(unix)
	ip.LastMidBefore = floatPtr(mid)
	return ip, true, nil
}

// -----------------------------------------------------------------------------

func (s *SQLStore) CreateIncomingPrice(ip models.MIncomingPrice) error {
	query := s.rebind(`
		INSERT INTO incoming_prices (symbol, time, last_mid_before)
		VALUES (?, ?, ?)
		ON CONFLICT (symbol, time) DO NOTHING`)

	_, err := s.DB.Exec(query, ip.Symbol, unixOf(ip.Time), nullFloat(ip.LastMidBefore))
	return err
}

// -----------------------------------------------------------------------------

func (s *SQLStore) ClearIncomingPrices() error {
	_, err := s.DB.Exec(`DELETE FROM incoming_prices`)
	return err
}
