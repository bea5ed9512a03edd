package storage

import (
	"database/sql"
	"time"

	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// Whole-day correlations
// -----------------------------------------------------------------------------

const correlationUpsert = `
	INSERT INTO correlations (symbol, day, data_type, x_mean, y_mean, n_accum, d_accum, e_accum, count, value)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (symbol, day, data_type) DO UPDATE SET
		x_mean = EXCLUDED.x_mean,
		y_mean = EXCLUDED.y_mean,
		n_accum = EXCLUDED.n_accum,
		d_accum = EXCLUDED.d_accum,
		e_accum = EXCLUDED.e_accum,
		count = EXCLUDED.count,
		value = EXCLUDED.value`

func execCorrelationUpsert(stmt *sql.Stmt, c models.MCorrelation) error {
	_, err := stmt.Exec(c.Symbol, dayKey(c.Day), c.DataType, c.XMean, c.YMean, c.N, c.D, c.E, c.Count, c.Value)
	return err
}

// -----------------------------------------------------------------------------

func (s *SQLStore) CorrelationsForDay(day time.Time, dataType string) ([]models.MCorrelation, error) {
	query := s.rebind(`
		SELECT symbol, day, data_type, x_mean, y_mean, n_accum, d_accum, e_accum, count, value
		FROM correlations WHERE day = ? AND data_type = ? ORDER BY symbol`)

	rows, err := s.DB.Query(query, dayKey(day), dataType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var corrs []models.MCorrelation
	for rows.Next() {
		var c models.MCorrelation
		var dayStr string
		if err := rows.Scan(&c.Symbol, &dayStr, &c.DataType, &c.XMean, &c.YMean, &c.N, &c.D, &c.E, &c.Count, &c.Value); err != nil {
			return nil, err
		}
		c.Day, err = parseDay(dayStr)
		if err != nil {
			return nil, err
		}
		corrs = append(corrs, c)
	}
	return corrs, rows.Err()
}

// -----------------------------------------------------------------------------

func (s *SQLStore) UpsertCorrelations(corrs []models.MCorrelation) error {
	if len(corrs) == 0 {
		return nil
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(s.rebind(correlationUpsert))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range corrs {
		if err := execCorrelationUpsert(stmt, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// -----------------------------------------------------------------------------
// Rolling correlations
// -----------------------------------------------------------------------------

const rollingUpsert = `
	INSERT INTO rolling_correlations (symbol, time, data_type, win, value)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (symbol, time, data_type, win) DO UPDATE SET value = EXCLUDED.value`

// -----------------------------------------------------------------------------

func (s *SQLStore) RollingMinutes(symbol string, day time.Time, dataType string, window int) ([]time.Time, error) {
	start, end := dayBounds(day)
	query := s.rebind(`
		SELECT time FROM rolling_correlations
		WHERE symbol = ? AND data_type = ? AND win = ? AND time >= ? AND time < ?
		ORDER BY time`)

	rows, err := s.DB.Query(query, symbol, dataType, window, start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var unix int64
		if err := rows.Scan(&unix); err != nil {
			return nil, err
		}
		times = append(times, timeOf(unix))
	}
	return times, rows.Err()
}

// -----------------------------------------------------------------------------

func (s *SQLStore) SaveRollingCorrelation(rc models.MRollingCorrelation) error {
	_, err := s.DB.Exec(s.rebind(rollingUpsert), rc.Symbol, unixOf(rc.Time), rc.DataType, rc.Window, rc.Value)
	return err
}

// -----------------------------------------------------------------------------

func (s *SQLStore) RollingForRange(symbol string, start, end time.Time, dataType string, window int) ([]models.MRollingCorrelation, error) {
	query := s.rebind(`
		SELECT symbol, time, data_type, win, value FROM rolling_correlations
		WHERE symbol = ? AND data_type = ? AND win = ? AND time >= ? AND time < ?
		ORDER BY time`)

	rows, err := s.DB.Query(query, symbol, dataType, window, unixOf(start), unixOf(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rcs []models.MRollingCorrelation
	for rows.Next() {
		var rc models.MRollingCorrelation
		var unix int64
		if err := rows.Scan(&rc.Symbol, &unix, &rc.DataType, &rc.Window, &rc.Value); err != nil {
			return nil, err
		}
		rc.Time = timeOf(unix)
		rcs = append(rcs, rc)
	}
	return rcs, rows.Err()
}

// -----------------------------------------------------------------------------
// Day completion
// -----------------------------------------------------------------------------

// StoreDayData commits a finished day in one transaction: the minute grid,
// the whole-day correlations, the rolling correlations, and the state flip
// to COMPLETE. Either everything lands or nothing does.
func (s *SQLStore) StoreDayData(dd models.MDataDay, minutes []models.MMinute,
	correlations []models.MCorrelation, rolling []models.MRollingCorrelation) error {

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	minuteStmt, err := tx.Prepare(s.rebind(minuteUpsert))
	if err != nil {
		return err
	}
	defer minuteStmt.Close()

	for _, m := range minutes {
		_, err := minuteStmt.Exec(m.Symbol, unixOf(m.Time), dayKey(m.Time),
			nullFloat(m.Last), m.Volume, m.CumulativeVolume, nullFloat(m.LastMidBefore), m.Slope)
		if err != nil {
			return err
		}
	}

	if len(correlations) > 0 {
		corrStmt, err := tx.Prepare(s.rebind(correlationUpsert))
		if err != nil {
			return err
		}
		defer corrStmt.Close()

		for _, c := range correlations {
			if err := execCorrelationUpsert(corrStmt, c); err != nil {
				return err
			}
		}
	}

	if len(rolling) > 0 {
		rollStmt, err := tx.Prepare(s.rebind(rollingUpsert))
		if err != nil {
			return err
		}
		defer rollStmt.Close()

		for _, rc := range rolling {
			if _, err := rollStmt.Exec(rc.Symbol, unixOf(rc.Time), rc.DataType, rc.Window, rc.Value); err != nil {
				return err
			}
		}
	}

	dayQuery := s.rebind(`
		INSERT INTO data_days (symbol, day, state, last_tried)
		VALUES (?, ?, ?, NULL)
		ON CONFLICT (symbol, day) DO UPDATE SET state = EXCLUDED.state, last_tried = NULL`)
	if _, err := tx.Exec(dayQuery, dd.Symbol, dayKey(dd.Day), models.DayStateComplete); err != nil {
		return err
	}

	return tx.Commit()
}
