package storage

import (
	"database/sql"
	"time"

	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// Data days
// -----------------------------------------------------------------------------

func scanDataDay(scan func(dest ...interface{}) error) (models.MDataDay, error) {
	var dd models.MDataDay
	var dayStr string
	var lastTried sql.NullInt64

	if err := scan(&dd.Symbol, &dayStr, &dd.State, &lastTried); err != nil {
		return models.MDataDay{}, err
	}

	day, err := parseDay(dayStr)
	if err != nil {
		return models.MDataDay{}, err
	}
	dd.Day = day
	dd.LastTried = timePtr(lastTried)
	return dd, nil
}

// -----------------------------------------------------------------------------

func (s *SQLStore) GetDataDay(symbol string, day time.Time) (models.MDataDay, bool, error) {
	query := s.rebind(`SELECT symbol, day, state, last_tried FROM data_days WHERE symbol = ? AND day = ?`)

	dd, err := scanDataDay(s.DB.QueryRow(query, symbol, dayKey(day)).Scan)
	if err != nil {
		if isNoRows(err) {
			return models.MDataDay{}, false, nil
		}
		return models.MDataDay{}, false, err
	}
	return dd, true, nil
}

// -----------------------------------------------------------------------------

func (s *SQLStore) CreateDataDay(dd models.MDataDay) error {
	query := s.rebind(`INSERT INTO data_days (symbol, day, state, last_tried) VALUES (?, ?, ?, ?)`)
	_, err := s.DB.Exec(query, dd.Symbol, dayKey(dd.Day), dd.State, nullUnix(dd.LastTried))
	return err
}

// -----------------------------------------------------------------------------

func (s *SQLStore) BulkCreateDataDays(days []models.MDataDay) error {
	if len(days) == 0 {
		return nil
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(s.rebind(`
		INSERT INTO data_days (symbol, day, state, last_tried)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (symbol, day) DO NOTHING`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, dd := range days {
		if _, err := stmt.Exec(dd.Symbol, dayKey(dd.Day), dd.State, nullUnix(dd.LastTried)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (s *SQLStore) UpdateDataDay(dd models.MDataDay) error {
	query := s.rebind(`UPDATE data_days SET state = ?, last_tried = ? WHERE symbol = ? AND day = ?`)
	_, err := s.DB.Exec(query, dd.State, nullUnix(dd.LastTried), dd.Symbol, dayKey(dd.Day))
	return err
}

// -----------------------------------------------------------------------------

func (s *SQLStore) LastDataDay(symbol string) (models.MDataDay, bool, error) {
	query := s.rebind(`
		SELECT symbol, day, state, last_tried FROM data_days
		WHERE symbol = ? ORDER BY day DESC LIMIT 1`)

	dd, err := scanDataDay(s.DB.QueryRow(query, symbol).Scan)
	if err != nil {
		if isNoRows(err) {
			return models.MDataDay{}, false, nil
		}
		return models.MDataDay{}, false, err
	}
	return dd, true, nil
}

// -----------------------------------------------------------------------------

// OutstandingDays returns eligible PENDING days of one symbol type:
// never-tried first, then oldest-tried, then oldest day.
func (s *SQLStore) OutstandingDays(symbolType string, retryBefore time.Time) ([]models.MDataDay, error) {
	query := s.rebind(`
		SELECT d.symbol, d.day, d.state, d.last_tried
		FROM data_days d
		JOIN symbols s ON s.symbol = d.symbol
		WHERE s.type = ? AND s.active = 1 AND d.state = ?
		  AND (d.last_tried IS NULL OR d.last_tried <= ?)
		ORDER BY CASE WHEN d.last_tried IS NULL THEN 0 ELSE 1 END, d.last_tried ASC, d.day ASC`)

	rows, err := s.DB.Query(query, symbolType, models.DayStatePending, retryBefore.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []models.MDataDay
	for rows.Next() {
		dd, err := scanDataDay(rows.Scan)
		if err != nil {
			return nil, err
		}
		days = append(days, dd)
	}
	return days, rows.Err()
}

// -----------------------------------------------------------------------------

func (s *SQLStore) CompleteDaySymbols(symbols []string, day time.Time) (map[string]bool, error) {
	complete := make(map[string]bool, len(symbols))
	if len(symbols) == 0 {
		return complete, nil
	}

	query := s.rebind(`
		SELECT symbol FROM data_days
		WHERE day = ? AND state = ? AND symbol IN (` + placeholders(len(symbols)) + `)`)

	args := make([]interface{}, 0, len(symbols)+2)
	args = append(args, dayKey(day), models.DayStateComplete)
	for _, symbol := range symbols {
		args = append(args, symbol)
	}

	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, err
		}
		complete[symbol] = true
	}
	return complete, rows.Err()
}
