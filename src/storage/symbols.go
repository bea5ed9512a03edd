package storage

import (
	"database/sql"
	"strings"
	"time"

	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// Symbols
// -----------------------------------------------------------------------------

func (s *SQLStore) GetSymbol(symbol string) (models.MSymbol, error) {
	query := s.rebind(`SELECT symbol, name, type, active, api_symbol FROM symbols WHERE symbol = ?`)

	var m models.MSymbol
	var active int
	err := s.DB.QueryRow(query, symbol).Scan(&m.Symbol, &m.Name, &m.Type, &active, &m.APISymbol)
	if err != nil {
		return models.MSymbol{}, err
	}
	m.Active = active != 0
	return m, nil
}

// -----------------------------------------------------------------------------

func (s *SQLStore) ActiveSymbols(symbolType string) ([]models.MSymbol, error) {
	query := s.rebind(`
		SELECT symbol, name, type, active, api_symbol FROM symbols
		WHERE type = ? AND active = 1
		ORDER BY symbol`)

	rows, err := s.DB.Query(query, symbolType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []models.MSymbol
	for rows.Next() {
		var m models.MSymbol
		var active int
		if err := rows.Scan(&m.Symbol, &m.Name, &m.Type, &active, &m.APISymbol); err != nil {
			return nil, err
		}
		m.Active = active != 0
		symbols = append(symbols, m)
	}
	return symbols, rows.Err()
}

// -----------------------------------------------------------------------------

func (s *SQLStore) CreateSymbol(symbol models.MSymbol) error {
	query := s.rebind(`
		INSERT INTO symbols (symbol, name, type, active, api_symbol)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			active = EXCLUDED.active,
			api_symbol = EXCLUDED.api_symbol`)

	_, err := s.DB.Exec(query, symbol.Symbol, symbol.Name, symbol.Type, boolInt(symbol.Active), symbol.APISymbol)
	return err
}

// -----------------------------------------------------------------------------

func (s *SQLStore) SetSymbolActive(symbol string, active bool) error {
	query := s.rebind(`UPDATE symbols SET active = ? WHERE symbol = ?`)
	_, err := s.DB.Exec(query, boolInt(active), symbol)
	return err
}

// -----------------------------------------------------------------------------
// Index weights
// -----------------------------------------------------------------------------

func (s *SQLStore) WeightsFor(index string) (map[string]float64, error) {
	query := s.rebind(`SELECT symbol, weight FROM index_weights WHERE index_symbol = ?`)

	rows, err := s.DB.Query(query, index)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	weights := make(map[string]float64)
	for rows.Next() {
		var symbol string
		var weight float64
		if err := rows.Scan(&symbol, &weight); err != nil {
			return nil, err
		}
		weights[symbol] = weight
	}
	return weights, rows.Err()
}

// -----------------------------------------------------------------------------

func (s *SQLStore) ReplaceWeights(index string, weights map[string]float64) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(s.rebind(`DELETE FROM index_weights WHERE index_symbol = ?`), index); err != nil {
		return err
	}

	stmt, err := tx.Prepare(s.rebind(`INSERT INTO index_weights (index_symbol, symbol, weight) VALUES (?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for symbol, weight := range weights {
		if _, err := stmt.Exec(index, symbol, weight); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// -----------------------------------------------------------------------------
// Market holidays
// -----------------------------------------------------------------------------

func (s *SQLStore) SaveMarketHolidays(holidays []models.MMarketHoliday) (int, error) {
	if len(holidays) == 0 {
		return 0, nil
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(s.rebind(`
		INSERT INTO market_holidays (day, exchange, status, name, open_time, close_time)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (day, exchange) DO UPDATE SET
			status = EXCLUDED.status,
			name = EXCLUDED.name,
			open_time = EXCLUDED.open_time,
			close_time = EXCLUDED.close_time`))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, h := range holidays {
		if _, err := stmt.Exec(dayKey(h.Day), h.Exchange, h.Status, h.Name, nullUnix(h.Open), nullUnix(h.Close)); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(holidays), nil
}

// -----------------------------------------------------------------------------

func (s *SQLStore) HolidayForDay(day time.Time) (models.MMarketHoliday, bool, error) {
	query := s.rebind(`
		SELECT day, exchange, status, name, open_time, close_time
		FROM market_holidays WHERE day = ?`)

	var h models.MMarketHoliday
	var dayStr string
	var open, closeTime sql.NullInt64
	err := s.DB.QueryRow(query, dayKey(day)).Scan(&dayStr, &h.Exchange, &h.Status, &h.Name, &open, &closeTime)
	if err != nil {
		if isNoRows(err) {
			return models.MMarketHoliday{}, false, nil
		}
		return models.MMarketHoliday{}, false, err
	}

	h.Day, err = parseDay(dayStr)
	if err != nil {
		return models.MMarketHoliday{}, false, err
	}
	h.Open = timePtr(open)
	h.Close = timePtr(closeTime)
	return h, true, nil
}

// -----------------------------------------------------------------------------
// System settings
// -----------------------------------------------------------------------------

func (s *SQLStore) GetSettingBool(name string) (bool, error) {
	query := s.rebind(`SELECT value FROM system_settings WHERE name = ?`)

	var value int
	err := s.DB.QueryRow(query, name).Scan(&value)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return value != 0, nil
}

// -----------------------------------------------------------------------------

func (s *SQLStore) SetSettingBool(name string, value bool) error {
	query := s.rebind(`
		INSERT INTO system_settings (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`)

	_, err := s.DB.Exec(query, name, boolInt(value))
	return err
}

// -----------------------------------------------------------------------------
// Groups. Symbol lists are stored comma-joined; symbols are plain tickers.
// -----------------------------------------------------------------------------

func (s *SQLStore) GroupsByType(groupType string) ([]models.MGroup, error) {
	query := s.rebind(`
		SELECT slug, group_type, name, symbols FROM symbol_groups
		WHERE group_type = ? ORDER BY slug`)

	rows, err := s.DB.Query(query, groupType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.MGroup
	for rows.Next() {
		var g models.MGroup
		var joined string
		if err := rows.Scan(&g.Slug, &g.GroupType, &g.Name, &joined); err != nil {
			return nil, err
		}
		if joined != "" {
			g.Symbols = strings.Split(joined, ",")
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// -----------------------------------------------------------------------------

func (s *SQLStore) SaveGroup(group models.MGroup) error {
	query := s.rebind(`
		INSERT INTO symbol_groups (slug, group_type, name, symbols)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (slug, group_type) DO UPDATE SET
			name = EXCLUDED.name,
			symbols = EXCLUDED.symbols`)

	_, err := s.DB.Exec(query, group.Slug, group.GroupType, group.Name, strings.Join(group.Symbols, ","))
	return err
}
