package storage

// -----------------------------------------------------------------------------
// Schema. Portable DDL; existing tables are left untouched so state survives
// restarts. Booleans are stored as 0/1 integers to keep both drivers honest.
// -----------------------------------------------------------------------------

var tables = []string{
	`CREATE TABLE IF NOT EXISTS symbols (
		symbol TEXT PRIMARY KEY,
		name TEXT,
		type TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		api_symbol TEXT NOT NULL DEFAULT ''
	);`,

	`CREATE TABLE IF NOT EXISTS index_weights (
		index_symbol TEXT NOT NULL,
		symbol TEXT NOT NULL,
		weight DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (index_symbol, symbol)
	);`,

	`CREATE TABLE IF NOT EXISTS data_days (
		symbol TEXT NOT NULL,
		day TEXT NOT NULL,
		state TEXT NOT NULL,
		last_tried BIGINT,
		PRIMARY KEY (symbol, day)
	);`,

	`CREATE TABLE IF NOT EXISTS minutes (
		symbol TEXT NOT NULL,
		time BIGINT NOT NULL,
		day TEXT NOT NULL,
		last DOUBLE PRECISION,
		volume DOUBLE PRECISION NOT NULL,
		cumulative_volume DOUBLE PRECISION NOT NULL,
		last_mid_before DOUBLE PRECISION,
		slope INTEGER NOT NULL,
		PRIMARY KEY (symbol, time)
	);`,

	`CREATE TABLE IF NOT EXISTS incoming_prices (
		symbol TEXT NOT NULL,
		time BIGINT NOT NULL,
		last_mid_before DOUBLE PRECISION,
		PRIMARY KEY (symbol, time)
	);`,

	`CREATE TABLE IF NOT EXISTS correlations (
		symbol TEXT NOT NULL,
		day TEXT NOT NULL,
		data_type TEXT NOT NULL,
		x_mean DOUBLE PRECISION NOT NULL DEFAULT 0,
		y_mean DOUBLE PRECISION NOT NULL DEFAULT 0,
		n_accum DOUBLE PRECISION NOT NULL DEFAULT 0,
		d_accum DOUBLE PRECISION NOT NULL DEFAULT 0,
		e_accum DOUBLE PRECISION NOT NULL DEFAULT 0,
		count INTEGER NOT NULL DEFAULT 0,
		value DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (symbol, day, data_type)
	);`,

	`CREATE TABLE IF NOT EXISTS rolling_correlations (
		symbol TEXT NOT NULL,
		time BIGINT NOT NULL,
		data_type TEXT NOT NULL,
		win INTEGER NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (symbol, time, data_type, win)
	);`,

	`CREATE TABLE IF NOT EXISTS market_holidays (
		day TEXT NOT NULL,
		exchange TEXT NOT NULL,
		status TEXT NOT NULL,
		name TEXT,
		open_time BIGINT,
		close_time BIGINT,
		PRIMARY KEY (day, exchange)
	);`,

	`CREATE TABLE IF NOT EXISTS system_settings (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS symbol_groups (
		slug TEXT NOT NULL,
		group_type TEXT NOT NULL,
		name TEXT,
		symbols TEXT NOT NULL,
		PRIMARY KEY (slug, group_type)
	);`,

	`CREATE INDEX IF NOT EXISTS idx_minutes_symbol_day ON minutes (symbol, day);`,
	`CREATE INDEX IF NOT EXISTS idx_data_days_state ON data_days (state, last_tried);`,
	`CREATE INDEX IF NOT EXISTS idx_rolling_symbol_type ON rolling_correlations (symbol, data_type, win, time);`,
}

// -----------------------------------------------------------------------------

func (s *SQLStore) createTables() error {
	for _, ddl := range tables {
		if _, err := s.DB.Exec(ddl); err != nil {
			return err
		}
	}
	return nil
}
