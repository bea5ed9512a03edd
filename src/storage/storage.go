package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"volume-tracker/src/logger"
	"volume-tracker/src/market"
	"volume-tracker/src/models"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------
// SQLStore implements the persistence contract over database/sql with either
// the postgres or the sqlite driver. Queries are written with ? placeholders
// and rebound to $n for postgres.
// -----------------------------------------------------------------------------

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type SQLStore struct {
	Config models.MStorageConfig
	DB     *sql.DB
	Driver string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewStore(cfg models.MStorageConfig, log *logger.Logger) (*SQLStore, error) {
	switch cfg.DBType {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unknown db_type %q", cfg.DBType)
	}

	return &SQLStore{
		Config: cfg,
		Driver: cfg.DBType,
		Logger: log.Named("storage"),
	}, nil
}

// -----------------------------------------------------------------------------

func (s *SQLStore) Initialize() error {
	var dsn string
	if s.Driver == DriverPostgres {
		dsn = s.Config.DBConnectionString
	} else {
		dsn = s.Config.DBPath
	}

	db, err := sql.Open(s.Driver, dsn)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		return err
	}
	s.DB = db

	if s.Driver == DriverSQLite {
		// PRAGMA optimizations
		if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
			s.Logger.Warning("Failed to set WAL mode: %v", err)
		}
		if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
			s.Logger.Warning("Failed to set synchronous mode: %v", err)
		}
		if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
			s.Logger.Warning("Failed to set busy timeout: %v", err)
		}
	}

	if err := s.createTables(); err != nil {
		return err
	}

	s.Logger.Info("storage initialized (%s)", s.Driver)
	return nil
}

// -----------------------------------------------------------------------------

func (s *SQLStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

// rebind rewrites ? placeholders to $n for the postgres driver.
func (s *SQLStore) rebind(query string) string {
	if s.Driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// -----------------------------------------------------------------------------
// Value helpers. Days are stored as YYYY-MM-DD text in the market timezone;
// minute timestamps as unix seconds.
// -----------------------------------------------------------------------------

const dayLayout = "2006-01-02"

func dayKey(t time.Time) string {
	return market.Day(t).Format(dayLayout)
}

func parseDay(s string) (time.Time, error) {
	return time.ParseInLocation(dayLayout, s, market.Location())
}

// dayBounds returns the [midnight, next midnight) range of a day.
func dayBounds(day time.Time) (time.Time, time.Time) {
	d := market.Day(day)
	return d, d.AddDate(0, 0, 1)
}

// -----------------------------------------------------------------------------

func unixOf(t time.Time) int64 {
	return t.Unix()
}

func timeOf(unix int64) time.Time {
	return time.Unix(unix, 0).In(market.Location())
}

// -----------------------------------------------------------------------------

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// -----------------------------------------------------------------------------

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := timeOf(v.Int64)
	return &t
}

// -----------------------------------------------------------------------------

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// -----------------------------------------------------------------------------

// placeholders returns "?, ?, ..." with n entries.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// -----------------------------------------------------------------------------

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
