package interfaces

import (
	"time"

	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// IStore defines the persistence contract. Implementations must support
// the atomic multi-row commit used by StoreDayData.
// -----------------------------------------------------------------------------

type IStore interface {

	// Initialize opens the connection and creates missing tables.
	Initialize() error

	// -----------------------------------------------------------------------------
	// Symbols
	// -----------------------------------------------------------------------------

	GetSymbol(symbol string) (models.MSymbol, error)

	// ActiveSymbols returns active symbols of one type, ordered by code.
	ActiveSymbols(symbolType string) ([]models.MSymbol, error)

	CreateSymbol(symbol models.MSymbol) error

	SetSymbolActive(symbol string, active bool) error

	// -----------------------------------------------------------------------------
	// Index weights (read-mostly; replaced wholesale by the admin surface)
	// -----------------------------------------------------------------------------

	WeightsFor(index string) (map[string]float64, error)

	ReplaceWeights(index string, weights map[string]float64) error

	// -----------------------------------------------------------------------------
	// Data days / state machine
	// -----------------------------------------------------------------------------

	GetDataDay(symbol string, day time.Time) (models.MDataDay, bool, error)

	CreateDataDay(dd models.MDataDay) error

	BulkCreateDataDays(days []models.MDataDay) error

	// UpdateDataDay rewrites state and last_tried for one (symbol, day).
	UpdateDataDay(dd models.MDataDay) error

	// LastDataDay returns the most recent DataDay row for a symbol.
	LastDataDay(symbol string) (models.MDataDay, bool, error)

	// OutstandingDays selects PENDING days eligible for (re)processing:
	// never tried, or last tried at or before retryBefore. Ordered
	// oldest-tried-first with never-tried first.
	OutstandingDays(symbolType string, retryBefore time.Time) ([]models.MDataDay, error)

	// CompleteDaySymbols returns which of the given symbols have a COMPLETE
	// day for the given date.
	CompleteDaySymbols(symbols []string, day time.Time) (map[string]bool, error)

	// -----------------------------------------------------------------------------
	// Minutes
	// -----------------------------------------------------------------------------

	// MinutesForDay returns the symbol's minutes for the day, ascending.
	MinutesForDay(symbol string, day time.Time) ([]models.MMinute, error)

	// MinutesInRange returns minutes with start <= time < end, ascending.
	MinutesInRange(symbol string, start, end time.Time) ([]models.MMinute, error)

	// MinutesAt returns the minute rows of several symbols at one timestamp.
	MinutesAt(symbols []string, t time.Time) ([]models.MMinute, error)

	MinuteBefore(symbol string, minute time.Time) (models.MMinute, bool, error)

	SaveMinute(m models.MMinute) error

	CountMinutes(symbol string, day time.Time) (int, error)

	// -----------------------------------------------------------------------------
	// Incoming prices (live cold-start continuity)
	// -----------------------------------------------------------------------------

	GetIncomingPrice(symbol string, t time.Time) (models.MIncomingPrice, bool, error)

	CreateIncomingPrice(ip models.MIncomingPrice) error

	ClearIncomingPrices() error

	// -----------------------------------------------------------------------------
	// Correlations
	// -----------------------------------------------------------------------------

	CorrelationsForDay(day time.Time, dataType string) ([]models.MCorrelation, error)

	UpsertCorrelations(corrs []models.MCorrelation) error

	// RollingMinutes returns the timestamps that already have a rolling
	// correlation row for (symbol, day, dataType, window).
	RollingMinutes(symbol string, day time.Time, dataType string, window int) ([]time.Time, error)

	SaveRollingCorrelation(rc models.MRollingCorrelation) error

	RollingForRange(symbol string, start, end time.Time, dataType string, window int) ([]models.MRollingCorrelation, error)

	// -----------------------------------------------------------------------------
	// Day completion (single transaction)
	// -----------------------------------------------------------------------------

	// StoreDayData atomically persists a completed day: the full minute
	// set, whole-day correlations, rolling correlations, and the DataDay
	// flip to COMPLETE with last_tried cleared. Partial persistence of a
	// day must never be observable.
	StoreDayData(dd models.MDataDay, minutes []models.MMinute,
		correlations []models.MCorrelation, rolling []models.MRollingCorrelation) error

	// -----------------------------------------------------------------------------
	// Market holidays
	// -----------------------------------------------------------------------------

	SaveMarketHolidays(holidays []models.MMarketHoliday) (int, error)

	HolidayForDay(day time.Time) (models.MMarketHoliday, bool, error)

	// -----------------------------------------------------------------------------
	// System settings
	// -----------------------------------------------------------------------------

	GetSettingBool(name string) (bool, error)

	SetSettingBool(name string, value bool) error

	// -----------------------------------------------------------------------------
	// Groups
	// -----------------------------------------------------------------------------

	GroupsByType(groupType string) ([]models.MGroup, error)

	SaveGroup(group models.MGroup) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
