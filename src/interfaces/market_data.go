package interfaces

import (
	"time"

	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// IMarketData is the upstream provider contract. Empty results are valid
// data; network and payload failures surface as TransientError.
// -----------------------------------------------------------------------------

type IMarketData interface {

	// TradesInMinute returns the minute's trades ordered by timestamp.
	TradesInMinute(symbol string, minute time.Time) ([]models.MTrade, error)

	// -----------------------------------------------------------------------------

	// QuotesInMinute returns the minute's quotes ordered by timestamp.
	QuotesInMinute(symbol string, minute time.Time) ([]models.MQuote, error)

	// -----------------------------------------------------------------------------

	// MidpointBefore returns the midpoint of the most recent two-sided
	// quote strictly before ts.
	MidpointBefore(symbol string, ts time.Time) (float64, error)

	// -----------------------------------------------------------------------------

	// IndexValueSeries returns the day's per-minute index values.
	IndexValueSeries(apiSymbol string, day time.Time) ([]models.MIndexValue, error)

	// -----------------------------------------------------------------------------

	// IndexValueAt returns the index value for one minute, or nil when the
	// upstream has no bar for it.
	IndexValueAt(apiSymbol string, minute time.Time) (*float64, error)

	// -----------------------------------------------------------------------------

	// VerifySymbol reports whether the upstream knows the symbol.
	VerifySymbol(symbol string) (bool, error)
}
