package models

import "time"

// -----------------------------------------------------------------------------
// Correlation data types
// -----------------------------------------------------------------------------

const (
	DataTypeVolume = "V"
	DataTypeSlope  = "S"
)

// MCorrelation holds the online (incremental) Pearson correlation between
// price and cumulative volume or cumulative slope for one symbol-day.
// N/D/E are the running co-deviation and auto-deviation accumulators of the
// Welford update; Value is the derived coefficient after Count observations.
type MCorrelation struct {
	Symbol   string    `json:"symbol"`
	Day      time.Time `json:"day"`
	DataType string    `json:"data_type"`

	XMean float64 `json:"x_mean"`
	YMean float64 `json:"y_mean"`
	N     float64 `json:"N"`
	D     float64 `json:"D"`
	E     float64 `json:"E"`
	Count int     `json:"n"`
	Value float64 `json:"value"`
}

// -----------------------------------------------------------------------------
// MRollingCorrelation is a fixed-window Pearson correlation ending at Time,
// recomputed in batch from persisted minutes; never incremental.
// -----------------------------------------------------------------------------

type MRollingCorrelation struct {
	Time     time.Time `json:"time"`
	Symbol   string    `json:"symbol"`
	DataType string    `json:"data_type"`
	Window   int       `json:"window"`
	Value    float64   `json:"value"`
}
