package models

import "time"

// -----------------------------------------------------------------------------
// DataDay states
// -----------------------------------------------------------------------------

const (
	DayStatePending  = "P"
	DayStateLive     = "L"
	DayStateComplete = "C"
)

// MDataDay is the unit of backfill work: one symbol's data for one trading
// day. COMPLETE days have exactly one Minute row per trading minute.
type MDataDay struct {
	Symbol    string     `json:"symbol"`
	Day       time.Time  `json:"day"` // date only, midnight in the market timezone
	State     string     `json:"state"`
	LastTried *time.Time `json:"last_tried"`
}

// -----------------------------------------------------------------------------

func (d MDataDay) HasData() bool {
	return d.State == DayStateComplete || d.State == DayStateLive
}
