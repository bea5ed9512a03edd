package models

import "time"

// -----------------------------------------------------------------------------
// Raw upstream ticks for one symbol-minute, ordered ascending by timestamp.
// -----------------------------------------------------------------------------

// MTrade is a single trade print. Size is nil for administrative or
// otherwise non-tradable prints; the classifier skips those.
type MTrade struct {
	Timestamp int64    `json:"sip_timestamp"` // nanoseconds since epoch
	Price     float64  `json:"price"`
	Size      *float64 `json:"size"`
}

// -----------------------------------------------------------------------------

// MQuote is a single NBBO update. Either side may be missing.
type MQuote struct {
	Timestamp int64    `json:"sip_timestamp"` // nanoseconds since epoch
	Bid       *float64 `json:"bid_price"`
	Ask       *float64 `json:"ask_price"`
}

// -----------------------------------------------------------------------------

// Mid returns the quote midpoint, or false when a side is missing.
func (q MQuote) Mid() (float64, bool) {
	if q.Bid == nil || q.Ask == nil {
		return 0, false
	}
	return (*q.Bid + *q.Ask) / 2, true
}

// -----------------------------------------------------------------------------

// MIndexValue is one minute of an index-level value series.
type MIndexValue struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}
