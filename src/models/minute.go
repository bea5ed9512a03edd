package models

import "time"

// -----------------------------------------------------------------------------
// MMinute is one classified minute of one symbol.
//
// Last is the price of the chronologically last trade in the minute,
// forward-filled by the aggregator from the previous known trade and nil
// until the first trade of the day. Volume is the signed imbalance for the
// minute (buys positive, sells negative); for indices it is the weighted sum
// of constituent imbalances and therefore fractional. LastMidBefore is the
// quote midpoint carried OUT of this minute, read back as the classification
// reference for the next minute. Slope holds the day-cumulative sum of the
// per-minute -1/0/+1 direction indicators; every correlation consumes this
// cumulative value.
// -----------------------------------------------------------------------------

type MMinute struct {
	Time             time.Time `json:"time"`
	Symbol           string    `json:"symbol"`
	Last             *float64  `json:"last"`
	Volume           float64   `json:"volume"`
	CumulativeVolume float64   `json:"cumulative_volume"`
	LastMidBefore    *float64  `json:"last_mid_before"`
	Slope            int       `json:"slope"`
}

// -----------------------------------------------------------------------------
// MIncomingPrice persists the midpoint that must be carried into the next
// minute when no in-process state survives between live invocations.
// Write-once per (symbol, minute).
// -----------------------------------------------------------------------------

type MIncomingPrice struct {
	Symbol        string    `json:"symbol"`
	Time          time.Time `json:"time"`
	LastMidBefore *float64  `json:"last_mid_before"`
}
