package calculate

import (
	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// Tick rule classification: each trade is compared to the most recent quote
// midpoint at or before it. Above the mid adds the trade size to the minute
// imbalance, below subtracts it, exactly at the mid contributes nothing.
// -----------------------------------------------------------------------------

// Classify processes one symbol-minute. quotes and trades must be ascending
// by timestamp. incomingMid is the midpoint carried in from the previous
// minute; it remains the working reference until the minute's first usable
// quote. The returned midpoint is the one to carry into the next minute:
// the mid of the minute's last valid quote, or incomingMid when the minute
// has no valid quote.
func Classify(quotes []models.MQuote, trades []models.MTrade, incomingMid *float64) (float64, *float64) {
	totalVolume := 0.0
	mid := incomingMid

	outgoingMid := incomingMid
	for i := len(quotes) - 1; i >= 0; i-- {
		if m, ok := quotes[i].Mid(); ok {
			outgoingMid = &m
			break
		}
	}

	cursor := 0
	for _, trade := range trades {
		if trade.Size == nil {
			// A fictitious trade
			continue
		}

		// Advance to the most recent quote at or before the trade; one-sided
		// quotes are consumed without moving the working midpoint
		for cursor < len(quotes) && quotes[cursor].Timestamp <= trade.Timestamp {
			if m, ok := quotes[cursor].Mid(); ok {
				mid = &m
			}
			cursor++
		}

		if mid == nil {
			// No reference midpoint yet; the trade is unclassifiable
			continue
		}

		if trade.Price > *mid {
			totalVolume += *trade.Size
		} else if trade.Price < *mid {
			totalVolume -= *trade.Size
		}
	}

	return totalVolume, outgoingMid
}

// -----------------------------------------------------------------------------

// LastPrice returns the price of the chronologically last trade in the
// minute, or nil when the minute had no trades. Callers forward-fill.
func LastPrice(trades []models.MTrade) *float64 {
	if len(trades) == 0 {
		return nil
	}
	price := trades[len(trades)-1].Price
	return &price
}

// -----------------------------------------------------------------------------

// Slope derives the three-valued direction indicator from a minute's
// signed volume.
func Slope(minuteVolume float64) int {
	if minuteVolume > 0 {
		return 1
	} else if minuteVolume < 0 {
		return -1
	}
	return 0
}

// -----------------------------------------------------------------------------

// WeightedVolume combines constituent minute volumes by index weight.
func WeightedVolume(weights map[string]float64, values map[string]models.MMinute) float64 {
	volume := 0.0
	for symbol, weight := range weights {
		volume += values[symbol].Volume * weight
	}
	return volume
}
