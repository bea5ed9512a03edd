package market

import (
	"time"
)

// -----------------------------------------------------------------------------
// Exchange session arithmetic. Fixed local hours 09:30-16:00; the last
// tradable minute is 15:59. Day stepping is weekday-only; holiday status
// lives in holidays.go and is not consulted here.
// -----------------------------------------------------------------------------

const (
	OpenHour    = 9
	OpenMinute  = 30
	CloseHour   = 16
	CloseMinute = 0
)

const OneMinute = time.Minute

var loc = mustLoadLocation()

// nowFunc is swapped out by tests.
var nowFunc = time.Now

// -----------------------------------------------------------------------------

func mustLoadLocation() *time.Location {
	l, err := time.LoadLocation("America/New_York")
	if err != nil {
		// Containers without tzdata; session boundaries shift but stay usable
		return time.UTC
	}
	return l
}

// -----------------------------------------------------------------------------

// Location returns the exchange-local timezone.
func Location() *time.Location {
	return loc
}

// -----------------------------------------------------------------------------

// Day truncates a timestamp to midnight in the exchange timezone. All day
// keys in storage use this form.
func Day(t time.Time) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// -----------------------------------------------------------------------------

// Minute truncates a timestamp to the start of its minute.
func Minute(t time.Time) time.Time {
	return t.Truncate(OneMinute)
}

// -----------------------------------------------------------------------------

// OpenClose returns the session open and close for a calendar day. The
// close timestamp itself is not a tradable minute.
func OpenClose(day time.Time) (time.Time, time.Time) {
	y, m, d := day.In(loc).Date()
	open := time.Date(y, m, d, OpenHour, OpenMinute, 0, 0, loc)
	close := time.Date(y, m, d, CloseHour, CloseMinute, 0, 0, loc)
	return open, close
}

// -----------------------------------------------------------------------------

// FirstLastMinute returns the opening minute and the last tradable minute.
func FirstLastMinute(day time.Time) (time.Time, time.Time) {
	open, close := OpenClose(day)
	return open, close.Add(-OneMinute)
}

// -----------------------------------------------------------------------------

// AllTradingMinutes returns every minute of the session [open, close),
// ascending, one-minute step.
func AllTradingMinutes(day time.Time) []time.Time {
	open, close := OpenClose(day)

	minutes := make([]time.Time, 0, CountMinutesInTradingDay())
	for current := open; current.Before(close); current = current.Add(OneMinute) {
		minutes = append(minutes, current)
	}
	return minutes
}

// -----------------------------------------------------------------------------

// TradingMinutes returns the session minutes of until's day bounded above
// by min(until, now-1m), excluding the still-forming current minute.
func TradingMinutes(until time.Time) []time.Time {
	bound := nowFunc().Add(-OneMinute)
	if bound.Before(until) {
		until = bound
	}

	open, _ := OpenClose(until)

	var minutes []time.Time
	for current := open; current.Before(until); current = current.Add(OneMinute) {
		minutes = append(minutes, current)
	}
	return minutes
}

// -----------------------------------------------------------------------------

// TradingMinutesForDay is TradingMinutes bounded by the day's close.
func TradingMinutesForDay(day time.Time) []time.Time {
	_, close := OpenClose(day)
	return TradingMinutes(close)
}

// -----------------------------------------------------------------------------

// CurrentMinute returns the most recent fully-formed minute.
func CurrentMinute() time.Time {
	return Minute(nowFunc()).Add(-OneMinute)
}

// -----------------------------------------------------------------------------

// IsOpeningMinute reports whether t is the session's first minute.
func IsOpeningMinute(t time.Time) bool {
	local := t.In(loc)
	return local.Hour() == OpenHour && local.Minute() == OpenMinute
}

// -----------------------------------------------------------------------------

// IsClosingMinute reports whether t is the last tradable minute (close-1m).
func IsClosingMinute(t time.Time) bool {
	_, last := FirstLastMinute(t)
	return t.Equal(last)
}

// -----------------------------------------------------------------------------

// CountMinutesInTradingDay returns the number of minutes in a full session.
func CountMinutesInTradingDay() int {
	return (CloseHour-OpenHour)*60 + (CloseMinute - OpenMinute)
}

// -----------------------------------------------------------------------------

// IsWeekday reports whether day falls Monday through Friday.
func IsWeekday(day time.Time) bool {
	wd := day.In(loc).Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// -----------------------------------------------------------------------------

func stepTradingDay(day time.Time, delta int) time.Time {
	for {
		day = day.AddDate(0, 0, delta)
		if IsWeekday(day) {
			return day
		}
	}
}

// -----------------------------------------------------------------------------

// PreviousTradingDay steps back to the previous weekday.
func PreviousTradingDay(day time.Time) time.Time {
	return stepTradingDay(day, -1)
}

// -----------------------------------------------------------------------------

// NextTradingDay steps forward to the next weekday.
func NextTradingDay(day time.Time) time.Time {
	return stepTradingDay(day, 1)
}
