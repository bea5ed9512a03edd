package market

import (
	"time"

	"github.com/scmhub/calendar"

	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// NYSE holiday lookup via scmhub/calendar (ISO 10383 MIC "xnys"). Used by
// the admin surface and day scheduling reports only; minute generation and
// day stepping stay weekday-only.
// -----------------------------------------------------------------------------

type HolidayChecker struct {
	Calendar *calendar.Calendar
	Fallback bool
}

// -----------------------------------------------------------------------------

func NewHolidayChecker() *HolidayChecker {
	cal := calendar.GetCalendar("xnys")
	if cal == nil {
		// Weekday-only fallback, holidays report as trading days
		return &HolidayChecker{Fallback: true}
	}
	return &HolidayChecker{Calendar: cal}
}

// -----------------------------------------------------------------------------

// IsHoliday reports whether day is a weekday on which the exchange is
// closed. Weekends are not holidays.
func (h *HolidayChecker) IsHoliday(day time.Time) bool {
	if !IsWeekday(day) {
		return false
	}
	if h.Fallback {
		return false
	}
	return !h.Calendar.IsBusinessDay(day.In(loc))
}

// -----------------------------------------------------------------------------

// IsTradingDay reports whether day is a weekday and not a holiday.
func (h *HolidayChecker) IsTradingDay(day time.Time) bool {
	return IsWeekday(day) && !h.IsHoliday(day)
}

// -----------------------------------------------------------------------------

// UpcomingHolidays scans the next `days` calendar days and returns a
// MarketHoliday row for each closed weekday, ready for persistence.
func (h *HolidayChecker) UpcomingHolidays(from time.Time, days int) []models.MMarketHoliday {
	var holidays []models.MMarketHoliday

	day := Day(from)
	for i := 0; i < days; i++ {
		if h.IsHoliday(day) {
			holidays = append(holidays, models.MMarketHoliday{
				Day:      day,
				Exchange: "NYSE",
				Status:   "closed",
			})
		}
		day = day.AddDate(0, 0, 1)
	}

	return holidays
}
