package dataday

import (
	"time"

	"volume-tracker/src/interfaces"
	"volume-tracker/src/logger"
	"volume-tracker/src/market"
	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// Manager drives the PENDING -> LIVE/COMPLETE day state machine. A day is
// queued as PENDING, picked up by backfill when it has never been tried or
// its last attempt is old enough, and flipped to COMPLETE in the same
// transaction that persists its data. Live processing owns the LIVE state.
// -----------------------------------------------------------------------------

type Manager struct {
	store     interfaces.IStore
	log       *logger.Logger
	retryWait time.Duration
}

// nowFunc is swapped out by tests.
var nowFunc = time.Now

// -----------------------------------------------------------------------------

func NewManager(store interfaces.IStore, log *logger.Logger, retryWaitMinutes int) *Manager {
	return &Manager{
		store:     store,
		log:       log.Named("dataday"),
		retryWait: time.Duration(retryWaitMinutes) * time.Minute,
	}
}

// -----------------------------------------------------------------------------

// Outstanding returns the PENDING days of one symbol type that are
// eligible now: never tried, or last tried at least the retry wait ago.
// Never-tried days come first, then oldest-tried.
func (m *Manager) Outstanding(symbolType string) ([]models.MDataDay, error) {
	retryBefore := nowFunc().Add(-m.retryWait)
	return m.store.OutstandingDays(symbolType, retryBefore)
}

// -----------------------------------------------------------------------------

// Eligible reports whether a PENDING day may be attempted at now.
func (m *Manager) Eligible(dd models.MDataDay, now time.Time) bool {
	if dd.State != models.DayStatePending {
		return false
	}
	if dd.LastTried == nil {
		return true
	}
	return !dd.LastTried.After(now.Add(-m.retryWait))
}

// -----------------------------------------------------------------------------

// MarkTried timestamps a failed attempt; the day stays PENDING and becomes
// eligible again after the retry wait.
func (m *Manager) MarkTried(dd models.MDataDay) error {
	now := nowFunc()
	dd.State = models.DayStatePending
	dd.LastTried = &now
	return m.store.UpdateDataDay(dd)
}

// -----------------------------------------------------------------------------

// queueHorizon is the exclusive upper bound for queueing: today while the
// session is still open, tomorrow once today's close has passed.
func (m *Manager) queueHorizon() time.Time {
	now := nowFunc()
	today := market.Day(now)
	_, sessionClose := market.OpenClose(today)
	if now.Before(sessionClose) {
		return today
	}
	return today.AddDate(0, 0, 1)
}

// -----------------------------------------------------------------------------

// QueueDaysSince creates PENDING rows for every weekday from `from` up to
// the queue horizon, skipping days that already have a row. Returns the
// number of rows created.
func (m *Manager) QueueDaysSince(symbol string, from time.Time) (int, error) {
	horizon := m.queueHorizon()

	var created []models.MDataDay
	for day := market.Day(from); day.Before(horizon); day = day.AddDate(0, 0, 1) {
		if !market.IsWeekday(day) {
			continue
		}
		if _, exists, err := m.store.GetDataDay(symbol, day); err != nil {
			return 0, err
		} else if exists {
			continue
		}
		created = append(created, models.MDataDay{
			Symbol: symbol,
			Day:    day,
			State:  models.DayStatePending,
		})
	}

	if len(created) == 0 {
		return 0, nil
	}
	if err := m.store.BulkCreateDataDays(created); err != nil {
		return 0, err
	}
	m.log.Info("queued %d days for %s", len(created), symbol)
	return len(created), nil
}

// -----------------------------------------------------------------------------

// QueuePastDays queues the symbol starting after its most recent known day,
// or `days` weekdays back when the symbol has no history yet.
func (m *Manager) QueuePastDays(symbol string, days int) (int, error) {
	last, ok, err := m.store.LastDataDay(symbol)
	if err != nil {
		return 0, err
	}

	var from time.Time
	if ok {
		from = last.Day.AddDate(0, 0, 1)
	} else {
		from = market.Day(nowFunc())
		for i := 0; i < days; i++ {
			from = market.PreviousTradingDay(from)
		}
	}
	return m.QueueDaysSince(symbol, from)
}

// -----------------------------------------------------------------------------

// QueueActiveSymbols queues past days for every active stock and index.
func (m *Manager) QueueActiveSymbols(days int) (int, error) {
	total := 0
	for _, symbolType := range []string{models.SymbolTypeStock, models.SymbolTypeIndex} {
		symbols, err := m.store.ActiveSymbols(symbolType)
		if err != nil {
			return total, err
		}
		for _, symbol := range symbols {
			n, err := m.QueuePastDays(symbol.Symbol, days)
			if err != nil {
				return total, err
			}
			total += n
		}
	}
	return total, nil
}

// -----------------------------------------------------------------------------

// GetOrCreateLive returns the day's row, creating it in LIVE state when
// missing and promoting a PENDING row to LIVE.
func (m *Manager) GetOrCreateLive(symbol string, day time.Time) (models.MDataDay, error) {
	dd, ok, err := m.store.GetDataDay(symbol, day)
	if err != nil {
		return models.MDataDay{}, err
	}

	if !ok {
		dd = models.MDataDay{Symbol: symbol, Day: day, State: models.DayStateLive}
		if err := m.store.CreateDataDay(dd); err != nil {
			return models.MDataDay{}, err
		}
		return dd, nil
	}

	if dd.State == models.DayStatePending {
		dd.State = models.DayStateLive
		dd.LastTried = nil
		if err := m.store.UpdateDataDay(dd); err != nil {
			return models.MDataDay{}, err
		}
	}
	return dd, nil
}

// -----------------------------------------------------------------------------

// CompleteIfFull flips a LIVE day to COMPLETE once the full minute grid is
// persisted. Reports whether the flip happened.
func (m *Manager) CompleteIfFull(dd models.MDataDay) (bool, error) {
	count, err := m.store.CountMinutes(dd.Symbol, dd.Day)
	if err != nil {
		return false, err
	}
	if count < market.CountMinutesInTradingDay() {
		return false, nil
	}

	dd.State = models.DayStateComplete
	dd.LastTried = nil
	if err := m.store.UpdateDataDay(dd); err != nil {
		return false, err
	}
	m.log.Info("day %s complete for %s", dd.Day.Format("2006-01-02"), dd.Symbol)
	return true, nil
}
