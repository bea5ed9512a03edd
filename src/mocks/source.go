package mocks

import (
	"sync"
	"time"

	"volume-tracker/src/helpers"
	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// Source is a canned IMarketData. Ticks are loaded per symbol-minute; the
// backward midpoint scan returns OpeningMid.
// -----------------------------------------------------------------------------

type Source struct {
	mu sync.Mutex

	Trades      map[minuteKey][]models.MTrade
	Quotes      map[minuteKey][]models.MQuote
	OpeningMids map[string]float64
	IndexValues map[minuteKey]float64
	Known       map[string]bool

	// FailSymbols makes every fetch for the symbol fail upstream.
	FailSymbols map[string]bool

	// DisableIndexSeries makes the batch series come back empty so the
	// per-minute lookup path is exercised.
	DisableIndexSeries bool

	MidpointCalls   int
	IndexPointCalls int
}

// -----------------------------------------------------------------------------

func NewSource() *Source {
	return &Source{
		Trades:      make(map[minuteKey][]models.MTrade),
		Quotes:      make(map[minuteKey][]models.MQuote),
		OpeningMids: make(map[string]float64),
		IndexValues: make(map[minuteKey]float64),
		Known:       make(map[string]bool),
		FailSymbols: make(map[string]bool),
	}
}

// -----------------------------------------------------------------------------

func (s *Source) AddTrade(symbol string, minute time.Time, offset time.Duration, price float64, size *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := minuteKey{symbol, minute.Unix()}
	s.Trades[key] = append(s.Trades[key], models.MTrade{
		Timestamp: minute.Add(offset).UnixNano(),
		Price:     price,
		Size:      size,
	})
}

func (s *Source) AddQuote(symbol string, minute time.Time, offset time.Duration, bid, ask *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := minuteKey{symbol, minute.Unix()}
	s.Quotes[key] = append(s.Quotes[key], models.MQuote{
		Timestamp: minute.Add(offset).UnixNano(),
		Bid:       bid,
		Ask:       ask,
	})
}

func (s *Source) AddIndexValue(apiSymbol string, minute time.Time, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.IndexValues[minuteKey{apiSymbol, minute.Unix()}] = value
}

// -----------------------------------------------------------------------------

func (s *Source) TradesInMinute(symbol string, minute time.Time) ([]models.MTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSymbols[symbol] {
		return nil, helpers.Transient("upstream failure for %s", symbol)
	}
	return s.Trades[minuteKey{symbol, minute.Unix()}], nil
}

func (s *Source) QuotesInMinute(symbol string, minute time.Time) ([]models.MQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSymbols[symbol] {
		return nil, helpers.Transient("upstream failure for %s", symbol)
	}
	return s.Quotes[minuteKey{symbol, minute.Unix()}], nil
}

func (s *Source) MidpointBefore(symbol string, ts time.Time) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MidpointCalls++
	if s.FailSymbols[symbol] {
		return 0, helpers.Transient("upstream failure for %s", symbol)
	}
	mid, ok := s.OpeningMids[symbol]
	if !ok {
		return 0, helpers.Transient("no quote before %s for %s", ts, symbol)
	}
	return mid, nil
}

// -----------------------------------------------------------------------------

func (s *Source) IndexValueSeries(apiSymbol string, day time.Time) ([]models.MIndexValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DisableIndexSeries {
		return nil, nil
	}
	var out []models.MIndexValue
	for key, value := range s.IndexValues {
		if key.Symbol == apiSymbol {
			out = append(out, models.MIndexValue{Time: time.Unix(key.Unix, 0), Value: value})
		}
	}
	return out, nil
}

func (s *Source) IndexValueAt(apiSymbol string, minute time.Time) (*float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.IndexPointCalls++
	value, ok := s.IndexValues[minuteKey{apiSymbol, minute.Unix()}]
	if !ok {
		return nil, nil
	}
	return &value, nil
}

// -----------------------------------------------------------------------------

func (s *Source) VerifySymbol(symbol string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Known[symbol], nil
}
