package mocks

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"volume-tracker/src/market"
	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// Store is an in-memory IStore used by tests. Behavior mirrors the SQL
// implementation: day keys are market-timezone dates, StoreDayData is
// all-or-nothing, OutstandingDays orders never-tried first.
// -----------------------------------------------------------------------------

type minuteKey struct {
	Symbol string
	Unix   int64
}

type dayKey struct {
	Symbol string
	Day    string
}

type corrKey struct {
	Symbol   string
	Day      string
	DataType string
}

type rollKey struct {
	Symbol   string
	Unix     int64
	DataType string
	Window   int
}

func dk(t time.Time) string {
	return market.Day(t).Format("2006-01-02")
}

// -----------------------------------------------------------------------------

type Store struct {
	mu sync.Mutex

	Symbols      map[string]models.MSymbol
	Weights      map[string]map[string]float64
	Days         map[dayKey]models.MDataDay
	Minutes      map[minuteKey]models.MMinute
	Incoming     map[minuteKey]models.MIncomingPrice
	Correlations map[corrKey]models.MCorrelation
	Rolling      map[rollKey]models.MRollingCorrelation
	Holidays     map[string]models.MMarketHoliday
	Settings     map[string]bool
	Groups       map[string]models.MGroup

	// FailStoreDayData makes the next StoreDayData call fail.
	FailStoreDayData bool
	StoreDayCalls    int
}

// -----------------------------------------------------------------------------

func NewStore() *Store {
	return &Store{
		Symbols:      make(map[string]models.MSymbol),
		Weights:      make(map[string]map[string]float64),
		Days:         make(map[dayKey]models.MDataDay),
		Minutes:      make(map[minuteKey]models.MMinute),
		Incoming:     make(map[minuteKey]models.MIncomingPrice),
		Correlations: make(map[corrKey]models.MCorrelation),
		Rolling:      make(map[rollKey]models.MRollingCorrelation),
		Holidays:     make(map[string]models.MMarketHoliday),
		Settings:     make(map[string]bool),
		Groups:       make(map[string]models.MGroup),
	}
}

func (s *Store) Initialize() error { return nil }
func (s *Store) Close() error      { return nil }

// -----------------------------------------------------------------------------
// Symbols
// -----------------------------------------------------------------------------

func (s *Store) GetSymbol(symbol string) (models.MSymbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.Symbols[symbol]
	if !ok {
		return models.MSymbol{}, fmt.Errorf("symbol %s not found", symbol)
	}
	return m, nil
}

func (s *Store) ActiveSymbols(symbolType string) ([]models.MSymbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MSymbol
	for _, m := range s.Symbols {
		if m.Type == symbolType && m.Active {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *Store) CreateSymbol(symbol models.MSymbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Symbols[symbol.Symbol] = symbol
	return nil
}

func (s *Store) SetSymbolActive(symbol string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.Symbols[symbol]
	m.Active = active
	s.Symbols[symbol] = m
	return nil
}

// -----------------------------------------------------------------------------
// Weights
// -----------------------------------------------------------------------------

func (s *Store) WeightsFor(index string) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.Weights[index]))
	for k, v := range s.Weights[index] {
		out[k] = v
	}
	return out, nil
}

func (s *Store) ReplaceWeights(index string, weights map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]float64, len(weights))
	for k, v := range weights {
		next[k] = v
	}
	s.Weights[index] = next
	return nil
}

// -----------------------------------------------------------------------------
// Data days
// -----------------------------------------------------------------------------

func (s *Store) GetDataDay(symbol string, day time.Time) (models.MDataDay, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dd, ok := s.Days[dayKey{symbol, dk(day)}]
	return dd, ok, nil
}

func (s *Store) CreateDataDay(dd models.MDataDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Days[dayKey{dd.Symbol, dk(dd.Day)}] = dd
	return nil
}

func (s *Store) BulkCreateDataDays(days []models.MDataDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, dd := range days {
		key := dayKey{dd.Symbol, dk(dd.Day)}
		if _, exists := s.Days[key]; !exists {
			s.Days[key] = dd
		}
	}
	return nil
}

func (s *Store) UpdateDataDay(dd models.MDataDay) error {
	return s.CreateDataDay(dd)
}

func (s *Store) LastDataDay(symbol string) (models.MDataDay, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest models.MDataDay
	found := false
	for _, dd := range s.Days {
		if dd.Symbol == symbol && (!found || dd.Day.After(latest.Day)) {
			latest = dd
			found = true
		}
	}
	return latest, found, nil
}

func (s *Store) OutstandingDays(symbolType string, retryBefore time.Time) ([]models.MDataDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MDataDay
	for _, dd := range s.Days {
		symbol, ok := s.Symbols[dd.Symbol]
		if !ok || symbol.Type != symbolType || !symbol.Active {
			continue
		}
		if dd.State != models.DayStatePending {
			continue
		}
		if dd.LastTried != nil && dd.LastTried.After(retryBefore) {
			continue
		}
		out = append(out, dd)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.LastTried == nil) != (b.LastTried == nil) {
			return a.LastTried == nil
		}
		if a.LastTried != nil && !a.LastTried.Equal(*b.LastTried) {
			return a.LastTried.Before(*b.LastTried)
		}
		return a.Day.Before(b.Day)
	})
	return out, nil
}

func (s *Store) CompleteDaySymbols(symbols []string, day time.Time) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		if dd, ok := s.Days[dayKey{symbol, dk(day)}]; ok && dd.State == models.DayStateComplete {
			out[symbol] = true
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Minutes
// -----------------------------------------------------------------------------

func (s *Store) minutesWhere(keep func(models.MMinute) bool) []models.MMinute {
	var out []models.MMinute
	for _, m := range s.Minutes {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func (s *Store) MinutesForDay(symbol string, day time.Time) ([]models.MMinute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dk(day)
	return s.minutesWhere(func(m models.MMinute) bool {
		return m.Symbol == symbol && dk(m.Time) == key
	}), nil
}

func (s *Store) MinutesInRange(symbol string, start, end time.Time) ([]models.MMinute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minutesWhere(func(m models.MMinute) bool {
		return m.Symbol == symbol && !m.Time.Before(start) && m.Time.Before(end)
	}), nil
}

func (s *Store) MinutesAt(symbols []string, t time.Time) ([]models.MMinute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MMinute
	for _, symbol := range symbols {
		if m, ok := s.Minutes[minuteKey{symbol, t.Unix()}]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) MinuteBefore(symbol string, minute time.Time) (models.MMinute, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.minutesWhere(func(m models.MMinute) bool {
		return m.Symbol == symbol && m.Time.Before(minute)
	})
	if len(all) == 0 {
		return models.MMinute{}, false, nil
	}
	return all[len(all)-1], true, nil
}

func (s *Store) SaveMinute(m models.MMinute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Minutes[minuteKey{m.Symbol, m.Time.Unix()}] = m
	return nil
}

func (s *Store) CountMinutes(symbol string, day time.Time) (int, error) {
	minutes, _ := s.MinutesForDay(symbol, day)
	return len(minutes), nil
}

// -----------------------------------------------------------------------------
// Incoming prices
// -----------------------------------------------------------------------------

func (s *Store) GetIncomingPrice(symbol string, t time.Time) (models.MIncomingPrice, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ip, ok := s.Incoming[minuteKey{symbol, t.Unix()}]
	return ip, ok, nil
}

func (s *Store) CreateIncomingPrice(ip models.MIncomingPrice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := minuteKey{ip.Symbol, ip.Time.Unix()}
	if _, exists := s.Incoming[key]; !exists {
		s.Incoming[key] = ip
	}
	return nil
}

func (s *Store) ClearIncomingPrices() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Incoming = make(map[minuteKey]models.MIncomingPrice)
	return nil
}

// -----------------------------------------------------------------------------
// Correlations
// -----------------------------------------------------------------------------

func (s *Store) CorrelationsForDay(day time.Time, dataType string) ([]models.MCorrelation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dk(day)
	var out []models.MCorrelation
	for _, c := range s.Correlations {
		if dk(c.Day) == key && c.DataType == dataType {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *Store) UpsertCorrelations(corrs []models.MCorrelation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range corrs {
		s.Correlations[corrKey{c.Symbol, dk(c.Day), c.DataType}] = c
	}
	return nil
}

func (s *Store) RollingMinutes(symbol string, day time.Time, dataType string, window int) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dk(day)
	var out []time.Time
	for _, rc := range s.Rolling {
		if rc.Symbol == symbol && rc.DataType == dataType && rc.Window == window && dk(rc.Time) == key {
			out = append(out, rc.Time)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (s *Store) SaveRollingCorrelation(rc models.MRollingCorrelation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rolling[rollKey{rc.Symbol, rc.Time.Unix(), rc.DataType, rc.Window}] = rc
	return nil
}

func (s *Store) RollingForRange(symbol string, start, end time.Time, dataType string, window int) ([]models.MRollingCorrelation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MRollingCorrelation
	for _, rc := range s.Rolling {
		if rc.Symbol == symbol && rc.DataType == dataType && rc.Window == window &&
			!rc.Time.Before(start) && rc.Time.Before(end) {
			out = append(out, rc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *Store) StoreDayData(dd models.MDataDay, minutes []models.MMinute,
	correlations []models.MCorrelation, rolling []models.MRollingCorrelation) error {

	s.mu.Lock()
	defer s.mu.Unlock()
	s.StoreDayCalls++

	if s.FailStoreDayData {
		s.FailStoreDayData = false
		return fmt.Errorf("simulated transaction failure")
	}

	for _, m := range minutes {
		s.Minutes[minuteKey{m.Symbol, m.Time.Unix()}] = m
	}
	for _, c := range correlations {
		s.Correlations[corrKey{c.Symbol, dk(c.Day), c.DataType}] = c
	}
	for _, rc := range rolling {
		s.Rolling[rollKey{rc.Symbol, rc.Time.Unix(), rc.DataType, rc.Window}] = rc
	}

	dd.State = models.DayStateComplete
	dd.LastTried = nil
	s.Days[dayKey{dd.Symbol, dk(dd.Day)}] = dd
	return nil
}

// -----------------------------------------------------------------------------
// Holidays, settings, groups
// -----------------------------------------------------------------------------

func (s *Store) SaveMarketHolidays(holidays []models.MMarketHoliday) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range holidays {
		s.Holidays[dk(h.Day)] = h
	}
	return len(holidays), nil
}

func (s *Store) HolidayForDay(day time.Time) (models.MMarketHoliday, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.Holidays[dk(day)]
	return h, ok, nil
}

func (s *Store) GetSettingBool(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Settings[name], nil
}

func (s *Store) SetSettingBool(name string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Settings[name] = value
	return nil
}

func (s *Store) GroupsByType(groupType string) ([]models.MGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MGroup
	for _, g := range s.Groups {
		if g.GroupType == groupType {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (s *Store) SaveGroup(group models.MGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Groups[group.Slug+"/"+group.GroupType] = group
	return nil
}
