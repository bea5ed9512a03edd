package models

// -----------------------------------------------------------------------------
// Symbol types
// -----------------------------------------------------------------------------

const (
	SymbolTypeStock = "S"
	SymbolTypeIndex = "I"
)

// MSymbol represents a tracked equity or equity index.
type MSymbol struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Active    bool   `json:"active"`
	APISymbol string `json:"api_symbol"` // Upstream identifier (e.g. "I:NDX"), indices only
}

// -----------------------------------------------------------------------------

func (s MSymbol) IsStock() bool {
	return s.Type == SymbolTypeStock
}

// -----------------------------------------------------------------------------

func (s MSymbol) IsIndex() bool {
	return s.Type == SymbolTypeIndex
}

// -----------------------------------------------------------------------------

// DisplayName returns the human-readable name, falling back to the code.
func (s MSymbol) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Symbol
}

// -----------------------------------------------------------------------------
// MIndexWeight is one constituent weight of an index. Weights are re-derived
// by an external scraper and read-only to the processing core.
// -----------------------------------------------------------------------------

type MIndexWeight struct {
	Index  string  `json:"index"`
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
}
