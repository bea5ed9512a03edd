package models

// -----------------------------------------------------------------------------
// Push payloads published to the hub and fanned out to websocket channels.
// -----------------------------------------------------------------------------

// MChartPoint is one datapoint appended to a live chart. On the "all"
// channel PlotName is the symbol; on per-symbol channels it is the series
// name ("Volume", "Slope", "Price", "Volume Correlation (15m)", ...).
type MChartPoint struct {
	All      bool     `json:"all"`
	PlotName string   `json:"plot_name"`
	Datetime string   `json:"datetime"`
	Value    *float64 `json:"value,omitempty"`
	Volume   *float64 `json:"volume,omitempty"`
	Slope    *int     `json:"slope,omitempty"`
}

// -----------------------------------------------------------------------------

// MCorrelationEntry is one row of a pushed correlation table.
type MCorrelationEntry struct {
	Symbol      string  `json:"symbol"`
	DisplayName string  `json:"display_name"`
	Value       float64 `json:"value"`
	Count       int     `json:"n"`
}

// -----------------------------------------------------------------------------

// MCorrelationTable is the aggregate payload for a correlation group.
type MCorrelationTable struct {
	DataType string              `json:"data_type"`
	Entries  []MCorrelationEntry `json:"entries"`
}

// -----------------------------------------------------------------------------

// MSlopeTableRow compares a symbol's cumulative slope at the current
// minute against the previous day's same minute and close.
type MSlopeTableRow struct {
	Symbol         string `json:"symbol"`
	DisplayName    string `json:"display_name"`
	Current        *int   `json:"current,omitempty"`
	PreviousMinute *int   `json:"previous_minute,omitempty"`
	PreviousClose  *int   `json:"previous_close,omitempty"`
}

// -----------------------------------------------------------------------------

// MSlopeTable is the aggregate payload for a slope-table group.
type MSlopeTable struct {
	Minute string           `json:"minute"`
	Rows   []MSlopeTableRow `json:"rows"`
}
