package models

// -----------------------------------------------------------------------------
// Group types
// -----------------------------------------------------------------------------

const (
	GroupTypeCorrelationTable = "C"
	GroupTypeSlopeTable       = "T"
)

// MGroup is a named set of symbols driving which aggregate notifications
// (correlation tables, slope tables) are emitted for it.
type MGroup struct {
	Slug      string   `json:"slug"`
	Name      string   `json:"name"`
	GroupType string   `json:"group_type"`
	Symbols   []string `json:"symbols"`
}
