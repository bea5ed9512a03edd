package models

import "time"

// MMarketHoliday is an exchange closure or early-close day. Recorded for
// the admin surface; minute generation does not consult it.
type MMarketHoliday struct {
	Day      time.Time  `json:"day"`
	Exchange string     `json:"exchange"`
	Status   string     `json:"status"` // "closed" or "early-close"
	Name     string     `json:"name"`
	Open     *time.Time `json:"open"`
	Close    *time.Time `json:"close"`
}
