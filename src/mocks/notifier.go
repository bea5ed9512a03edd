package mocks

import (
	"sync"

	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// Notifier records pushed payloads for assertions.
// -----------------------------------------------------------------------------

type Notifier struct {
	mu sync.Mutex

	Minutes           []models.MMinute
	Rolling           []models.MRollingCorrelation
	CorrelationTables map[string][]models.MCorrelationTable
	SlopeTables       map[string][]models.MSlopeTable
}

// -----------------------------------------------------------------------------

func NewNotifier() *Notifier {
	return &Notifier{
		CorrelationTables: make(map[string][]models.MCorrelationTable),
		SlopeTables:       make(map[string][]models.MSlopeTable),
	}
}

// -----------------------------------------------------------------------------

func (n *Notifier) OnMinuteComputed(minute models.MMinute, displayName string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Minutes = append(n.Minutes, minute)
}

func (n *Notifier) OnRollingCorrelation(roll models.MRollingCorrelation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Rolling = append(n.Rolling, roll)
}

func (n *Notifier) OnCorrelationBatchReady(groupKey string, table models.MCorrelationTable) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.CorrelationTables[groupKey] = append(n.CorrelationTables[groupKey], table)
}

func (n *Notifier) OnSlopeTableReady(groupKey string, table models.MSlopeTable) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.SlopeTables[groupKey] = append(n.SlopeTables[groupKey], table)
}
