package interfaces

import (
	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// INotifier is the fire-and-forget push contract. Implementations log and
// swallow delivery failures; nothing propagates to the computation path.
// -----------------------------------------------------------------------------

type INotifier interface {

	// OnMinuteComputed pushes one freshly persisted minute.
	OnMinuteComputed(minute models.MMinute, displayName string)

	// -----------------------------------------------------------------------------

	// OnRollingCorrelation pushes one rolling correlation entry.
	OnRollingCorrelation(roll models.MRollingCorrelation)

	// -----------------------------------------------------------------------------

	// OnCorrelationBatchReady pushes a correlation table for a group key
	// ("all" or a group slug).
	OnCorrelationBatchReady(groupKey string, table models.MCorrelationTable)

	// -----------------------------------------------------------------------------

	// OnSlopeTableReady pushes a slope table for a group key.
	OnSlopeTableReady(groupKey string, table models.MSlopeTable)
}
