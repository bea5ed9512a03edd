package weights

import (
	"math"
	"sort"

	"volume-tracker/src/interfaces"
	"volume-tracker/src/logger"
)

// -----------------------------------------------------------------------------
// Index constituent weights are re-derived externally and applied here
// wholesale. The diff is logged so weight drift is visible in the journal.
// -----------------------------------------------------------------------------

type Diff struct {
	Added   []string
	Removed []string
	Changed []string
}

// -----------------------------------------------------------------------------

// Compare diffs the current weights against the proposed set.
func Compare(current, next map[string]float64) Diff {
	var d Diff
	for symbol, weight := range next {
		old, ok := current[symbol]
		if !ok {
			d.Added = append(d.Added, symbol)
		} else if math.Abs(old-weight) > 1e-12 {
			d.Changed = append(d.Changed, symbol)
		}
	}
	for symbol := range current {
		if _, ok := next[symbol]; !ok {
			d.Removed = append(d.Removed, symbol)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Changed)
	return d
}

// -----------------------------------------------------------------------------

func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// -----------------------------------------------------------------------------

// Apply replaces an index's weights and logs what moved.
func Apply(store interfaces.IStore, log *logger.Logger, index string, next map[string]float64) (Diff, error) {
	current, err := store.WeightsFor(index)
	if err != nil {
		return Diff{}, err
	}

	diff := Compare(current, next)
	if diff.Empty() {
		log.Info("weights for %s unchanged (%d constituents)", index, len(next))
		return diff, nil
	}

	if err := store.ReplaceWeights(index, next); err != nil {
		return diff, err
	}

	log.Info("weights for %s replaced: %d added %v, %d removed %v, %d changed %v",
		index, len(diff.Added), diff.Added, len(diff.Removed), diff.Removed, len(diff.Changed), diff.Changed)
	return diff, nil
}
