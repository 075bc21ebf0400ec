package room

import (
	"github.com/parkminje/drawroom/internal/figure"
)

// partitionByExistence splits ids into those that currently exist in
// the room's figure set and those that do not. Every requested id
// lands in exactly one of the two results.
func partitionByExistence(st *state, ids figure.IDSet) (existing, missing figure.IDSet) {
	existing = figure.NewIDSet()
	missing = figure.NewIDSet()
	for id := range ids {
		if _, ok := st.figures[id]; ok {
			existing.Add(id)
		} else {
			missing.Add(id)
		}
	}
	return existing, missing
}

// selectFigures merges the requested ids that exist into the user's
// selection and reports the accepted/rejected partition. Re-selecting
// an already selected id is a no-op for state but still accepted.
func selectFigures(st *state, userID string, ids figure.IDSet) (accepted, rejected figure.IDSet) {
	accepted, rejected = partitionByExistence(st, ids)

	if current, ok := st.selectedFigures[userID]; ok {
		for id := range accepted {
			current.Add(id)
		}
	} else if accepted.Len() > 0 {
		st.selectedFigures[userID] = accepted.Clone()
	}

	return accepted, rejected
}

// unselectFigures removes the requested ids that exist from the
// user's selection. A user with no selection entry simply has nothing
// removed; the accepted set still reports which requested ids exist.
// When the removal empties the user's selection the entry is dropped
// entirely, so no user ever maps to an empty set.
func unselectFigures(st *state, userID string, ids figure.IDSet) (accepted, rejected figure.IDSet) {
	accepted, rejected = partitionByExistence(st, ids)

	if current, ok := st.selectedFigures[userID]; ok {
		for id := range accepted {
			current.Remove(id)
		}
		if current.Len() == 0 {
			delete(st.selectedFigures, userID)
		}
	}

	return accepted, rejected
}

// CompareSelection diffs a user's current selection against the full
// selection that should replace it. Ids only in next must be newly
// selected, ids only in current must be unselected. A nil result
// means that half of the update is a no-op.
func CompareSelection(current, next figure.IDSet) (toSelect, toUnselect figure.IDSet) {
	sel := figure.NewIDSet()
	for id := range next {
		if !current.Has(id) {
			sel.Add(id)
		}
	}

	unsel := figure.NewIDSet()
	for id := range current {
		if !next.Has(id) {
			unsel.Add(id)
		}
	}

	if sel.Len() > 0 {
		toSelect = sel
	}
	if unsel.Len() > 0 {
		toUnselect = unsel
	}
	return toSelect, toUnselect
}
