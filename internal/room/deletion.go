package room

import (
	"github.com/parkminje/drawroom/internal/figure"
)

// deleteFigures removes the requested ids from the figure set and
// from every user's selection. Selection cleanup runs first so that
// by the time the caller emits any notification, no selection refers
// to a deleted figure. An id is accepted iff it was present in the
// figure set and removed; unknown ids are rejected.
func deleteFigures(st *state, ids figure.IDSet) (accepted, rejected figure.IDSet) {
	var emptied []string
	for userID, set := range st.selectedFigures {
		for id := range ids {
			set.Remove(id)
		}
		if set.Len() == 0 {
			emptied = append(emptied, userID)
		}
	}
	for _, userID := range emptied {
		delete(st.selectedFigures, userID)
	}

	accepted = figure.NewIDSet()
	rejected = figure.NewIDSet()
	for id := range ids {
		if _, ok := st.figures[id]; ok {
			delete(st.figures, id)
			accepted.Add(id)
		} else {
			rejected.Add(id)
		}
	}

	return accepted, rejected
}
