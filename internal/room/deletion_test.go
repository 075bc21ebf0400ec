package room

import (
	"testing"

	"github.com/parkminje/drawroom/internal/figure"
)

func TestDeleteRemovesFigureAndSelection(t *testing.T) {
	st := stateWithFigures(1, 2, 3)
	selectFigures(st, "A", figure.NewIDSet(1, 2))

	accepted, rejected := deleteFigures(st, figure.NewIDSet(2))

	if !accepted.Equal(figure.NewIDSet(2)) {
		t.Errorf("accepted = %v, want {2}", accepted.Sorted())
	}
	if rejected.Len() != 0 {
		t.Errorf("rejected = %v, want empty", rejected.Sorted())
	}
	if _, ok := st.figures[2]; ok {
		t.Error("figure 2 should be gone")
	}
	if !st.selectedFigures["A"].Equal(figure.NewIDSet(1)) {
		t.Errorf("selection for A = %v, want {1}", st.selectedFigures["A"].Sorted())
	}
}

func TestDeleteUnknownIDRejected(t *testing.T) {
	st := stateWithFigures(1)

	accepted, rejected := deleteFigures(st, figure.NewIDSet(1, 42))

	if !accepted.Equal(figure.NewIDSet(1)) {
		t.Errorf("accepted = %v, want {1}", accepted.Sorted())
	}
	if !rejected.Equal(figure.NewIDSet(42)) {
		t.Errorf("rejected = %v, want {42}", rejected.Sorted())
	}
}

func TestDeleteCascadesAcrossUsers(t *testing.T) {
	st := stateWithFigures(1, 2)
	selectFigures(st, "A", figure.NewIDSet(1))
	selectFigures(st, "B", figure.NewIDSet(1, 2))

	deleteFigures(st, figure.NewIDSet(1))

	if _, ok := st.selectedFigures["A"]; ok {
		t.Error("A's emptied selection entry should be pruned")
	}
	if !st.selectedFigures["B"].Equal(figure.NewIDSet(2)) {
		t.Errorf("selection for B = %v, want {2}", st.selectedFigures["B"].Sorted())
	}
}

func TestDeleteAllSelectionsPruned(t *testing.T) {
	st := stateWithFigures(1)
	selectFigures(st, "A", figure.NewIDSet(1))
	selectFigures(st, "B", figure.NewIDSet(1))

	deleteFigures(st, figure.NewIDSet(1))

	if len(st.selectedFigures) != 0 {
		t.Errorf("selectedFigures = %v, want empty", st.selectedFigures)
	}
}

func TestDeleteIsIndependentOfSelection(t *testing.T) {
	st := stateWithFigures(1, 2)

	accepted, _ := deleteFigures(st, figure.NewIDSet(1, 2))

	if !accepted.Equal(figure.NewIDSet(1, 2)) {
		t.Errorf("accepted = %v, want {1 2}", accepted.Sorted())
	}
	if len(st.figures) != 0 {
		t.Errorf("figures = %v, want empty", st.figures)
	}
}

func TestDeleteTwiceSecondRejected(t *testing.T) {
	st := stateWithFigures(1)

	deleteFigures(st, figure.NewIDSet(1))
	accepted, rejected := deleteFigures(st, figure.NewIDSet(1))

	if accepted.Len() != 0 {
		t.Errorf("accepted = %v, want empty", accepted.Sorted())
	}
	if !rejected.Equal(figure.NewIDSet(1)) {
		t.Errorf("rejected = %v, want {1}", rejected.Sorted())
	}
}
