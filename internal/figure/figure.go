package figure

import (
	"encoding/json"
	"sort"
)

// ID identifies a figure for its entire lifetime. Ids come from a
// process-wide monotonic counter and are never reused, even after the
// figure is deleted.
type ID uint64

// Point is a 2D coordinate on the shared canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Figure kinds currently drawn by clients.
const (
	KindLine = "line"
	KindRect = "rect"
)

// Data is the drawable payload of a figure. The server stores it on
// add, echoes it in notifications and snapshots, and never inspects it.
type Data struct {
	Kind  string `json:"kind"`
	Start Point  `json:"start"`
	End   Point  `json:"end"`
	Color string `json:"color,omitempty"`
}

// IDSet is a set of figure ids. It marshals as a sorted JSON array so
// wire output is deterministic.
type IDSet map[ID]struct{}

func NewIDSet(ids ...ID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Add(id ID) { s[id] = struct{}{} }

func (s IDSet) Remove(id ID) { delete(s, id) }

func (s IDSet) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int { return len(s) }

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []ID {
	ids := make([]ID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clone returns an independent copy of the set.
func (s IDSet) Clone() IDSet {
	c := make(IDSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Equal reports whether both sets contain the same ids.
func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []ID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}
