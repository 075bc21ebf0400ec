package room

import (
	"sort"

	"github.com/parkminje/drawroom/internal/figure"
	"github.com/parkminje/drawroom/internal/protocol"
)

// Session is the per-user endpoint a room delivers outbound messages
// to. Implementations are owned by the transport layer and must not
// block in Send; a session that cannot accept a message returns an
// error and the room moves on.
type Session interface {
	UserID() string
	Send(msg protocol.ServerMessage) error
}

// state is the authoritative data for one room. It is owned
// exclusively by the room's event loop; nothing outside that
// goroutine reads or writes it.
type state struct {
	users   map[string]Session
	figures map[figure.ID]figure.Data

	// selectedFigures has an entry for a user only while that user's
	// selection is non-empty.
	selectedFigures map[string]figure.IDSet

	// selectDragAnchors holds each user's in-progress drag anchor,
	// present only between drag start and drag finish.
	selectDragAnchors map[string]figure.Point
}

func newState() *state {
	return &state{
		users:             make(map[string]Session),
		figures:           make(map[figure.ID]figure.Data),
		selectedFigures:   make(map[string]figure.IDSet),
		selectDragAnchors: make(map[string]figure.Point),
	}
}

// figuresSnapshot copies the current figure set for a response.
func (st *state) figuresSnapshot() map[figure.ID]figure.Data {
	out := make(map[figure.ID]figure.Data, len(st.figures))
	for id, data := range st.figures {
		out[id] = data
	}
	return out
}

// userList returns the connected user ids in stable order.
func (st *state) userList() []string {
	out := make([]string, 0, len(st.users))
	for id := range st.users {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// selectionsSnapshot copies every user's selection for a response.
func (st *state) selectionsSnapshot() map[string]figure.IDSet {
	out := make(map[string]figure.IDSet, len(st.selectedFigures))
	for id, set := range st.selectedFigures {
		out[id] = set.Clone()
	}
	return out
}

// dragAnchorsSnapshot copies the in-progress drag anchors for a
// response.
func (st *state) dragAnchorsSnapshot() map[string]figure.Point {
	out := make(map[string]figure.Point, len(st.selectDragAnchors))
	for id, p := range st.selectDragAnchors {
		out[id] = p
	}
	return out
}
