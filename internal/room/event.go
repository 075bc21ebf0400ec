package room

import (
	"github.com/parkminje/drawroom/internal/figure"
	"github.com/parkminje/drawroom/internal/protocol"
)

// Event is a client-originated message delivered to a room's mailbox.
// The set of events is closed. Every event carries the originating
// user id except Join, which carries the joining session itself.
type Event interface {
	kind() string
}

// Join registers a new session in the room. Reply, when non-nil,
// receives the join outcome: nil on success, ErrUserExists when the
// user id is already registered. It must be buffered; the room never
// blocks on it.
type Join struct {
	Session Session
	Reply   chan<- error
}

func (j Join) reply(err error) {
	if j.Reply != nil {
		j.Reply <- err
	}
}

// Leave removes a user from the room. When the last user leaves, the
// room terminates.
type Leave struct {
	UserID string
}

// AddFigure creates a figure from the given payload.
type AddFigure struct {
	UserID string
	Data   figure.Data
}

// RequestInfo asks for a snapshot of part of the room state. The
// answer is unicast to the requester only.
type RequestInfo struct {
	UserID  string
	Request protocol.RequestKind
}

// MousePosition relays a batch of cursor positions to the other
// users. It mutates no state.
type MousePosition struct {
	UserID    string
	Positions []figure.Point
}

// SelectFigure adds the existing ids among IDs to the user's
// selection.
type SelectFigure struct {
	UserID string
	IDs    figure.IDSet
}

// UnselectFigureAll clears the user's whole selection.
type UnselectFigureAll struct {
	UserID string
}

// SelectDragStart records the anchor of a rectangular selection drag.
type SelectDragStart struct {
	UserID string
	X, Y   float64
}

// SelectDragFinish clears the user's drag anchor.
type SelectDragFinish struct {
	UserID string
}

// UpdateSelectedFigures applies a select and an unselect in one step.
// A nil set means that half of the update is absent.
type UpdateSelectedFigures struct {
	UserID   string
	Select   figure.IDSet
	Unselect figure.IDSet
}

// DeleteFigures removes the existing ids among IDs from the room and
// from every user's selection.
type DeleteFigures struct {
	UserID string
	IDs    figure.IDSet
}

func (Join) kind() string                  { return "join" }
func (Leave) kind() string                 { return "leave" }
func (AddFigure) kind() string             { return "add_figure" }
func (RequestInfo) kind() string           { return "request_info" }
func (MousePosition) kind() string         { return "mouse_position" }
func (SelectFigure) kind() string          { return "select_figure" }
func (UnselectFigureAll) kind() string     { return "unselect_figure_all" }
func (SelectDragStart) kind() string       { return "select_drag_start" }
func (SelectDragFinish) kind() string      { return "select_drag_finish" }
func (UpdateSelectedFigures) kind() string { return "update_selected_figures" }
func (DeleteFigures) kind() string         { return "delete_figures" }
