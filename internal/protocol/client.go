package protocol

import (
	"github.com/parkminje/drawroom/internal/figure"
)

// ClientKind discriminates inbound client messages.
type ClientKind string

const (
	ClientLeave                 ClientKind = "leave"
	ClientAddFigure             ClientKind = "add_figure"
	ClientRequestInfo           ClientKind = "request_info"
	ClientMousePosition         ClientKind = "mouse_position"
	ClientSelectFigure          ClientKind = "select_figure"
	ClientUnselectFigureAll     ClientKind = "unselect_figure_all"
	ClientSelectDragStart       ClientKind = "select_drag_start"
	ClientSelectDragFinish      ClientKind = "select_drag_finish"
	ClientUpdateSelectedFigures ClientKind = "update_selected_figures"
	ClientDeleteFigures         ClientKind = "delete_figures"
)

// RequestKind names the state snapshot a client asks for.
type RequestKind string

const (
	RequestCurrentFigures             RequestKind = "current_figures"
	RequestCurrentSharedUsers         RequestKind = "current_shared_users"
	RequestCurrentSelectedFigures     RequestKind = "current_selected_figures"
	RequestCurrentSelectDragPositions RequestKind = "current_select_drag_positions"
)

// ClientMessage is the JSON envelope for everything a client sends
// after joining. Only the fields relevant to Kind are populated.
// Select and Unselect are pointers because the update flow
// distinguishes "absent" from "empty".
type ClientMessage struct {
	Kind      ClientKind     `json:"kind"`
	Figure    *figure.Data   `json:"figure,omitempty"`
	Request   RequestKind    `json:"request,omitempty"`
	Positions []figure.Point `json:"positions,omitempty"`
	FigureIDs figure.IDSet   `json:"figure_ids,omitempty"`
	X         float64        `json:"x,omitempty"`
	Y         float64        `json:"y,omitempty"`
	Select    *figure.IDSet  `json:"select,omitempty"`
	Unselect  *figure.IDSet  `json:"unselect,omitempty"`
}
