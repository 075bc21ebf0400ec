package protocol

import (
	"github.com/parkminje/drawroom/internal/figure"
)

// ServerKind discriminates outbound server messages. Accepted kinds
// acknowledge the originating user, notify kinds fan out to the rest
// of the room, response kinds answer an explicit info request and are
// only ever unicast.
type ServerKind string

const (
	AcceptedUserJoined             ServerKind = "accepted_user_joined"
	AcceptedFigureSelected         ServerKind = "accepted_figure_selected"
	AcceptedFigureUnselectedAll    ServerKind = "accepted_figure_unselected_all"
	AcceptedSelectedFiguresUpdated ServerKind = "accepted_selected_figures_updated"
	AcceptedFigureDeleted          ServerKind = "accepted_figure_deleted"

	NotifyUserJoined             ServerKind = "notify_user_joined"
	NotifyUserLeft               ServerKind = "notify_user_left"
	NotifyFigureAdded            ServerKind = "notify_figure_added"
	NotifyMousePosition          ServerKind = "notify_mouse_position"
	NotifyFigureSelected         ServerKind = "notify_figure_selected"
	NotifyFigureUnselectedAll    ServerKind = "notify_figure_unselected_all"
	NotifySelectDragStarted      ServerKind = "notify_select_drag_started"
	NotifySelectDragFinished     ServerKind = "notify_select_drag_finished"
	NotifySelectedFiguresUpdated ServerKind = "notify_selected_figures_updated"
	NotifyFigureDeleted          ServerKind = "notify_figure_deleted"

	ResponseCurrentFigures             ServerKind = "response_current_figures"
	ResponseCurrentSharedUsers         ServerKind = "response_current_shared_users"
	ResponseCurrentSelectedFigures     ServerKind = "response_current_selected_figures"
	ResponseCurrentSelectDragPositions ServerKind = "response_current_select_drag_positions"
)

// ServerMessage is the JSON envelope for everything the server sends.
// UserID names the user an event is about (the originator for notify
// kinds); it is empty on accepted and response kinds, which are
// addressed to a single user already.
type ServerMessage struct {
	Kind     ServerKind   `json:"kind"`
	UserID   string       `json:"user_id,omitempty"`
	FigureID figure.ID    `json:"figure_id,omitempty"`
	Figure   *figure.Data `json:"figure,omitempty"`

	FigureIDs figure.IDSet `json:"figure_ids,omitempty"`
	Select    figure.IDSet `json:"select,omitempty"`
	Unselect  figure.IDSet `json:"unselect,omitempty"`

	Positions []figure.Point `json:"positions,omitempty"`
	X         float64        `json:"x,omitempty"`
	Y         float64        `json:"y,omitempty"`

	Figures       map[figure.ID]figure.Data `json:"figures,omitempty"`
	Users         []string                  `json:"users,omitempty"`
	Selections    map[string]figure.IDSet   `json:"selections,omitempty"`
	DragPositions map[string]figure.Point   `json:"drag_positions,omitempty"`
}

func UserJoinedAccepted() ServerMessage {
	return ServerMessage{Kind: AcceptedUserJoined}
}

func FigureSelectedAccepted(accepted figure.IDSet) ServerMessage {
	return ServerMessage{Kind: AcceptedFigureSelected, FigureIDs: accepted}
}

func FigureUnselectedAllAccepted() ServerMessage {
	return ServerMessage{Kind: AcceptedFigureUnselectedAll}
}

func SelectedFiguresUpdatedAccepted(selected, unselected figure.IDSet) ServerMessage {
	return ServerMessage{Kind: AcceptedSelectedFiguresUpdated, Select: selected, Unselect: unselected}
}

func FigureDeletedAccepted(accepted figure.IDSet) ServerMessage {
	return ServerMessage{Kind: AcceptedFigureDeleted, FigureIDs: accepted}
}

func UserJoinedNotify(userID string) ServerMessage {
	return ServerMessage{Kind: NotifyUserJoined, UserID: userID}
}

func UserLeftNotify(userID string) ServerMessage {
	return ServerMessage{Kind: NotifyUserLeft, UserID: userID}
}

func FigureAddedNotify(id figure.ID, data figure.Data) ServerMessage {
	return ServerMessage{Kind: NotifyFigureAdded, FigureID: id, Figure: &data}
}

func MousePositionNotify(userID string, positions []figure.Point) ServerMessage {
	return ServerMessage{Kind: NotifyMousePosition, UserID: userID, Positions: positions}
}

func FigureSelectedNotify(userID string, accepted figure.IDSet) ServerMessage {
	return ServerMessage{Kind: NotifyFigureSelected, UserID: userID, FigureIDs: accepted}
}

func FigureUnselectedAllNotify(userID string) ServerMessage {
	return ServerMessage{Kind: NotifyFigureUnselectedAll, UserID: userID}
}

func SelectDragStartedNotify(userID string, x, y float64) ServerMessage {
	return ServerMessage{Kind: NotifySelectDragStarted, UserID: userID, X: x, Y: y}
}

func SelectDragFinishedNotify(userID string) ServerMessage {
	return ServerMessage{Kind: NotifySelectDragFinished, UserID: userID}
}

func SelectedFiguresUpdatedNotify(userID string, selected, unselected figure.IDSet) ServerMessage {
	return ServerMessage{Kind: NotifySelectedFiguresUpdated, UserID: userID, Select: selected, Unselect: unselected}
}

func FigureDeletedNotify(accepted figure.IDSet) ServerMessage {
	return ServerMessage{Kind: NotifyFigureDeleted, FigureIDs: accepted}
}

func CurrentFiguresResponse(figures map[figure.ID]figure.Data) ServerMessage {
	return ServerMessage{Kind: ResponseCurrentFigures, Figures: figures}
}

func CurrentSharedUsersResponse(users []string) ServerMessage {
	return ServerMessage{Kind: ResponseCurrentSharedUsers, Users: users}
}

func CurrentSelectedFiguresResponse(selections map[string]figure.IDSet) ServerMessage {
	return ServerMessage{Kind: ResponseCurrentSelectedFigures, Selections: selections}
}

func CurrentSelectDragPositionsResponse(positions map[string]figure.Point) ServerMessage {
	return ServerMessage{Kind: ResponseCurrentSelectDragPositions, DragPositions: positions}
}
