package room

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/parkminje/drawroom/internal/figure"
	"github.com/parkminje/drawroom/internal/metrics"
	"github.com/parkminje/drawroom/internal/protocol"
)

// DefaultMailboxCap bounds a room's inbound queue. Producers block
// once the queue is full, which throttles a single overloaded room
// without affecting others.
const DefaultMailboxCap = 1000

// ErrRoomClosed is returned by Enqueue after the room has terminated.
var ErrRoomClosed = errors.New("room: closed")

// ErrUserExists is the Join outcome when the user id is already
// registered by a live session.
var ErrUserExists = errors.New("room: user id already registered")

// Room runs one collaborative session. A single goroutine owns the
// room state and applies events from the mailbox one at a time, so
// all state transitions are serialized without further locking.
// Rooms share nothing with each other except the figure id allocator.
type Room struct {
	id     string
	events chan Event
	state  *state
	alloc  figure.Allocator

	// onEmpty is invoked exactly once, after the last user left and
	// the event loop stopped.
	onEmpty func(roomID string)

	done chan struct{}
	log  zerolog.Logger
}

// New creates a room and starts its event loop. mailboxCap <= 0
// falls back to DefaultMailboxCap.
func New(id string, alloc figure.Allocator, mailboxCap int, onEmpty func(roomID string), log zerolog.Logger) *Room {
	if mailboxCap <= 0 {
		mailboxCap = DefaultMailboxCap
	}
	if onEmpty == nil {
		onEmpty = func(string) {}
	}
	r := &Room{
		id:      id,
		events:  make(chan Event, mailboxCap),
		state:   newState(),
		alloc:   alloc,
		onEmpty: onEmpty,
		done:    make(chan struct{}),
		log:     log.With().Str("room", id).Logger(),
	}
	go r.run()
	return r
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// Done is closed when the room's event loop has terminated.
func (r *Room) Done() <-chan struct{} { return r.done }

// Enqueue delivers an event into the room's mailbox. It blocks while
// the mailbox is full and returns ErrRoomClosed once the room has
// terminated.
func (r *Room) Enqueue(ev Event) error {
	select {
	case <-r.done:
		return ErrRoomClosed
	default:
	}
	select {
	case r.events <- ev:
		return nil
	case <-r.done:
		return ErrRoomClosed
	}
}

func (r *Room) run() {
	for ev := range r.events {
		metrics.RoomEvents.WithLabelValues(ev.kind()).Inc()
		if terminated := r.handle(ev); terminated {
			break
		}
	}
	close(r.done)
	r.log.Info().Msg("room empty, shutting down")
	r.onEmpty(r.id)
}

// handle applies one event to the room state and emits the resulting
// messages. It reports whether the room has terminated.
func (r *Room) handle(ev Event) bool {
	st := r.state

	switch ev := ev.(type) {
	case Join:
		userID := ev.Session.UserID()
		if _, taken := st.users[userID]; taken {
			// The id belongs to a live session; declining here keeps
			// that session's registration intact, so its eventual Leave
			// evicts only itself.
			r.log.Warn().Str("user", userID).Msg("join declined, user id taken")
			ev.reply(ErrUserExists)
			return false
		}
		st.users[userID] = ev.Session
		r.log.Debug().Str("user", userID).Int("users", len(st.users)).Msg("user joined")
		r.broadcastExcept(userID, protocol.UserJoinedNotify(userID))
		r.unicast(userID, protocol.UserJoinedAccepted())
		ev.reply(nil)

	case Leave:
		if _, ok := st.users[ev.UserID]; !ok {
			return false
		}
		delete(st.users, ev.UserID)
		r.log.Debug().Str("user", ev.UserID).Int("users", len(st.users)).Msg("user left")
		if len(st.users) == 0 {
			// Last user: terminate without any farewell broadcasts.
			return true
		}
		delete(st.selectDragAnchors, ev.UserID)
		r.broadcast(protocol.UserLeftNotify(ev.UserID))
		r.unselectAll(ev.UserID)

	case AddFigure:
		id := r.alloc.Next()
		st.figures[id] = ev.Data
		metrics.FiguresCreated.Inc()
		r.broadcast(protocol.FigureAddedNotify(id, ev.Data))

	case RequestInfo:
		r.handleRequestInfo(ev)

	case MousePosition:
		r.broadcastExcept(ev.UserID, protocol.MousePositionNotify(ev.UserID, ev.Positions))

	case SelectFigure:
		accepted, _ := selectFigures(st, ev.UserID, ev.IDs)
		r.broadcastExcept(ev.UserID, protocol.FigureSelectedNotify(ev.UserID, accepted))
		r.unicast(ev.UserID, protocol.FigureSelectedAccepted(accepted))

	case UnselectFigureAll:
		r.unselectAll(ev.UserID)

	case SelectDragStart:
		st.selectDragAnchors[ev.UserID] = figure.Point{X: ev.X, Y: ev.Y}
		r.broadcastExcept(ev.UserID, protocol.SelectDragStartedNotify(ev.UserID, ev.X, ev.Y))

	case SelectDragFinish:
		delete(st.selectDragAnchors, ev.UserID)
		r.broadcastExcept(ev.UserID, protocol.SelectDragFinishedNotify(ev.UserID))

	case UpdateSelectedFigures:
		var acceptedSelect, acceptedUnselect figure.IDSet
		if ev.Select != nil {
			acceptedSelect, _ = selectFigures(st, ev.UserID, ev.Select)
		}
		if ev.Unselect != nil {
			acceptedUnselect, _ = unselectFigures(st, ev.UserID, ev.Unselect)
		}
		r.broadcastExcept(ev.UserID, protocol.SelectedFiguresUpdatedNotify(ev.UserID, acceptedSelect, acceptedUnselect))
		r.unicast(ev.UserID, protocol.SelectedFiguresUpdatedAccepted(acceptedSelect, acceptedUnselect))

	case DeleteFigures:
		accepted, _ := deleteFigures(st, ev.IDs)
		r.broadcastExcept(ev.UserID, protocol.FigureDeletedNotify(accepted))
		r.unicast(ev.UserID, protocol.FigureDeletedAccepted(accepted))
	}

	return false
}

func (r *Room) handleRequestInfo(ev RequestInfo) {
	st := r.state
	switch ev.Request {
	case protocol.RequestCurrentFigures:
		r.unicast(ev.UserID, protocol.CurrentFiguresResponse(st.figuresSnapshot()))
	case protocol.RequestCurrentSharedUsers:
		r.unicast(ev.UserID, protocol.CurrentSharedUsersResponse(st.userList()))
	case protocol.RequestCurrentSelectedFigures:
		r.unicast(ev.UserID, protocol.CurrentSelectedFiguresResponse(st.selectionsSnapshot()))
	case protocol.RequestCurrentSelectDragPositions:
		r.unicast(ev.UserID, protocol.CurrentSelectDragPositionsResponse(st.dragAnchorsSnapshot()))
	default:
		r.log.Warn().Str("user", ev.UserID).Str("request", string(ev.Request)).Msg("unknown info request")
	}
}

// unselectAll clears the user's whole selection and tells everyone.
func (r *Room) unselectAll(userID string) {
	delete(r.state.selectedFigures, userID)
	r.broadcastExcept(userID, protocol.FigureUnselectedAllNotify(userID))
	r.unicast(userID, protocol.FigureUnselectedAllAccepted())
}

// unicast delivers a message to one user if still registered; a
// missing user or a failed send is dropped silently.
func (r *Room) unicast(userID string, msg protocol.ServerMessage) {
	s, ok := r.state.users[userID]
	if !ok {
		return
	}
	if err := s.Send(msg); err != nil {
		metrics.DroppedSends.Inc()
		r.log.Warn().Str("user", userID).Str("kind", string(msg.Kind)).Err(err).Msg("unicast dropped")
	}
}

// broadcast delivers a message to every registered user. A failed
// delivery to one user never stops delivery to the rest.
func (r *Room) broadcast(msg protocol.ServerMessage) {
	r.broadcastExcept("", msg)
}

// broadcastExcept delivers a message to every registered user but the
// excluded one.
func (r *Room) broadcastExcept(exceptUserID string, msg protocol.ServerMessage) {
	for userID, s := range r.state.users {
		if userID == exceptUserID {
			continue
		}
		if err := s.Send(msg); err != nil {
			metrics.DroppedSends.Inc()
			r.log.Warn().Str("user", userID).Str("kind", string(msg.Kind)).Err(err).Msg("broadcast delivery dropped")
		}
	}
}
