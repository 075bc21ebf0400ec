package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/parkminje/drawroom/internal/metrics"
	"github.com/parkminje/drawroom/internal/protocol"
	"github.com/parkminje/drawroom/internal/ratelimit"
	"github.com/parkminje/drawroom/internal/room"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// ErrSessionClosed is returned by Send when the session's outbound
// buffer is full or the connection is gone. The room treats it as a
// dropped delivery, never as a room failure.
var ErrSessionClosed = errors.New("ws: session closed or send buffer full")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection bound to one user in one room.
// It implements room.Session: the room hands it outbound messages via
// Send, which never blocks.
type Client struct {
	conn    *websocket.Conn
	send    chan protocol.ServerMessage
	rm      *room.Room
	userID  string
	limiter *ratelimit.Limiter
	done    chan struct{}
	log     zerolog.Logger
}

// ServeWs upgrades the request and attaches the connection to the
// room named by the "room" query parameter. The "user" parameter
// names the user; absent, a fresh UUID is assigned.
func ServeWs(d *Directory, w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		roomID = "default"
	}
	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = uuid.NewString()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &Client{
		conn:    conn,
		send:    make(chan protocol.ServerMessage, sendBufferSize),
		userID:  userID,
		limiter: d.limiters.Get(userID),
		done:    make(chan struct{}),
		log:     d.log.With().Str("room", roomID).Str("user", userID).Logger(),
	}

	rm, err := d.Join(roomID, c)
	if err != nil {
		if errors.Is(err, room.ErrUserExists) {
			c.log.Warn().Msg("connection refused, user id already in room")
			deadline := time.Now().Add(writeWait)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "user id already in room"),
				deadline)
		} else {
			c.log.Error().Err(err).Msg("join failed")
		}
		conn.Close()
		return
	}
	c.rm = rm

	metrics.ConnectedUsers.Inc()
	go c.writePump()
	go c.readPump(d)
}

// UserID implements room.Session.
func (c *Client) UserID() string { return c.userID }

// Send implements room.Session. It queues the message without
// blocking; a full buffer drops the message and reports the failure.
func (c *Client) Send(msg protocol.ServerMessage) error {
	select {
	case <-c.done:
		return ErrSessionClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSessionClosed
	}
}

func (c *Client) readPump(d *Directory) {
	defer func() {
		close(c.done)
		_ = c.rm.Enqueue(room.Leave{UserID: c.userID})
		d.leave(c.userID)
		c.conn.Close()
		metrics.ConnectedUsers.Dec()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		if !c.limiter.Allow() {
			c.log.Warn().Msg("rate limit exceeded, message dropped")
			continue
		}

		var msg protocol.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn().Err(err).Msg("invalid client message")
			continue
		}

		if msg.Kind == protocol.ClientLeave {
			return
		}

		ev, ok := c.toEvent(msg)
		if !ok {
			c.log.Warn().Str("kind", string(msg.Kind)).Msg("unknown client message kind")
			continue
		}
		if err := c.rm.Enqueue(ev); err != nil {
			return
		}
	}
}

// toEvent converts a decoded wire message into the room event it maps
// to.
func (c *Client) toEvent(msg protocol.ClientMessage) (room.Event, bool) {
	switch msg.Kind {
	case protocol.ClientAddFigure:
		if msg.Figure == nil {
			return nil, false
		}
		return room.AddFigure{UserID: c.userID, Data: *msg.Figure}, true
	case protocol.ClientRequestInfo:
		return room.RequestInfo{UserID: c.userID, Request: msg.Request}, true
	case protocol.ClientMousePosition:
		return room.MousePosition{UserID: c.userID, Positions: msg.Positions}, true
	case protocol.ClientSelectFigure:
		return room.SelectFigure{UserID: c.userID, IDs: msg.FigureIDs}, true
	case protocol.ClientUnselectFigureAll:
		return room.UnselectFigureAll{UserID: c.userID}, true
	case protocol.ClientSelectDragStart:
		return room.SelectDragStart{UserID: c.userID, X: msg.X, Y: msg.Y}, true
	case protocol.ClientSelectDragFinish:
		return room.SelectDragFinish{UserID: c.userID}, true
	case protocol.ClientUpdateSelectedFigures:
		ev := room.UpdateSelectedFigures{UserID: c.userID}
		if msg.Select != nil {
			ev.Select = *msg.Select
		}
		if msg.Unselect != nil {
			ev.Unselect = *msg.Unselect
		}
		return ev, true
	case protocol.ClientDeleteFigures:
		return room.DeleteFigures{UserID: c.userID, IDs: msg.FigureIDs}, true
	default:
		return nil, false
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
