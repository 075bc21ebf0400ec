package ws

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/parkminje/drawroom/internal/db"
	"github.com/parkminje/drawroom/internal/figure"
	"github.com/parkminje/drawroom/internal/metrics"
	"github.com/parkminje/drawroom/internal/ratelimit"
	"github.com/parkminje/drawroom/internal/room"
)

// Config tunes the transport layer.
type Config struct {
	// MailboxCap bounds each room's inbound event queue.
	MailboxCap int

	// MessagesPerSecond / MessageBurst bound per-user inbound
	// message rates at the websocket edge.
	MessagesPerSecond float64
	MessageBurst      int
}

func DefaultConfig() Config {
	return Config{
		MailboxCap:        room.DefaultMailboxCap,
		MessagesPerSecond: 100,
		MessageBurst:      200,
	}
}

// Directory owns the set of live rooms. It creates a room's event
// loop on first reference, routes joins to it, and discards the room
// when it reports itself empty. At most one event loop is ever live
// per room id.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]*room.Room

	alloc    figure.Allocator
	registry *db.Registry // optional; nil disables metadata records
	limiters *ratelimit.Registry
	config   Config
	log      zerolog.Logger
}

func NewDirectory(alloc figure.Allocator, registry *db.Registry, config Config, log zerolog.Logger) *Directory {
	return &Directory{
		rooms:    make(map[string]*room.Room),
		alloc:    alloc,
		registry: registry,
		limiters: ratelimit.NewRegistry(config.MessagesPerSecond, config.MessageBurst),
		config:   config,
		log:      log,
	}
}

// Join registers a session in the named room, creating the room if
// needed, and waits until the room's event loop has acknowledged the
// registration. If the room terminates before processing the join,
// the lookup is retried against a fresh room, so a returned nil error
// always means the session is registered in a live room. A
// room.ErrUserExists outcome means the user id is held by another
// live session in that room.
func (d *Directory) Join(roomID string, s room.Session) (*room.Room, error) {
	for {
		rm := d.roomFor(roomID)
		reply := make(chan error, 1)
		if err := rm.Enqueue(room.Join{Session: s, Reply: reply}); err != nil {
			if err == room.ErrRoomClosed {
				continue
			}
			return nil, err
		}
		select {
		case err := <-reply:
			if err != nil {
				return nil, err
			}
			return rm, nil
		case <-rm.Done():
			// The loop may have processed the join right before it
			// stopped; trust the buffered reply over the done signal.
			select {
			case err := <-reply:
				if err != nil {
					return nil, err
				}
				return rm, nil
			default:
				// Join still sits in the dead mailbox; retry.
			}
		}
	}
}

// roomFor returns the live room for id, creating one on first
// reference.
func (d *Directory) roomFor(id string) *room.Room {
	d.mu.RLock()
	rm := d.rooms[id]
	d.mu.RUnlock()
	if rm != nil {
		return rm
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if rm := d.rooms[id]; rm != nil {
		return rm
	}

	rm = room.New(id, d.alloc, d.config.MailboxCap, d.roomEmptied, d.log)
	d.rooms[id] = rm
	metrics.ActiveRooms.Inc()
	d.log.Info().Str("room", id).Msg("room created")

	if d.registry != nil {
		if err := d.registry.Touch(id); err != nil {
			d.log.Warn().Str("room", id).Err(err).Msg("room record update failed")
		}
	}
	return rm
}

// roomEmptied is the room's "now empty" signal. It runs on the
// room's goroutine after its event loop has stopped.
func (d *Directory) roomEmptied(id string) {
	d.mu.Lock()
	delete(d.rooms, id)
	d.mu.Unlock()

	metrics.ActiveRooms.Dec()
	d.log.Info().Str("room", id).Msg("room deleted")

	if d.registry != nil {
		if err := d.registry.Touch(id); err != nil {
			d.log.Warn().Str("room", id).Err(err).Msg("room record update failed")
		}
	}
}

// leave releases per-user transport resources after a disconnect.
func (d *Directory) leave(userID string) {
	d.limiters.Remove(userID)
}

// RoomCount returns the number of live rooms.
func (d *Directory) RoomCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

// ActiveRoomIDs returns the ids of all live rooms.
func (d *Directory) ActiveRoomIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.rooms))
	for id := range d.rooms {
		ids = append(ids, id)
	}
	return ids
}

// IsActive reports whether the named room has a live event loop.
func (d *Directory) IsActive(roomID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.rooms[roomID]
	return ok
}

// Close stops background transport resources. Live rooms wind down
// on their own as their users disconnect.
func (d *Directory) Close() {
	d.limiters.Stop()
}
