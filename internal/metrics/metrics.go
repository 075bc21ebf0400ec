package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveRooms is the number of rooms with a live event loop.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "drawroom_active_rooms",
		Help: "Number of rooms currently running.",
	})

	// ConnectedUsers is the number of open websocket sessions.
	ConnectedUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "drawroom_connected_users",
		Help: "Number of connected websocket sessions.",
	})

	// RoomEvents counts events processed by room event loops.
	RoomEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drawroom_room_events_total",
		Help: "Room events processed, by event kind.",
	}, []string{"kind"})

	// DroppedSends counts outbound messages dropped because a
	// session's send buffer was full or closed.
	DroppedSends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drawroom_dropped_sends_total",
		Help: "Outbound messages dropped on delivery.",
	})

	// FiguresCreated counts figures added across all rooms.
	FiguresCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drawroom_figures_created_total",
		Help: "Figures added across all rooms.",
	})
)

// Handler exposes Prometheus metrics at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
