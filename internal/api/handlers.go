package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/parkminje/drawroom/internal/db"
	"github.com/parkminje/drawroom/internal/metrics"
	"github.com/parkminje/drawroom/internal/ws"
)

type API struct {
	directory *ws.Directory
	registry  *db.Registry
	log       zerolog.Logger
}

func New(directory *ws.Directory, registry *db.Registry, log zerolog.Logger) *API {
	return &API{
		directory: directory,
		registry:  registry,
		log:       log,
	}
}

// Router assembles the HTTP surface: health, stats, room records,
// Prometheus metrics and the websocket endpoint.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", a.handleHealth)
	r.Get("/metrics", metrics.Handler().ServeHTTP)
	r.Get("/api/stats", a.handleStats)
	r.Get("/api/rooms", a.handleListRooms)
	r.Delete("/api/rooms/{id}", a.handleDeleteRoom)
	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		ws.ServeWs(a.directory, w, req)
	})

	return r
}

func (a *API) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.log.Error().Err(err).Msg("encoding response failed")
	}
}

func (a *API) errorResponse(w http.ResponseWriter, status int, message string) {
	a.jsonResponse(w, status, map[string]string{"error": message})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"active_rooms": a.directory.RoomCount(),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}

	if a.registry != nil {
		if total, err := a.registry.Count(); err == nil {
			stats["known_rooms"] = total
		}
	}

	a.jsonResponse(w, http.StatusOK, stats)
}

func (a *API) handleListRooms(w http.ResponseWriter, r *http.Request) {
	if a.registry == nil {
		a.jsonResponse(w, http.StatusOK, []db.RoomRecord{})
		return
	}

	records, err := a.registry.ListRooms(100, 0)
	if err != nil {
		a.log.Error().Err(err).Msg("listing rooms failed")
		a.errorResponse(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}
	if records == nil {
		records = []db.RoomRecord{}
	}
	a.jsonResponse(w, http.StatusOK, records)
}

func (a *API) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if a.directory.IsActive(id) {
		a.errorResponse(w, http.StatusConflict, "room is active")
		return
	}
	if a.registry == nil {
		a.errorResponse(w, http.StatusNotFound, "room not found")
		return
	}
	if err := a.registry.Delete(id); err != nil {
		a.log.Error().Err(err).Str("room", id).Msg("deleting room record failed")
		a.errorResponse(w, http.StatusInternalServerError, "failed to delete room")
		return
	}
	a.jsonResponse(w, http.StatusOK, map[string]string{"deleted": id})
}
