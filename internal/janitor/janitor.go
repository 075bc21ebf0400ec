package janitor

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/parkminje/drawroom/internal/db"
)

type Config struct {
	Interval  time.Duration
	Retention time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:  time.Hour,
		Retention: 30 * 24 * time.Hour,
	}
}

// LiveRooms reports which rooms currently have a running event loop;
// their records are never pruned regardless of age.
type LiveRooms interface {
	ActiveRoomIDs() []string
}

// Service prunes registry records of rooms that have been idle longer
// than the retention window.
type Service struct {
	registry *db.Registry
	live     LiveRooms
	config   Config
	log      zerolog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

func New(registry *db.Registry, live LiveRooms, config Config, log zerolog.Logger) *Service {
	return &Service{
		registry: registry,
		live:     live,
		config:   config,
		log:      log.With().Str("component", "janitor").Logger(),
		stop:     make(chan struct{}),
	}
}

func (s *Service) Start() {
	s.wg.Add(1)
	go s.run()
	s.log.Info().
		Dur("interval", s.config.Interval).
		Dur("retention", s.config.Retention).
		Msg("janitor started")
}

func (s *Service) Stop() {
	close(s.stop)
	s.wg.Wait()
	s.log.Info().Msg("janitor stopped")
}

func (s *Service) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.PruneNow()
		}
	}
}

// PruneNow removes stale room records immediately.
func (s *Service) PruneNow() {
	cutoff := time.Now().Add(-s.config.Retention)
	n, err := s.registry.DeleteIdleBefore(cutoff, s.live.ActiveRoomIDs())
	if err != nil {
		s.log.Error().Err(err).Msg("prune failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("rooms", n).Msg("pruned stale room records")
	}
}
