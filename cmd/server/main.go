package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/parkminje/drawroom/internal/api"
	"github.com/parkminje/drawroom/internal/config"
	"github.com/parkminje/drawroom/internal/db"
	"github.com/parkminje/drawroom/internal/figure"
	"github.com/parkminje/drawroom/internal/janitor"
	"github.com/parkminje/drawroom/internal/ws"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := config.NewLogger(cfg.Env)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("opening room registry failed")
	}
	defer registry.Close()

	directory := ws.NewDirectory(figure.NewAllocator(), registry, ws.Config{
		MailboxCap:        cfg.RoomMailboxCap,
		MessagesPerSecond: cfg.MessagesPerSecond,
		MessageBurst:      cfg.MessageBurst,
	}, logger)
	defer directory.Close()

	jan := janitor.New(registry, directory, janitor.Config{
		Interval:  cfg.JanitorInterval,
		Retention: cfg.JanitorRetention,
	}, logger)
	jan.Start()
	defer jan.Stop()

	handler := api.New(directory, registry, logger).Router()
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           corsMiddleware(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("server crashed")
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info().Msg("shutdown complete")
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
