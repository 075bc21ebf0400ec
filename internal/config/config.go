package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Env      string
	HTTPAddr string
	DBPath   string

	RoomMailboxCap    int
	MessagesPerSecond float64
	MessageBurst      int

	JanitorInterval  time.Duration
	JanitorRetention time.Duration
}

// Load reads configuration from the environment with development
// defaults.
func Load() Config {
	return Config{
		Env:      getEnv("APP_ENV", "dev"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		DBPath:   getEnv("DB_PATH", "./data/drawroom.db"),

		RoomMailboxCap:    getEnvInt("ROOM_MAILBOX_CAP", 1000),
		MessagesPerSecond: float64(getEnvInt("WS_MESSAGES_PER_SECOND", 100)),
		MessageBurst:      getEnvInt("WS_MESSAGE_BURST", 200),

		JanitorInterval:  getEnvDuration("JANITOR_INTERVAL", time.Hour),
		JanitorRetention: getEnvDuration("JANITOR_RETENTION", 30*24*time.Hour),
	}
}

// NewLogger returns the process logger: JSON to stdout in prod,
// console output at debug level everywhere else.
func NewLogger(env string) zerolog.Logger {
	if env == "prod" {
		return zerolog.New(os.Stdout).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
