// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is everything the server reads from the environment. A .env
// file in the working directory is loaded first if present.
type Config struct {
	ListenAddr string
	AppEnv     string // "development" or "production"
	LogLevel   string

	// DatabaseURL selects the Postgres entity store; empty falls back to
	// the in-memory store (single-node development only).
	DatabaseURL string

	// RedisAddr enables the action mirror and lookup cache; empty
	// disables both.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	JWTSecret string

	// MaxStealPerGift is the per-gift steal cap applied to new rooms.
	MaxStealPerGift int
}

// Load reads configuration from .env and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		AppEnv:          getEnv("APP_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisPrefix:     getEnv("REDIS_PREFIX", "gs:"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		MaxStealPerGift: 1,
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.MaxStealPerGift, err = getEnvInt("ROOM_MAX_STEAL_PER_GIFT", 1); err != nil {
		return nil, err
	}
	if cfg.MaxStealPerGift < 0 {
		return nil, fmt.Errorf("config: ROOM_MAX_STEAL_PER_GIFT must not be negative")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
