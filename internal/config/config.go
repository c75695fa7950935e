package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backend selectors.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	DBDSN         string
	Environment   string
	HTTPAddr      string
	JWTSecret     string
	Store         string
	ClaimTimeout  time.Duration
	SweepInterval time.Duration
}

// Load reads configuration from .env (when present) and the environment.
func Load() (*Config, error) {
	// Missing .env is fine; plain environment variables win anyway.
	_ = godotenv.Load(".env")

	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		Environment:   os.Getenv("ENV"),
		HTTPAddr:      os.Getenv("HTTP_ADDR"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		Store:         os.Getenv("STORE"),
		ClaimTimeout:  durationMS("CLAIM_TIMEOUT_MS", 3000),
		SweepInterval: durationMS("SWEEP_INTERVAL_MS", 60000),
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.Store == "" {
		cfg.Store = StorePostgres
	}

	if cfg.Store != StorePostgres && cfg.Store != StoreMemory {
		return nil, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}
	if cfg.Store == StorePostgres && cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required when STORE=%s", StorePostgres)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func durationMS(key string, fallback int64) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(fallback) * time.Millisecond
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return time.Duration(fallback) * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}
