package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const (
	FeedersPostgres = "postgres"
	FeedersMemory   = "memory"
)

// Load reads the environment, after a .env file when one exists, and
// panics when a required value is missing.
func Load() App {
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env")
	}
	cfg, err := load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		panic(err)
	}
	return cfg
}

func load() (App, error) {
	var cfg App
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return App{}, err
	}
	switch cfg.FeederBackend {
	case FeedersPostgres, FeedersMemory:
	default:
		return App{}, fmt.Errorf("FEEDER_BACKEND must be %q or %q, got %q", FeedersPostgres, FeedersMemory, cfg.FeederBackend)
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return App{}, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return cfg, nil
}
