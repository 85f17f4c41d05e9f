package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/pawbit")
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_1")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "usd", cfg.StripeCurrency)
	require.Equal(t, FeedersPostgres, cfg.FeederBackend)
	require.Equal(t, "@every 5m", cfg.ReconcileSchedule)
	require.True(t, cfg.AutoMigrate)
	require.Equal(t, 5.0, cfg.RateLimitRPS)
	require.Equal(t, 10, cfg.RateLimitBurst)
	require.True(t, cfg.IsDev())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("FEEDER_BACKEND", "memory")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("APP_ENV", "prod")

	cfg, err := load()
	require.NoError(t, err)
	require.Equal(t, FeedersMemory, cfg.FeederBackend)
	require.False(t, cfg.AutoMigrate)
	require.False(t, cfg.IsDev())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("STRIPE_SECRET_KEY", "sk")

	_, err := load()
	require.Error(t, err)
}

func TestLoad_BadBackend(t *testing.T) {
	setRequired(t)
	t.Setenv("FEEDER_BACKEND", "mongo")

	_, err := load()
	require.ErrorContains(t, err, "FEEDER_BACKEND")
}
