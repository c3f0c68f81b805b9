package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "InTime", cfg.AppName)
	require.Equal(t, ":8080", cfg.Address())
	require.Equal(t, int64(1), cfg.DecayRate)
	require.Equal(t, "restorative", cfg.MintPolicy)
	require.Equal(t, devJWTSecret, cfg.JWTSecret)
	require.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	require.True(t, cfg.IsDev())
}

func TestLoadLedgerSettings(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("DECAY_RATE", "3")
	t.Setenv("MINT_POLICY", "STRICT")
	t.Setenv("ADMIN_ACCOUNT", "treasury")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "5")
	t.Setenv("ACCESS_TOKEN_TTL", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, int64(3), cfg.DecayRate)
	require.Equal(t, "strict", cfg.MintPolicy)
	require.Equal(t, "treasury", cfg.AdminAccount)
	require.Equal(t, 5*time.Second, cfg.ShutdownPeriod)
	require.Equal(t, 2*time.Minute, cfg.AccessTokenTTL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("APP_ENV", "dev")

	t.Setenv("DECAY_RATE", "0")
	_, err := Load()
	require.Error(t, err)

	// large enough that now*rate overflows int64 within the ledger's lifetime
	t.Setenv("DECAY_RATE", "10000000")
	_, err = Load()
	require.ErrorContains(t, err, "DECAY_RATE")

	t.Setenv("DECAY_RATE", "100000")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, int64(100_000), cfg.DecayRate)

	t.Setenv("DECAY_RATE", "1")
	t.Setenv("MINT_POLICY", "generous")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadRequiresBackingServicesOutsideDev(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	_, err := Load()
	require.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/intime")
	t.Setenv("JWT_SECRET", "")
	_, err = Load()
	require.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "a")
	t.Setenv("REFRESH_SECRET", "b")
	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.IsDev())
}
