package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("PG_HOST", "localhost")
	t.Setenv("PG_USER", "flags")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("PG_DATABASE", "flags")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("JWT_SECRET", "jwt-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "flag-practice", cfg.Name)
	assert.Equal(t, 2*time.Second, cfg.Practice.GenerationWarnThreshold)
	assert.Equal(t, 100, cfg.Practice.MaxSessionLength)
	assert.Equal(t, 10*time.Minute, cfg.Catalog.CacheTTL)
	assert.Equal(t, []string{"GET", "POST", "OPTIONS"}, cfg.CORS.AllowedMethods)
	assert.Contains(t, cfg.Postgres.DSN(), "dbname=flags")
	assert.Contains(t, cfg.Postgres.DSN(), "pool_max_conns=10")
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load(context.Background())
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveSessionLength(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PRACTICE_MAX_SESSION_LENGTH", "0")

	_, err := Load(context.Background())
	assert.ErrorContains(t, err, "PRACTICE_MAX_SESSION_LENGTH")
}

func TestLoadPostgresOnly(t *testing.T) {
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_USER", "flags")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("PG_DATABASE", "flags")

	pg, err := LoadPostgres()
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=flags password=secret dbname=flags sslmode=disable", pg.ConnString())
	assert.NotContains(t, pg.ConnString(), "pool_max_conns")
}
