package database

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockcast/backend/pkg/config"
)

func testConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	return config.DatabaseConfig{
		URL:             url,
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 5 * time.Minute,
	}
}

func TestNew_Disabled(t *testing.T) {
	db, err := New(context.Background(), config.DatabaseConfig{})
	assert.Nil(t, db)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNew_BadURL(t *testing.T) {
	_, err := New(context.Background(), config.DatabaseConfig{URL: "postgres://%zz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse database URL")
}

func TestSchema(t *testing.T) {
	ddl := Schema()
	for _, table := range []string{"forecast.price_history", "forecast.runs"} {
		assert.True(t, strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS "+table), table)
	}
}

func TestClose_Nil(t *testing.T) {
	var db *DB
	assert.NotPanics(t, db.Close)
}

func TestHealthCheck(t *testing.T) {
	cfg := testConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Equal(t, int32(4), status.Stats.MaxConns)
}

func TestMigrate_Idempotent(t *testing.T) {
	cfg := testConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx))
}
