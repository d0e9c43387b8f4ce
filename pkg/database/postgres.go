package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stockcast/backend/pkg/config"
)

// ErrDisabled is returned when DATABASE_URL is not configured
var ErrDisabled = errors.New("database disabled: DATABASE_URL not set")

//go:embed schema.sql
var schemaSQL string

// DB wraps the pgx pool used by the price archive and forecast history
// ⭐ SSOT: DB 연결은 이 패키지에서만 생성
type DB struct {
	Pool *pgxpool.Pool
}

// New opens the pool and verifies it with a ping.
// DB는 optional: URL이 비어 있으면 ErrDisabled
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Migrate creates the forecast schema if it does not exist yet.
// 모든 DDL은 IF NOT EXISTS라서 매 기동마다 실행해도 안전
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Schema returns the DDL applied by Migrate
func Schema() string {
	return schemaSQL
}

// Close closes the pool
func (db *DB) Close() {
	if db != nil && db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping checks if the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// HealthStatus is reported by /health and the test-db command
type HealthStatus struct {
	Healthy      bool          `json:"healthy"`
	Timestamp    time.Time     `json:"timestamp"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
	Stats        PoolStats     `json:"stats"`
}

// PoolStats is a snapshot of the pgx pool counters
type PoolStats struct {
	AcquireCount    int64         `json:"acquire_count"`
	AcquireDuration time.Duration `json:"acquire_duration"`
	AcquiredConns   int32         `json:"acquired_conns"`
	IdleConns       int32         `json:"idle_conns"`
	MaxConns        int32         `json:"max_conns"`
	TotalConns      int32         `json:"total_conns"`
}

// HealthCheck pings the database and attaches pool statistics
func (db *DB) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{Timestamp: time.Now()}

	start := time.Now()
	if err := db.Pool.Ping(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)
	status.Stats = db.Stats()
	status.Healthy = true

	return status, nil
}

// Stats returns the current pool statistics
func (db *DB) Stats() PoolStats {
	s := db.Pool.Stat()
	return PoolStats{
		AcquireCount:    s.AcquireCount(),
		AcquireDuration: s.AcquireDuration(),
		AcquiredConns:   s.AcquiredConns(),
		IdleConns:       s.IdleConns(),
		MaxConns:        s.MaxConns(),
		TotalConns:      s.TotalConns(),
	}
}
