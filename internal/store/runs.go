package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

// DefaultRunLimit caps ListRuns when the caller passes limit <= 0
const DefaultRunLimit = 20

// RunRepository stores finished predictions
// ⭐ SSOT: 예측 이력 저장/조회는 여기서만
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a new run repository
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// SaveRun inserts the run; a repeated run id overwrites the earlier row
func (r *RunRepository) SaveRun(ctx context.Context, run *contracts.ForecastRun) error {
	forecasts, err := json.Marshal(run.Forecasts)
	if err != nil {
		return fmt.Errorf("encode forecasts: %w", err)
	}
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}

	query := `
		INSERT INTO forecast.runs
			(run_id, symbol, forecast_days, current_price, forecasts, metrics, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO UPDATE SET
			forecasts = EXCLUDED.forecasts,
			metrics = EXCLUDED.metrics`

	_, err = r.pool.Exec(ctx, query,
		run.RunID, strings.ToUpper(run.Symbol), run.ForecastDays, run.CurrentPrice,
		forecasts, metrics, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}
	return nil
}

// ListRuns returns the most recent runs for a symbol, newest first
func (r *RunRepository) ListRuns(ctx context.Context, symbol string, limit int) ([]contracts.ForecastRun, error) {
	if limit <= 0 {
		limit = DefaultRunLimit
	}

	query := `
		SELECT run_id, symbol, forecast_days, current_price::float8, forecasts, metrics, created_at
		FROM forecast.runs
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]contracts.ForecastRun, 0, limit)
	for rows.Next() {
		var (
			run                contracts.ForecastRun
			forecasts, metrics []byte
		)
		if err := rows.Scan(&run.RunID, &run.Symbol, &run.ForecastDays, &run.CurrentPrice,
			&forecasts, &metrics, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := decodeRun(&run, forecasts, metrics); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func decodeRun(run *contracts.ForecastRun, forecasts, metrics []byte) error {
	if err := json.Unmarshal(forecasts, &run.Forecasts); err != nil {
		return fmt.Errorf("decode forecasts of run %s: %w", run.RunID, err)
	}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &run.Metrics); err != nil {
			return fmt.Errorf("decode metrics of run %s: %w", run.RunID, err)
		}
	}
	return nil
}
