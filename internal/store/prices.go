package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

// PriceRepository archives daily closes in forecast.price_history
// ⭐ SSOT: 종가 아카이브 저장/조회는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// SavePrices upserts every point of the series
func (r *PriceRepository) SavePrices(ctx context.Context, series contracts.PriceSeries) error {
	if series.Len() == 0 {
		return nil
	}

	query := `
		INSERT INTO forecast.price_history (symbol, trade_date, close_price)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			close_price = EXCLUDED.close_price,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	symbol := strings.ToUpper(series.Symbol())
	for _, p := range series.Points() {
		batch.Queue(query, symbol, p.Date, p.Close)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < series.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert price %s #%d: %w", symbol, i, err)
		}
	}

	return nil
}

// Fetch reads the archived closes in [start, end].
// Implements forecast.SeriesStore so the pipeline can run without the upstream.
func (r *PriceRepository) Fetch(ctx context.Context, symbol string, start, end time.Time) (contracts.PriceSeries, error) {
	symbol = strings.ToUpper(symbol)
	query := `
		SELECT trade_date, close_price::float8
		FROM forecast.price_history
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date`

	rows, err := r.pool.Query(ctx, query, symbol, start, end)
	if err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	var points []contracts.PricePoint
	for rows.Next() {
		var p contracts.PricePoint
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return contracts.PriceSeries{}, fmt.Errorf("scan price: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("iterate prices: %w", err)
	}

	if len(points) == 0 {
		return contracts.PriceSeries{}, fmt.Errorf("archive %s: %w", symbol, contracts.ErrNotFound)
	}

	return contracts.NewPriceSeries(symbol, points)
}
