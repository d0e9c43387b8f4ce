package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockcast/backend/internal/contracts"
	"github.com/wonny/stockcast/backend/pkg/config"
	"github.com/wonny/stockcast/backend/pkg/database"
)

func TestDecodeRun(t *testing.T) {
	run := contracts.ForecastRun{RunID: "r1"}
	forecasts := []byte(`{"hybrid":[{"date":"2024-03-02","value":101.5}]}`)
	metrics := []byte(`{"lstm":{"mae":1.25,"accuracy":0.98,"test_samples":7}}`)

	require.NoError(t, decodeRun(&run, forecasts, metrics))

	require.Len(t, run.Forecasts[contracts.ModelHybrid], 1)
	assert.Equal(t, 101.5, run.Forecasts[contracts.ModelHybrid][0].Price)
	assert.Equal(t, 7, run.Metrics[contracts.ModelLSTM].TestSamples)
}

func TestDecodeRun_BadJSON(t *testing.T) {
	run := contracts.ForecastRun{RunID: "r2"}
	err := decodeRun(&run, []byte(`{`), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "r2")
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, config.DatabaseConfig{URL: url, MaxConns: 2})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestPriceRepository_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewPriceRepository(db.Pool)
	ctx := context.Background()

	symbol := "T" + uuid.NewString()[:8]
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series, err := contracts.NewPriceSeries(symbol, []contracts.PricePoint{
		{Date: base, Close: 10},
		{Date: base.AddDate(0, 0, 1), Close: 11},
	})
	require.NoError(t, err)

	require.NoError(t, repo.SavePrices(ctx, series))
	require.NoError(t, repo.SavePrices(ctx, series), "upsert is idempotent")

	got, err := repo.Fetch(ctx, symbol, base.AddDate(0, 0, -1), base.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11}, got.Closes())

	_, err = repo.Fetch(ctx, symbol, base.AddDate(1, 0, 0), base.AddDate(1, 0, 5))
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestRunRepository_SaveAndList(t *testing.T) {
	db := openTestDB(t)
	repo := NewRunRepository(db.Pool)
	ctx := context.Background()

	symbol := "R" + uuid.NewString()[:8]
	created := time.Now().UTC().Truncate(time.Second)
	date := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		run := &contracts.ForecastRun{
			RunID:        uuid.NewString(),
			Symbol:       symbol,
			ForecastDays: 1,
			CurrentPrice: 100 + float64(i),
			Forecasts: map[contracts.ModelID]contracts.ForecastSeries{
				contracts.ModelHybrid: {{Date: date, Price: 101}},
			},
			Metrics:   map[contracts.ModelID]contracts.ModelMetrics{},
			CreatedAt: created.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.SaveRun(ctx, run))
	}

	runs, err := repo.ListRuns(ctx, symbol, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 102.0, runs[0].CurrentPrice, "newest first")
	assert.Equal(t, 101.0, runs[0].Forecasts[contracts.ModelHybrid][0].Price)
}
