package jobs

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockcast/backend/internal/contracts"
	"github.com/wonny/stockcast/backend/internal/forecast"
	"github.com/wonny/stockcast/backend/pkg/config"
	"github.com/wonny/stockcast/backend/pkg/logger"
)

type fakePruner struct {
	now       time.Time
	retention time.Duration
	removed   int
	err       error
}

func (f *fakePruner) Prune(now time.Time, retention time.Duration) (int, error) {
	f.now, f.retention = now, retention
	return f.removed, f.err
}

func TestChartCleanupJob(t *testing.T) {
	pruner := &fakePruner{removed: 4}
	job := NewChartCleanupJob(pruner, 24*time.Hour, "", logger.Nop())
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	assert.Equal(t, "chart_cleanup", job.Name())
	assert.Equal(t, "0 0 * * * *", job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, fixed, pruner.now)
	assert.Equal(t, 24*time.Hour, pruner.retention)

	pruner.err = errors.New("permission denied")
	assert.Error(t, job.Run(context.Background()))
}

type scriptedPredictor struct {
	fail  map[string]bool
	calls []forecast.Request
}

func (s *scriptedPredictor) Predict(ctx context.Context, req forecast.Request, observer forecast.Observer) (*contracts.PredictionResult, error) {
	s.calls = append(s.calls, req)
	if s.fail[req.Symbol] {
		return nil, contracts.ErrNotFound
	}
	return &contracts.PredictionResult{Symbol: req.Symbol, RunID: "r"}, nil
}

func TestWatchlistForecastJob(t *testing.T) {
	p := &scriptedPredictor{fail: map[string]bool{"BAD": true}}
	job := NewWatchlistForecastJob(p, []string{"AAPL", "BAD", "MSFT"}, 5, "", logger.Nop())

	assert.Equal(t, "0 30 18 * * 1-5", job.Schedule())
	require.NoError(t, job.Run(context.Background()), "partial failure is not a job failure")

	require.Len(t, p.calls, 3)
	for _, c := range p.calls {
		assert.Equal(t, 5, c.ForecastDays)
	}
}

func TestWatchlistForecastJob_Logs(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&config.Config{LogLevel: "debug", LogFormat: "json", Env: "development"}, &buf)

	p := &scriptedPredictor{fail: map[string]bool{"BAD": true}}
	job := NewWatchlistForecastJob(p, []string{"AAPL", "BAD"}, 7, "", log)
	require.NoError(t, job.Run(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "Starting watchlist forecast (2 symbols, 7 days)")
	assert.Contains(t, out, "Watchlist forecast failed (not_found)")

	var done string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Watchlist forecast done") {
			done = line
		}
	}
	require.NotEmpty(t, done)
	assert.Contains(t, done, `"run_id":"r"`)
	assert.Contains(t, done, `"symbol":"AAPL"`)
}

func TestWatchlistForecastJob_AllFail(t *testing.T) {
	p := &scriptedPredictor{fail: map[string]bool{"X": true, "Y": true}}
	job := NewWatchlistForecastJob(p, []string{"X", "Y"}, 7, "", logger.Nop())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestWatchlistForecastJob_Cancelled(t *testing.T) {
	p := &scriptedPredictor{}
	job := NewWatchlistForecastJob(p, []string{"AAPL"}, 7, "", logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
	assert.Empty(t, p.calls)
}
