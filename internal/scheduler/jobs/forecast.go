package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/stockcast/backend/internal/contracts"
	"github.com/wonny/stockcast/backend/internal/forecast"
	"github.com/wonny/stockcast/backend/pkg/logger"
)

// Predictor runs one forecast (forecast.Service)
type Predictor interface {
	Predict(ctx context.Context, req forecast.Request, observer forecast.Observer) (*contracts.PredictionResult, error)
}

// WatchlistForecastJob forecasts every watchlist symbol after market close.
// 결과 저장은 파이프라인의 RunRecorder가 담당 (DB 활성 시 /api/forecasts에서 조회)
type WatchlistForecastJob struct {
	predictor Predictor
	symbols   []string
	days      int
	schedule  string
	logger    *logger.Logger
}

// NewWatchlistForecastJob creates a new batch forecast job
func NewWatchlistForecastJob(predictor Predictor, symbols []string, days int, schedule string, log *logger.Logger) *WatchlistForecastJob {
	if schedule == "" {
		schedule = "0 30 18 * * 1-5" // 평일 18:30
	}
	return &WatchlistForecastJob{
		predictor: predictor,
		symbols:   symbols,
		days:      days,
		schedule:  schedule,
		logger:    log,
	}
}

// Name returns the job name
func (j *WatchlistForecastJob) Name() string {
	return "watchlist_forecast"
}

// Schedule returns the cron schedule
func (j *WatchlistForecastJob) Schedule() string {
	return j.schedule
}

// Run forecasts each symbol; one failing symbol does not stop the rest
func (j *WatchlistForecastJob) Run(ctx context.Context) error {
	j.logger.Infof("Starting watchlist forecast (%d symbols, %d days)", len(j.symbols), j.days)

	var errs []error
	succeeded := 0
	for _, symbol := range j.symbols {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := j.predictor.Predict(ctx, forecast.Request{Symbol: symbol, ForecastDays: j.days}, nil)
		if err != nil {
			j.logger.WithError(err).WithField("symbol", symbol).
				Warnf("Watchlist forecast failed (%s)", contracts.ErrorKind(err))
			errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
			continue
		}
		succeeded++

		j.logger.WithRun(result.RunID, result.Symbol).
			WithField("current_price", result.CurrentPrice).
			Debug("Watchlist forecast done")
	}

	j.logger.WithFields(map[string]interface{}{
		"succeeded": succeeded,
		"failed":    len(errs),
	}).Info("Watchlist forecast completed")

	// 전부 실패한 경우만 job 실패로 처리 (retry 대상)
	if succeeded == 0 && len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
