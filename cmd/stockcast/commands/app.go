package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/stockcast/backend/internal/chart"
	"github.com/wonny/stockcast/backend/internal/contracts"
	"github.com/wonny/stockcast/backend/internal/external/yahoo"
	"github.com/wonny/stockcast/backend/internal/forecast"
	"github.com/wonny/stockcast/backend/internal/model"
	"github.com/wonny/stockcast/backend/internal/modelconfig"
	"github.com/wonny/stockcast/backend/internal/store"
	"github.com/wonny/stockcast/backend/pkg/config"
	"github.com/wonny/stockcast/backend/pkg/database"
	"github.com/wonny/stockcast/backend/pkg/httputil"
	"github.com/wonny/stockcast/backend/pkg/logger"
	"github.com/wonny/stockcast/backend/pkg/metrics"
	"github.com/wonny/stockcast/backend/pkg/redis"
)

// app is the composition root shared by api, forecast and profile commands
type app struct {
	cfg *config.Config
	log *logger.Logger

	db       *database.DB // nil when DATABASE_URL is unset
	redis    *redis.Client
	metrics  *metrics.Recorder // nil when METRICS_ENABLED=false
	renderer *chart.Renderer
	prices   *store.PriceRepository
	runs     *store.RunRepository
	profiles *yahoo.CachedProfiles
	service  *forecast.Service
}

type appOptions struct {
	// offline는 Yahoo 대신 DB 아카이브에서 시세를 읽음
	offline bool
}

// newApp wires config → clients → stores → pipeline
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, log: log}

	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	// 1. Model hyperparameters
	mc, raw, err := modelconfig.Load(cfg.Forecast.ModelConfig)
	if err != nil {
		return nil, err
	}
	snap, err := modelconfig.NewSnapshot(mc, raw)
	if err != nil {
		return nil, fmt.Errorf("model config snapshot: %w", err)
	}
	for _, w := range modelconfig.Warn(mc) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	// 2. Optional database
	db, err := database.New(ctx, cfg.Database)
	switch {
	case errors.Is(err, database.ErrDisabled):
		log.Info("Database disabled: price archive and forecast history off")
	case err != nil:
		return nil, err
	default:
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		a.prices = store.NewPriceRepository(db.Pool)
		a.runs = store.NewRunRepository(db.Pool)
	}

	// 3. Optional Redis (disabled client is a no-op cache)
	rc, err := redis.New(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.redis = rc

	// 4. Upstream clients: 시세 요청은 retry 없음, 프로필 스크래핑만 retry
	chartHTTP := httputil.NewWithTimeout(log, cfg.Yahoo.Timeout).
		WithRateLimit(cfg.Yahoo.RequestsPerSecond, 1)
	profileHTTP := httputil.NewWithTimeout(log, cfg.Yahoo.Timeout).
		WithRateLimit(cfg.Yahoo.RequestsPerSecond, 1).
		WithRetry(2, 500*time.Millisecond)
	if a.metrics != nil {
		chartHTTP.WithObserver(a.metrics.ObserveUpstream)
		profileHTTP.WithObserver(a.metrics.ObserveUpstream)
	}

	quotes := yahoo.NewClient(chartHTTP, log, cfg.Yahoo)
	a.profiles = yahoo.NewCachedProfiles(
		yahoo.NewClient(profileHTTP, log, cfg.Yahoo),
		redis.NewCache(rc, "stockcast"),
		redis.TTLProfile,
	)

	// 5. Charts
	a.renderer, err = chart.New(cfg.Graphs.Dir, log.Component("chart"))
	if err != nil {
		a.Close()
		return nil, err
	}

	// 6. Series store
	var series forecast.SeriesStore = quotes
	switch {
	case opts.offline && a.prices == nil:
		a.Close()
		return nil, fmt.Errorf("offline mode needs DATABASE_URL")
	case opts.offline:
		series = a.prices
	case a.prices != nil:
		series = store.NewArchivingStore(quotes, a.prices, log.Component("archive"))
	}

	// 7. Pipeline
	var svcOpts []forecast.ServiceOption
	if a.runs != nil {
		svcOpts = append(svcOpts, forecast.WithRecorder(a.runs))
	}
	if a.metrics != nil {
		svcOpts = append(svcOpts, forecast.WithMetrics(a.metrics))
	}

	a.service = forecast.NewService(
		series,
		model.SequencePath(mc.Sequence),
		model.TreePath(mc.Tree),
		forecast.NewReporter(a.renderer, log.Component("forecast")),
		pipelineOptions(cfg, mc),
		log.Component("forecast"),
		svcOpts...,
	)

	log.WithFields(map[string]interface{}{
		"model_config": snap.Name,
		"config_hash":  snap.ConfigHash[:12],
		"window":       cfg.Forecast.WindowSize,
		"scaler":       cfg.Forecast.Scaler,
		"parallel":     cfg.Forecast.Parallel,
		"database":     a.db != nil,
		"redis":        rc.Enabled(),
	}).Info("Forecast pipeline ready")

	return a, nil
}

// pipelineOptions maps env config and the model file onto forecast.Options.
// YAML blend 섹션이 있으면 FORECAST_LSTM_WEIGHT보다 우선
func pipelineOptions(cfg *config.Config, mc *modelconfig.Config) forecast.Options {
	envWeights := contracts.BlendWeights{
		contracts.ModelLSTM:    cfg.Forecast.LSTMWeight,
		contracts.ModelXGBoost: 1 - cfg.Forecast.LSTMWeight,
	}
	return forecast.Options{
		WindowSize:  cfg.Forecast.WindowSize,
		HistoryDays: cfg.Forecast.HistoryDays,
		MaxDays:     cfg.Forecast.MaxDays,
		Scaler:      forecast.ScalerKind(cfg.Forecast.Scaler),
		Parallel:    cfg.Forecast.Parallel,
		Weights:     mc.Weights(envWeights),
	}
}

// Close releases the optional connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Redis close failed")
		}
	}
}
