package forecast

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

// SeriesStore fetches a daily closing-price series.
// Implementations return contracts.ErrNotFound for an empty range.
type SeriesStore interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) (contracts.PriceSeries, error)
}

// RunRecorder persists finished predictions (optional)
type RunRecorder interface {
	SaveRun(ctx context.Context, run *contracts.ForecastRun) error
}

// Metrics receives pipeline measurements (optional)
type Metrics interface {
	ObserveStage(stage string, d time.Duration)
	ObserveModel(model contracts.ModelID, m contracts.ModelMetrics)
	RecordRun(status string, d time.Duration)
}

// Stage names a pipeline progress event
type Stage string

const (
	StageFetched  Stage = "fetched"
	StagePrepared Stage = "prepared"
	StageTrained  Stage = "trained"
	StageForecast Stage = "forecast"
	StageBlended  Stage = "blended"
	StageDone     Stage = "done"
	StageError    Stage = "error"
)

// Event is one progress notification
type Event struct {
	RunID   string            `json:"run_id"`
	Stage   Stage             `json:"stage"`
	Model   contracts.ModelID `json:"model,omitempty"`
	Message string            `json:"message,omitempty"`
	Time    time.Time         `json:"time"`
}

// Observer receives progress events; calls are serialized
type Observer func(Event)

// Options are the pipeline settings
type Options struct {
	WindowSize  int
	HistoryDays int
	MaxDays     int
	Scaler      ScalerKind
	Parallel    bool
	Weights     contracts.BlendWeights
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		WindowSize:  60,
		HistoryDays: 730,
		MaxDays:     60,
		Scaler:      ScalerMinMax,
		Weights:     contracts.DefaultBlendWeights(),
	}
}

// Request is one forecast request
type Request struct {
	Symbol       string
	ForecastDays int
	RunID        string // optional, generated when empty
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithRecorder stores every successful run
func WithRecorder(r RunRecorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

// WithMetrics attaches a metrics sink
func WithMetrics(m Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides time.Now (tests)
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// Service runs the forecast pipeline:
// fetch → prepare → train → evaluate → rollout (per model) → blend → charts
type Service struct {
	store    SeriesStore
	sequence ModelPath
	tree     ModelPath
	blender  *Blender
	reporter *Reporter
	recorder RunRecorder
	metrics  Metrics
	opts     Options
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates the pipeline. sequence and tree are the two model paths
// blended into the hybrid forecast.
func NewService(store SeriesStore, sequence, tree ModelPath, reporter *Reporter, opts Options, log zerolog.Logger, options ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		sequence: sequence,
		tree:     tree,
		blender:  NewBlender(opts.Weights),
		reporter: reporter,
		opts:     opts,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Options returns the pipeline settings
func (s *Service) Options() Options {
	return s.opts
}

// pathResult is the output of one model path
type pathResult struct {
	id         contracts.ModelID
	forecast   contracts.ForecastSeries
	evaluation *Evaluation
	losses     *LossHistory
}

// emitter serializes observer calls across model goroutines
type emitter struct {
	mu    sync.Mutex
	runID string
	fn    Observer
	now   func() time.Time
}

func (e *emitter) emit(stage Stage, model contracts.ModelID, msg string) {
	if e.fn == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fn(Event{RunID: e.runID, Stage: stage, Model: model, Message: msg, Time: e.now()})
}

// NormalizeRequest upper-cases the symbol and validates the horizon
func (s *Service) NormalizeRequest(req Request) (Request, error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		return req, fmt.Errorf("%w: symbol is required", contracts.ErrMissingInput)
	}
	if req.ForecastDays < 1 {
		return req, fmt.Errorf("%w: forecast_days must be >= 1, got %d", contracts.ErrInvalidInput, req.ForecastDays)
	}
	if s.opts.MaxDays > 0 && req.ForecastDays > s.opts.MaxDays {
		return req, fmt.Errorf("%w: forecast_days must be <= %d, got %d", contracts.ErrInvalidInput, s.opts.MaxDays, req.ForecastDays)
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	return req, nil
}

// Predict runs the whole pipeline for one request. Any failure aborts the request;
// no partial result is returned.
func (s *Service) Predict(ctx context.Context, req Request, observer Observer) (*contracts.PredictionResult, error) {
	start := s.now()

	req, err := s.NormalizeRequest(req)
	if err != nil {
		s.recordRun("invalid", start)
		return nil, err
	}

	em := &emitter{runID: req.RunID, fn: observer, now: s.now}
	log := s.log.With().Str("run_id", req.RunID).Str("symbol", req.Symbol).Logger()

	result, err := s.predict(ctx, req, em, log)
	if err != nil {
		log.Error().Err(err).Str("kind", contracts.ErrorKind(err)).Msg("forecast failed")
		em.emit(StageError, "", err.Error())
		s.recordRun(contracts.ErrorKind(err), start)
		return nil, err
	}

	em.emit(StageDone, "", "")
	s.recordRun("success", start)
	log.Info().
		Int("forecast_days", req.ForecastDays).
		Dur("elapsed", s.now().Sub(start)).
		Msg("forecast completed")
	return result, nil
}

func (s *Service) predict(ctx context.Context, req Request, em *emitter, log zerolog.Logger) (*contracts.PredictionResult, error) {
	// 1. Fetch
	fetchStart := s.now()
	end := s.now()
	series, err := s.store.Fetch(ctx, req.Symbol, end.AddDate(0, 0, -s.opts.HistoryDays), end)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", req.Symbol, err)
	}
	last, ok := series.Last()
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", req.Symbol, contracts.ErrNotFound)
	}
	s.observeStage("fetch", fetchStart)
	em.emit(StageFetched, "", fmt.Sprintf("%d points", series.Len()))
	log.Debug().Int("points", series.Len()).Time("last_date", last.Date).Msg("series fetched")

	// 2. Model paths (independent: own scaler, dataset, regressor)
	var seq, tree *pathResult
	if s.opts.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			r, err := s.runPath(gctx, s.sequence, series, req.ForecastDays, em, log)
			seq = r
			return err
		})
		g.Go(func() error {
			r, err := s.runPath(gctx, s.tree, series, req.ForecastDays, em, log)
			tree = r
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		if seq, err = s.runPath(ctx, s.sequence, series, req.ForecastDays, em, log); err != nil {
			return nil, err
		}
		if tree, err = s.runPath(ctx, s.tree, series, req.ForecastDays, em, log); err != nil {
			return nil, err
		}
	}

	// 3. Blend
	hybrid, err := s.blender.BlendModels(seq.id, seq.forecast, tree.id, tree.forecast)
	if err != nil {
		return nil, err
	}
	em.emit(StageBlended, contracts.ModelHybrid, "")

	// 4. Charts
	chartStart := s.now()
	handle := OutputHandle{RunID: req.RunID}
	sections := make(map[contracts.ModelID]contracts.ModelResult, 3)
	for _, set := range []ChartSet{
		{Model: seq.id, Evaluation: seq.evaluation, Forecast: seq.forecast, Losses: seq.losses},
		{Model: tree.id, Evaluation: tree.evaluation, Forecast: tree.forecast, Losses: tree.losses},
		{Model: contracts.ModelHybrid, Forecast: hybrid},
	} {
		graphs, err := s.reporter.Report(ctx, handle, set)
		if err != nil {
			return nil, err
		}
		section := contracts.ModelResult{Forecast: set.Forecast, Graphs: graphs}
		if set.Evaluation != nil {
			section.Metrics = set.Evaluation.Metrics()
		}
		sections[set.Model] = section
	}
	s.observeStage("charts", chartStart)

	result := &contracts.PredictionResult{
		RunID:        req.RunID,
		Symbol:       req.Symbol,
		CurrentPrice: contracts.Round2(last.Close),
		ForecastDays: req.ForecastDays,
		LSTM:         sections[seq.id],
		XGBoost:      sections[tree.id],
		Hybrid:       sections[contracts.ModelHybrid],
		GeneratedAt:  s.now(),
	}

	s.saveRun(ctx, result, log)
	return result, nil
}

// runPath trains, evaluates and rolls out one model
func (s *Service) runPath(ctx context.Context, path ModelPath, series contracts.PriceSeries, days int, em *emitter, log zerolog.Logger) (*pathResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	plog := log.With().Str("model", string(path.ID)).Logger()

	prepared, err := Prepare(series, days, s.opts.WindowSize, s.opts.Scaler)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path.ID, err)
	}
	dataset := prepared.Dataset
	if path.MultiStep {
		if dataset, err = dataset.ToMultiStep(); err != nil {
			return nil, fmt.Errorf("%s: %w", path.ID, err)
		}
	}

	train, test := dataset.Split()
	if train.Len() == 0 || test.Len() == 0 {
		return nil, fmt.Errorf("%s: %w: %d samples give %d train / %d test",
			path.ID, contracts.ErrInsufficientData, dataset.Len(), train.Len(), test.Len())
	}
	em.emit(StagePrepared, path.ID, fmt.Sprintf("%d train / %d test", train.Len(), test.Len()))

	// Train
	trainStart := s.now()
	reg := path.New(s.opts.WindowSize, days)
	tracker, tracks := reg.(LossTracker)
	if tracks {
		tracker.TrackValidation(test.Features(), test.Labels())
	}
	if err := reg.Fit(train.Features(), train.Labels()); err != nil {
		return nil, fmt.Errorf("%s: train: %w", path.ID, err)
	}
	s.observeStage("train_"+string(path.ID), trainStart)
	em.emit(StageTrained, path.ID, "")

	// Evaluate (test split only)
	eval, err := Evaluate(path.ID, reg, test, prepared.Scaler)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveModel(path.ID, *eval.Metrics())
	}

	// Rollout
	fc, err := Forecast(reg, prepared.Seed, days, prepared.LastDate, prepared.Scaler)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path.ID, err)
	}
	em.emit(StageForecast, path.ID, "")

	var losses *LossHistory
	if tracks {
		tr, val := tracker.Losses()
		losses = &LossHistory{Train: tr, Validation: val}
	}

	plog.Info().
		Int("train", train.Len()).
		Int("test", test.Len()).
		Float64("mae", eval.MAE).
		Float64("accuracy", eval.Accuracy).
		Msg("model path finished")

	return &pathResult{id: path.ID, forecast: fc, evaluation: eval, losses: losses}, nil
}

// saveRun stores the run; failure does not fail the request
func (s *Service) saveRun(ctx context.Context, result *contracts.PredictionResult, log zerolog.Logger) {
	if s.recorder == nil {
		return
	}

	run := &contracts.ForecastRun{
		RunID:        result.RunID,
		Symbol:       result.Symbol,
		ForecastDays: result.ForecastDays,
		CurrentPrice: result.CurrentPrice,
		Forecasts: map[contracts.ModelID]contracts.ForecastSeries{
			contracts.ModelLSTM:    result.LSTM.Forecast,
			contracts.ModelXGBoost: result.XGBoost.Forecast,
			contracts.ModelHybrid:  result.Hybrid.Forecast,
		},
		Metrics:   make(map[contracts.ModelID]contracts.ModelMetrics, 2),
		CreatedAt: result.GeneratedAt,
	}
	if m := result.LSTM.Metrics; m != nil {
		run.Metrics[contracts.ModelLSTM] = *m
	}
	if m := result.XGBoost.Metrics; m != nil {
		run.Metrics[contracts.ModelXGBoost] = *m
	}

	if err := s.recorder.SaveRun(ctx, run); err != nil {
		log.Warn().Err(err).Msg("failed to save forecast run")
	}
}

func (s *Service) observeStage(stage string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStage(stage, s.now().Sub(start))
	}
}

func (s *Service) recordRun(status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordRun(status, s.now().Sub(start))
	}
}
