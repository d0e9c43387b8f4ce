package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

// Rollout drives a trained regressor past the end of the known series,
// feeding every prediction back into the input window.
//
// State is the current scaled window and the step counter; Step advances it by one
// regressor call so single transitions can be inspected in isolation.
type Rollout struct {
	regressor Regressor
	scaler    Scaler
	horizon   int
	lastDate  time.Time
	stride    int

	window []float64
	step   int
	out    contracts.ForecastSeries
}

// RolloutOption configures a Rollout
type RolloutOption func(*Rollout)

// WithStride lets a multi-output regressor contribute up to n steps per call.
// Default is 1: only the first output is used and fed back.
func WithStride(n int) RolloutOption {
	return func(r *Rollout) {
		if n > 0 {
			r.stride = n
		}
	}
}

// NewRollout starts a rollout from seed (the last windowSize scaled closes)
func NewRollout(reg Regressor, seed []float64, horizon int, lastDate time.Time, scaler Scaler, opts ...RolloutOption) (*Rollout, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("rollout: %w: horizon must be >= 1, got %d", contracts.ErrInvalidInput, horizon)
	}
	if len(seed) == 0 {
		return nil, fmt.Errorf("rollout: %w: empty seed window", contracts.ErrInsufficientData)
	}

	window := make([]float64, len(seed))
	copy(window, seed)

	r := &Rollout{
		regressor: reg,
		scaler:    scaler,
		horizon:   horizon,
		lastDate:  lastDate,
		stride:    1,
		window:    window,
		out:       make(contracts.ForecastSeries, 0, horizon),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Done reports whether horizon points have been produced
func (r *Rollout) Done() bool {
	return r.step >= r.horizon
}

// StepIndex returns how many points have been produced
func (r *Rollout) StepIndex() int {
	return r.step
}

// Window returns a copy of the current scaled input window
func (r *Rollout) Window() []float64 {
	cp := make([]float64, len(r.window))
	copy(cp, r.window)
	return cp
}

// Series returns the points produced so far
func (r *Rollout) Series() contracts.ForecastSeries {
	cp := make(contracts.ForecastSeries, len(r.out))
	copy(cp, r.out)
	return cp
}

// Step runs one regressor call and returns the points it produced
func (r *Rollout) Step() ([]contracts.ForecastPoint, error) {
	if r.Done() {
		return nil, nil
	}

	preds, err := r.regressor.Predict([][]float64{r.Window()})
	if err != nil {
		return nil, fmt.Errorf("rollout step %d: %w", r.step, err)
	}
	if len(preds) != 1 || len(preds[0]) == 0 {
		return nil, fmt.Errorf("rollout step %d: %w: regressor returned %d rows", r.step, contracts.ErrComputation, len(preds))
	}

	k := min(r.stride, len(preds[0]), r.horizon-r.step)
	scaled := preds[0][:k]

	// 전부 검증한 뒤에 상태 변경: 실패한 Step은 rollout을 건드리지 않음
	points := make([]contracts.ForecastPoint, 0, k)
	for j, v := range scaled {
		price := r.scaler.Inverse(v)
		if math.IsNaN(v) || math.IsInf(v, 0) || math.IsNaN(price) || math.IsInf(price, 0) {
			return nil, fmt.Errorf("rollout step %d: %w: non-finite prediction %v", r.step+j, contracts.ErrComputation, v)
		}
		// 달력 기준 +1일 (주말/휴일 미반영)
		date := r.lastDate.AddDate(0, 0, r.step+j+1)
		points = append(points, contracts.ForecastPoint{Date: date, Price: price})
	}
	r.step += len(points)
	r.out = append(r.out, points...)

	// slide: drop the oldest k values, append the k predictions
	w := len(r.window)
	next := append(r.Window(), scaled...)
	r.window = next[len(next)-w:]

	return points, nil
}

// Run steps until Done
func (r *Rollout) Run() (contracts.ForecastSeries, error) {
	for !r.Done() {
		if _, err := r.Step(); err != nil {
			return nil, err
		}
	}
	return r.Series(), nil
}

// Forecast produces exactly horizon points dated lastDate+1 … lastDate+horizon
func Forecast(reg Regressor, seed []float64, horizon int, lastDate time.Time, scaler Scaler, opts ...RolloutOption) (contracts.ForecastSeries, error) {
	r, err := NewRollout(reg, seed, horizon, lastDate, scaler, opts...)
	if err != nil {
		return nil, err
	}
	return r.Run()
}
