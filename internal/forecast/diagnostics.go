package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

// Evaluation holds held-out test split diagnostics in price units.
// Multi-step models are scored on their first output step.
type Evaluation struct {
	Model     contracts.ModelID
	Dates     []time.Time
	Actual    []float64
	Predicted []float64
	Residuals []float64 // actual - predicted
	MAE       float64
	Accuracy  float64 // 1 - MAE/max(actual), informal ratio kept for compatibility
}

// Metrics converts the evaluation to the response shape
func (e *Evaluation) Metrics() *contracts.ModelMetrics {
	return &contracts.ModelMetrics{
		MAE:         contracts.Round2(e.MAE),
		Accuracy:    math.Round(e.Accuracy*10000) / 10000,
		TestSamples: len(e.Actual),
	}
}

// Evaluate scores a trained regressor on the test split
func Evaluate(model contracts.ModelID, reg Regressor, test Dataset, scaler Scaler) (*Evaluation, error) {
	if test.Len() == 0 {
		return nil, fmt.Errorf("evaluate %s: %w: empty test split", model, contracts.ErrInsufficientData)
	}

	preds, err := reg.Predict(test.Features())
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", model, err)
	}
	if len(preds) != test.Len() {
		return nil, fmt.Errorf("evaluate %s: %w: %d predictions for %d samples",
			model, contracts.ErrComputation, len(preds), test.Len())
	}

	actualScaled := make([]float64, test.Len())
	predScaled := make([]float64, test.Len())
	for i, s := range test.Samples {
		if len(preds[i]) == 0 {
			return nil, fmt.Errorf("evaluate %s: %w: empty prediction row %d", model, contracts.ErrComputation, i)
		}
		actualScaled[i] = s.Labels[0]
		predScaled[i] = preds[i][0]
	}

	actual := inverseAll(scaler, actualScaled)
	predicted := inverseAll(scaler, predScaled)
	residuals := Residuals(actual, predicted)

	mae, err := MeanAbsoluteError(actual, predicted)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", model, err)
	}
	accuracy, err := AccuracyRatio(mae, actual)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", model, err)
	}

	return &Evaluation{
		Model:     model,
		Dates:     test.LabelDates(),
		Actual:    actual,
		Predicted: predicted,
		Residuals: residuals,
		MAE:       mae,
		Accuracy:  accuracy,
	}, nil
}

// MeanAbsoluteError returns mean(|actual - predicted|)
func MeanAbsoluteError(actual, predicted []float64) (float64, error) {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return 0, fmt.Errorf("mae: %w: %d actual vs %d predicted", contracts.ErrComputation, len(actual), len(predicted))
	}
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	mae := sum / float64(len(actual))
	if math.IsNaN(mae) || math.IsInf(mae, 0) {
		return 0, fmt.Errorf("mae: %w: non-finite result", contracts.ErrComputation)
	}
	return mae, nil
}

// AccuracyRatio returns 1 - mae/max(actual). Not bounded and not a standard score.
func AccuracyRatio(mae float64, actual []float64) (float64, error) {
	if len(actual) == 0 {
		return 0, fmt.Errorf("accuracy: %w: no actual values", contracts.ErrComputation)
	}
	peak := actual[0]
	for _, v := range actual[1:] {
		peak = math.Max(peak, v)
	}
	if peak == 0 {
		return 0, fmt.Errorf("accuracy: %w: max(actual) is zero", contracts.ErrComputation)
	}
	return 1 - mae/peak, nil
}

// Residuals returns actual - predicted element-wise
func Residuals(actual, predicted []float64) []float64 {
	out := make([]float64, len(actual))
	for i := range actual {
		out[i] = actual[i] - predicted[i]
	}
	return out
}

// LossHistory is the per-epoch training curve of an iterative regressor
type LossHistory struct {
	Train      []float64
	Validation []float64
}

// OutputHandle namespaces the chart artifacts of one request.
// The caller assigns RunID; renderers must not write outside it.
type OutputHandle struct {
	RunID string
}

// ChartSet is everything the charting collaborator needs for one model section
type ChartSet struct {
	Model      contracts.ModelID
	Evaluation *Evaluation // nil for the hybrid section
	Forecast   contracts.ForecastSeries
	Losses     *LossHistory
}

// Charter renders a ChartSet and returns graph key → artifact name
type Charter interface {
	Render(ctx context.Context, handle OutputHandle, set ChartSet) (map[string]string, error)
}

// Reporter dispatches diagnostics to the charting collaborator
type Reporter struct {
	charter Charter
	log     zerolog.Logger
}

// NewReporter creates a reporter; a nil charter disables rendering.
// log는 호출자가 component 태그를 붙여서 넘김
func NewReporter(charter Charter, log zerolog.Logger) *Reporter {
	return &Reporter{
		charter: charter,
		log:     log,
	}
}

// Report renders one chart set and returns the graph names for the response
func (r *Reporter) Report(ctx context.Context, handle OutputHandle, set ChartSet) (map[string]string, error) {
	if r == nil {
		return map[string]string{}, nil
	}
	if r.charter == nil {
		r.log.Debug().
			Str("run_id", handle.RunID).
			Str("model", string(set.Model)).
			Msg("chart rendering disabled")
		return map[string]string{}, nil
	}

	// 성공 로그는 Charter 쪽에서 남김
	graphs, err := r.charter.Render(ctx, handle, set)
	if err != nil {
		return nil, fmt.Errorf("render %s charts: %w", set.Model, err)
	}
	return graphs, nil
}
