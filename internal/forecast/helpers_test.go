package forecast

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

var baseDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// linearSeries returns n daily closes 100, 101, ... starting at baseDate
func linearSeries(t *testing.T, n int) contracts.PriceSeries {
	t.Helper()
	points := make([]contracts.PricePoint, n)
	for i := range points {
		points[i] = contracts.PricePoint{Date: baseDate.AddDate(0, 0, i), Close: 100 + float64(i)}
	}
	series, err := contracts.NewPriceSeries("TEST", points)
	require.NoError(t, err)
	return series
}

// identityScaler leaves values untouched
var identityScaler = &MinMaxScaler{Min: 0, Range: 1}

// persistenceRegressor predicts the last window value for every horizon step
type persistenceRegressor struct {
	horizon int
	fitted  bool
	calls   int
}

func (r *persistenceRegressor) Fit(features, labels [][]float64) error {
	if len(features) != len(labels) {
		return errors.New("shape mismatch")
	}
	r.fitted = true
	return nil
}

func (r *persistenceRegressor) Predict(features [][]float64) ([][]float64, error) {
	r.calls++
	h := max(r.horizon, 1)
	out := make([][]float64, len(features))
	for i, f := range features {
		row := make([]float64, h)
		for k := range row {
			row[k] = f[len(f)-1]
		}
		out[i] = row
	}
	return out, nil
}

// stepRegressor predicts last + delta*(k+1) for output k
type stepRegressor struct {
	delta   float64
	outputs int
	calls   int
}

func (r *stepRegressor) Fit(_, _ [][]float64) error { return nil }

func (r *stepRegressor) Predict(features [][]float64) ([][]float64, error) {
	r.calls++
	out := make([][]float64, len(features))
	for i, f := range features {
		row := make([]float64, max(r.outputs, 1))
		for k := range row {
			row[k] = f[len(f)-1] + r.delta*float64(k+1)
		}
		out[i] = row
	}
	return out, nil
}

// constRegressor always predicts v
type constRegressor struct{ v float64 }

func (r constRegressor) Fit(_, _ [][]float64) error { return nil }

func (r constRegressor) Predict(features [][]float64) ([][]float64, error) {
	out := make([][]float64, len(features))
	for i := range out {
		out[i] = []float64{r.v}
	}
	return out, nil
}

// rowRegressor returns the same output row for every window
type rowRegressor struct{ row []float64 }

func (r rowRegressor) Fit(_, _ [][]float64) error { return nil }

func (r rowRegressor) Predict(features [][]float64) ([][]float64, error) {
	out := make([][]float64, len(features))
	for i := range out {
		out[i] = append([]float64(nil), r.row...)
	}
	return out, nil
}

// trackingRegressor is a persistence model that records losses
type trackingRegressor struct {
	persistenceRegressor
	valSamples int
}

func (r *trackingRegressor) TrackValidation(features, _ [][]float64) {
	r.valSamples = len(features)
}

func (r *trackingRegressor) Losses() (train, validation []float64) {
	return []float64{0.3, 0.2, 0.1}, []float64{0.35, 0.25, 0.2}
}

// failingRegressor fails to train
type failingRegressor struct{}

func (failingRegressor) Fit(_, _ [][]float64) error { return errors.New("diverged") }

func (failingRegressor) Predict(_ [][]float64) ([][]float64, error) {
	return nil, errors.New("not fitted")
}
