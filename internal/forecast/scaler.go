package forecast

import (
	"fmt"
	"math"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

// ScalerKind selects the normalization fitted on a price series
type ScalerKind string

const (
	ScalerMinMax   ScalerKind = "minmax"
	ScalerStandard ScalerKind = "standard"
)

// Scaler is a fitted invertible transform.
// Inverse(Transform(x)) == x within float tolerance; values outside the fit range extrapolate.
type Scaler interface {
	Transform(x float64) float64
	Inverse(x float64) float64
	Kind() ScalerKind
}

// FitScaler fits a scaler of the given kind on values
func FitScaler(kind ScalerKind, values []float64) (Scaler, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("fit scaler: %w: empty series", contracts.ErrInsufficientData)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("fit scaler: %w: non-finite value at index %d", contracts.ErrComputation, i)
		}
	}

	switch kind {
	case ScalerMinMax, "":
		return fitMinMax(values), nil
	case ScalerStandard:
		return fitStandard(values), nil
	default:
		return nil, fmt.Errorf("fit scaler: %w: unknown scaler %q", contracts.ErrInvalidInput, kind)
	}
}

// MinMaxScaler maps [Min, Max] onto [0, 1]
type MinMaxScaler struct {
	Min   float64
	Range float64
}

func fitMinMax(values []float64) *MinMaxScaler {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		// 상수 시계열: 0으로 나누기 방지
		rng = 1
	}
	return &MinMaxScaler{Min: lo, Range: rng}
}

func (s *MinMaxScaler) Transform(x float64) float64 { return (x - s.Min) / s.Range }
func (s *MinMaxScaler) Inverse(x float64) float64   { return x*s.Range + s.Min }
func (s *MinMaxScaler) Kind() ScalerKind            { return ScalerMinMax }

// StandardScaler maps values to z-scores (population standard deviation)
type StandardScaler struct {
	Mean float64
	Std  float64
}

func fitStandard(values []float64) *StandardScaler {
	n := float64(len(values))
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	std := math.Sqrt(sq / n)
	if std == 0 {
		std = 1
	}
	return &StandardScaler{Mean: mean, Std: std}
}

func (s *StandardScaler) Transform(x float64) float64 { return (x - s.Mean) / s.Std }
func (s *StandardScaler) Inverse(x float64) float64   { return x*s.Std + s.Mean }
func (s *StandardScaler) Kind() ScalerKind            { return ScalerStandard }

// transformAll applies s.Transform element-wise
func transformAll(s Scaler, values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.Transform(v)
	}
	return out
}

// inverseAll applies s.Inverse element-wise
func inverseAll(s Scaler, values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.Inverse(v)
	}
	return out
}
