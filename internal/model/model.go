// Package model contains the two regressors behind the forecast pipeline:
// a recurrent sequence network and a gradient-boosted tree ensemble.
package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/wonny/stockcast/backend/internal/contracts"
	"github.com/wonny/stockcast/backend/internal/forecast"
)

var (
	// ErrNotFitted is returned by Predict before a successful Fit
	ErrNotFitted = errors.New("model not fitted")

	// ErrShape is returned for feature/label matrices of the wrong size
	ErrShape = fmt.Errorf("%w: shape mismatch", contracts.ErrComputation)

	// ErrDiverged is returned when training produces a non-finite loss
	ErrDiverged = fmt.Errorf("%w: training diverged", contracts.ErrComputation)
)

// SequencePath wires the recurrent network as the multi-step model path
func SequencePath(cfg SequenceConfig) forecast.ModelPath {
	return forecast.ModelPath{
		ID:        contracts.ModelLSTM,
		MultiStep: true,
		New: func(windowSize, forecastDays int) forecast.Regressor {
			return NewSequence(windowSize, forecastDays, cfg)
		},
	}
}

// TreePath wires the boosted trees as the single-step model path
func TreePath(cfg TreeConfig) forecast.ModelPath {
	return forecast.ModelPath{
		ID: contracts.ModelXGBoost,
		New: func(windowSize, _ int) forecast.Regressor {
			return NewTree(windowSize, cfg)
		},
	}
}

// checkShape validates features (n × width) and labels (n × outputs)
func checkShape(features, labels [][]float64, width, outputs int) error {
	if len(features) == 0 {
		return fmt.Errorf("%w: no training samples", ErrShape)
	}
	if len(features) != len(labels) {
		return fmt.Errorf("%w: %d feature rows vs %d label rows", ErrShape, len(features), len(labels))
	}
	for i := range features {
		if len(features[i]) != width {
			return fmt.Errorf("%w: feature row %d has %d values, want %d", ErrShape, i, len(features[i]), width)
		}
		if len(labels[i]) != outputs {
			return fmt.Errorf("%w: label row %d has %d values, want %d", ErrShape, i, len(labels[i]), outputs)
		}
	}
	return nil
}

func checkRows(features [][]float64, width int) error {
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("%w: feature row %d has %d values, want %d", ErrShape, i, len(row), width)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
