package forecast

import "github.com/wonny/stockcast/backend/internal/contracts"

// Regressor is a trainable predictor over sliding windows.
// features: samples × windowSize, labels/predictions: samples × horizon.
type Regressor interface {
	Fit(features, labels [][]float64) error
	Predict(features [][]float64) ([][]float64, error)
}

// LossTracker is implemented by regressors that train iteratively and record
// training and held-out loss per epoch (or boosting round).
type LossTracker interface {
	TrackValidation(features, labels [][]float64)
	Losses() (train, validation []float64)
}

// ModelPath describes how one model is built and fed
type ModelPath struct {
	ID contracts.ModelID

	// MultiStep trains on the multi-step (horizon-wide) labels
	MultiStep bool

	// New builds a fresh, untrained regressor for one request
	New func(windowSize, forecastDays int) Regressor
}
