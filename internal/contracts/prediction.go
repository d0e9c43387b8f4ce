package contracts

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ModelID identifies a forecast source
type ModelID string

const (
	ModelLSTM    ModelID = "lstm"
	ModelXGBoost ModelID = "xgboost"
	ModelHybrid  ModelID = "hybrid"
)

// DateLayout is the wire format for forecast dates
const DateLayout = "2006-01-02"

// ForecastPoint is a forecast price in original (unscaled) units
type ForecastPoint struct {
	Date  time.Time
	Price float64
}

type forecastPointJSON struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// MarshalJSON renders {"date": "YYYY-MM-DD", "value": 123.45}
func (p ForecastPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(forecastPointJSON{
		Date:  p.Date.Format(DateLayout),
		Value: Round2(p.Price),
	})
}

// UnmarshalJSON parses the wire format back (history endpoint, CLI)
func (p *ForecastPoint) UnmarshalJSON(data []byte) error {
	var raw forecastPointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		return fmt.Errorf("forecast point date: %w", err)
	}
	p.Date = date
	p.Price = raw.Value
	return nil
}

// ForecastSeries is ordered by date, one point per calendar day
type ForecastSeries []ForecastPoint

// Prices returns the price column
func (s ForecastSeries) Prices() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Price
	}
	return out
}

// Dates returns the date column
func (s ForecastSeries) Dates() []time.Time {
	out := make([]time.Time, len(s))
	for i, p := range s {
		out[i] = p.Date
	}
	return out
}

// BlendWeights maps a model to its weight in the hybrid forecast.
// Weights are expected to sum to 1; they are not renormalized.
type BlendWeights map[ModelID]float64

// DefaultBlendWeights returns equal weights for the two model paths
func DefaultBlendWeights() BlendWeights {
	return BlendWeights{ModelLSTM: 0.5, ModelXGBoost: 0.5}
}

// ModelMetrics are held-out test split diagnostics (price units)
type ModelMetrics struct {
	MAE         float64 `json:"mae"`
	Accuracy    float64 `json:"accuracy"` // 1 - MAE/max(actual)
	TestSamples int     `json:"test_samples"`
}

// ModelResult is one section of the /predict response
type ModelResult struct {
	Forecast ForecastSeries    `json:"forecast"`
	Graphs   map[string]string `json:"graphs"`
	Metrics  *ModelMetrics     `json:"metrics,omitempty"`
}

// PredictionResult is the /predict response body
type PredictionResult struct {
	RunID        string      `json:"run_id"`
	Symbol       string      `json:"symbol"`
	CurrentPrice float64     `json:"current_price"`
	ForecastDays int         `json:"forecast_days"`
	LSTM         ModelResult `json:"lstm"`
	XGBoost      ModelResult `json:"xgboost"`
	Hybrid       ModelResult `json:"hybrid"`
	GeneratedAt  time.Time   `json:"generated_at"`
}

// ForecastRun is a stored prediction (history endpoint)
type ForecastRun struct {
	RunID        string                     `json:"run_id"`
	Symbol       string                     `json:"symbol"`
	ForecastDays int                        `json:"forecast_days"`
	CurrentPrice float64                    `json:"current_price"`
	Forecasts    map[ModelID]ForecastSeries `json:"forecasts"`
	Metrics      map[ModelID]ModelMetrics   `json:"metrics"`
	CreatedAt    time.Time                  `json:"created_at"`
}

// Round2 rounds to 2 decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
