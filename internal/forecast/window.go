package forecast

import (
	"fmt"
	"time"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

// TrainRatio is the share of samples (oldest first) used for training
const TrainRatio = 0.8

// Sample is one sliding window of scaled closes and its label horizon
type Sample struct {
	Features  []float64   // windowSize scaled values, oldest first
	Labels    []float64   // 1 value (single-step) or forecastDays values (multi-step)
	Dates     []time.Time // label dates, len(Dates) == len(Labels)
	WindowEnd time.Time   // date of the last feature value
}

// Dataset is an ordered sequence of samples, oldest window first.
// Order is load-bearing: Split never shuffles.
type Dataset struct {
	Samples      []Sample
	WindowSize   int
	ForecastDays int
	MultiStep    bool
}

// Len returns the sample count
func (d Dataset) Len() int {
	return len(d.Samples)
}

// Features returns the samples × windowSize feature matrix
func (d Dataset) Features() [][]float64 {
	out := make([][]float64, len(d.Samples))
	for i, s := range d.Samples {
		out[i] = s.Features
	}
	return out
}

// Labels returns the samples × horizon label matrix
func (d Dataset) Labels() [][]float64 {
	out := make([][]float64, len(d.Samples))
	for i, s := range d.Samples {
		out[i] = s.Labels
	}
	return out
}

// LabelDates returns the first label date of every sample
func (d Dataset) LabelDates() []time.Time {
	out := make([]time.Time, len(d.Samples))
	for i, s := range d.Samples {
		out[i] = s.Dates[0]
	}
	return out
}

// Split cuts the dataset at floor(0.8 * count) preserving temporal order
func (d Dataset) Split() (train, test Dataset) {
	split := int(TrainRatio * float64(len(d.Samples)))
	train, test = d, d
	train.Samples = d.Samples[:split]
	test.Samples = d.Samples[split:]
	return train, test
}

// ToMultiStep builds the multi-step dataset: the label of sample j is the run of
// forecastDays consecutive single-step labels starting at j. Windows and label dates
// are truncated together, dropping forecastDays-1 samples from the tail.
func (d Dataset) ToMultiStep() (Dataset, error) {
	if d.MultiStep {
		return d, nil
	}

	f := d.ForecastDays
	n := len(d.Samples) - f + 1
	if n <= 0 {
		return Dataset{}, fmt.Errorf("multi-step labels: %w: %d samples cannot hold a %d-day label run",
			contracts.ErrInsufficientData, len(d.Samples), f)
	}

	samples := make([]Sample, n)
	for j := 0; j < n; j++ {
		labels := make([]float64, f)
		dates := make([]time.Time, f)
		for k := 0; k < f; k++ {
			labels[k] = d.Samples[j+k].Labels[0]
			dates[k] = d.Samples[j+k].Dates[0]
		}
		samples[j] = Sample{
			Features:  d.Samples[j].Features,
			Labels:    labels,
			Dates:     dates,
			WindowEnd: d.Samples[j].WindowEnd,
		}
	}

	return Dataset{
		Samples:      samples,
		WindowSize:   d.WindowSize,
		ForecastDays: f,
		MultiStep:    true,
	}, nil
}

// Prepared is the output of the windowing engine
type Prepared struct {
	Dataset   Dataset   // single-step samples
	Scaler    Scaler    // fitted on the whole series
	Seed      []float64 // last windowSize scaled closes, first rollout input
	LastDate  time.Time // last known trade date
	LastClose float64
}

// Prepare turns a closing-price series into single-step sliding-window samples.
//
// Sample i (i = windowSize … len-forecastDays-1) has features scaled[i-windowSize:i] and the
// label scaled[i+forecastDays-1] dated dates[i+forecastDays-1], giving
// len-windowSize-forecastDays samples. The last label lands on the second to last date.
func Prepare(series contracts.PriceSeries, forecastDays, windowSize int, kind ScalerKind) (*Prepared, error) {
	if forecastDays < 1 {
		return nil, fmt.Errorf("prepare: %w: forecast_days must be >= 1, got %d", contracts.ErrInvalidInput, forecastDays)
	}
	if windowSize < 1 {
		return nil, fmt.Errorf("prepare: %w: window size must be >= 1, got %d", contracts.ErrInvalidInput, windowSize)
	}

	n := series.Len()
	if n <= windowSize+forecastDays {
		return nil, fmt.Errorf("prepare %s: %w: %d points, need more than %d (window %d + horizon %d)",
			series.Symbol(), contracts.ErrInsufficientData, n, windowSize+forecastDays, windowSize, forecastDays)
	}

	closes := series.Closes()
	dates := series.Dates()

	scaler, err := FitScaler(kind, closes)
	if err != nil {
		return nil, fmt.Errorf("prepare %s: %w", series.Symbol(), err)
	}
	scaled := transformAll(scaler, closes)

	samples := make([]Sample, 0, n-windowSize-forecastDays)
	for i := windowSize; i < n-forecastDays; i++ {
		features := make([]float64, windowSize)
		copy(features, scaled[i-windowSize:i])
		target := i + forecastDays - 1

		samples = append(samples, Sample{
			Features:  features,
			Labels:    []float64{scaled[target]},
			Dates:     []time.Time{dates[target]},
			WindowEnd: dates[i-1],
		})
	}

	seed := make([]float64, windowSize)
	copy(seed, scaled[n-windowSize:])

	return &Prepared{
		Dataset: Dataset{
			Samples:      samples,
			WindowSize:   windowSize,
			ForecastDays: forecastDays,
		},
		Scaler:    scaler,
		Seed:      seed,
		LastDate:  dates[n-1],
		LastClose: closes[n-1],
	}, nil
}
