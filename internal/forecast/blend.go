package forecast

import (
	"fmt"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

// Blend combines two aligned forecast series: price = wA*a + wB*b, rounded to 2 decimals.
// Weights are used as given.
func Blend(a, b contracts.ForecastSeries, weightA, weightB float64) (contracts.ForecastSeries, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("blend: %w: lengths %d and %d", contracts.ErrAlignment, len(a), len(b))
	}

	out := make(contracts.ForecastSeries, len(a))
	for i := range a {
		if !a[i].Date.Equal(b[i].Date) {
			return nil, fmt.Errorf("blend: %w: index %d dated %s and %s", contracts.ErrAlignment, i,
				a[i].Date.Format(contracts.DateLayout), b[i].Date.Format(contracts.DateLayout))
		}
		out[i] = contracts.ForecastPoint{
			Date:  a[i].Date,
			Price: contracts.Round2(weightA*a[i].Price + weightB*b[i].Price),
		}
	}
	return out, nil
}

// Blender applies per-model weights to two model forecasts
type Blender struct {
	weights contracts.BlendWeights
}

// NewBlender creates a blender; nil or empty weights mean equal weights
func NewBlender(weights contracts.BlendWeights) *Blender {
	if len(weights) == 0 {
		weights = contracts.DefaultBlendWeights()
	}
	return &Blender{weights: weights}
}

// Weights returns the configured weights
func (bl *Blender) Weights() contracts.BlendWeights {
	return bl.weights
}

// BlendModels blends forecasts of models idA and idB with their configured weights
func (bl *Blender) BlendModels(idA contracts.ModelID, a contracts.ForecastSeries, idB contracts.ModelID, b contracts.ForecastSeries) (contracts.ForecastSeries, error) {
	return Blend(a, b, bl.weights[idA], bl.weights[idB])
}
