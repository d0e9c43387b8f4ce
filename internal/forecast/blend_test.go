package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

func forecastOf(prices ...float64) contracts.ForecastSeries {
	out := make(contracts.ForecastSeries, len(prices))
	for i, p := range prices {
		out[i] = contracts.ForecastPoint{Date: baseDate.AddDate(0, 0, i+1), Price: p}
	}
	return out
}

func TestBlend_EqualWeightsIsMean(t *testing.T) {
	a := forecastOf(100, 102, 104.5)
	b := forecastOf(110, 98, 105.5)

	got, err := Blend(a, b, 0.5, 0.5)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []float64{105, 100, 105}, got.Prices())
	assert.Equal(t, a.Dates(), got.Dates())
}

func TestBlend_IdentityWeights(t *testing.T) {
	a := forecastOf(101.234, 99.995, 150)
	b := forecastOf(1, 2, 3)

	got, err := Blend(a, b, 1, 0)
	require.NoError(t, err)

	for i := range a {
		assert.InDelta(t, a[i].Price, got[i].Price, 0.005)
	}
	assert.Equal(t, 101.23, got[0].Price)
}

func TestBlend_RoundsToCents(t *testing.T) {
	got, err := Blend(forecastOf(10.111), forecastOf(10.222), 0.3, 0.7)
	require.NoError(t, err)
	assert.Equal(t, 10.19, got[0].Price) // 3.0333 + 7.1554 = 10.1887
}

func TestBlend_Misaligned(t *testing.T) {
	t.Run("length", func(t *testing.T) {
		_, err := Blend(forecastOf(1, 2, 3), forecastOf(1, 2), 0.5, 0.5)
		assert.ErrorIs(t, err, contracts.ErrAlignment)
	})

	t.Run("dates", func(t *testing.T) {
		b := forecastOf(1, 2, 3)
		b[2].Date = b[2].Date.AddDate(0, 0, 1)
		_, err := Blend(forecastOf(1, 2, 3), b, 0.5, 0.5)
		assert.ErrorIs(t, err, contracts.ErrAlignment)
	})
}

func TestBlend_Empty(t *testing.T) {
	got, err := Blend(nil, contracts.ForecastSeries{}, 0.5, 0.5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBlender_Weights(t *testing.T) {
	assert.Equal(t, contracts.DefaultBlendWeights(), NewBlender(nil).Weights())

	bl := NewBlender(contracts.BlendWeights{contracts.ModelLSTM: 0.8, contracts.ModelXGBoost: 0.2})
	got, err := bl.BlendModels(contracts.ModelLSTM, forecastOf(100), contracts.ModelXGBoost, forecastOf(200))
	require.NoError(t, err)
	assert.Equal(t, 120.0, got[0].Price)
}
