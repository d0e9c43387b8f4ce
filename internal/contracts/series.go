package contracts

import (
	"fmt"
	"time"
)

// PricePoint is one daily close
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is an immutable, strictly date-ordered closing price series
// ⭐ SSOT: 학습/예측 입력 데이터는 이 타입으로만 전달
type PriceSeries struct {
	symbol string
	points []PricePoint
}

// NewPriceSeries validates ordering and copies points so the series cannot be mutated by the caller
func NewPriceSeries(symbol string, points []PricePoint) (PriceSeries, error) {
	for i := 1; i < len(points); i++ {
		if !points[i].Date.After(points[i-1].Date) {
			return PriceSeries{}, fmt.Errorf("series %s: date %s not after %s at index %d",
				symbol, points[i].Date.Format("2006-01-02"), points[i-1].Date.Format("2006-01-02"), i)
		}
	}

	cp := make([]PricePoint, len(points))
	copy(cp, points)
	return PriceSeries{symbol: symbol, points: cp}, nil
}

// Symbol returns the ticker the series belongs to
func (s PriceSeries) Symbol() string {
	return s.symbol
}

// Len returns the number of points
func (s PriceSeries) Len() int {
	return len(s.points)
}

// At returns the point at index i
func (s PriceSeries) At(i int) PricePoint {
	return s.points[i]
}

// Closes returns a copy of the closing prices
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Close
	}
	return out
}

// Dates returns a copy of the trade dates
func (s PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.points))
	for i, p := range s.points {
		out[i] = p.Date
	}
	return out
}

// Points returns a copy of the points
func (s PriceSeries) Points() []PricePoint {
	out := make([]PricePoint, len(s.points))
	copy(out, s.points)
	return out
}

// Last returns the most recent point; ok is false for an empty series
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.points) == 0 {
		return PricePoint{}, false
	}
	return s.points[len(s.points)-1], true
}
