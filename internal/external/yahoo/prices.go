package yahoo

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

// Fetch returns the daily closing series for symbol in [start, end].
// ⭐ SSOT: 학습용 가격 데이터는 이 함수에서만 조회
func (c *Client) Fetch(ctx context.Context, symbol string, start, end time.Time) (contracts.PriceSeries, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	params.Set("period2", strconv.FormatInt(end.Unix(), 10))
	params.Set("interval", "1d")
	params.Set("events", "history")
	params.Set("includePrePost", "false")

	result, err := c.fetchChart(ctx, symbol, params)
	if err != nil {
		return contracts.PriceSeries{}, err
	}

	series, err := seriesFromChart(symbol, result)
	if err != nil {
		return contracts.PriceSeries{}, err
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  series.Len(),
		"start":  start.Format(contracts.DateLayout),
		"end":    end.Format(contracts.DateLayout),
	}).Debug("Fetched prices")
	return series, nil
}

// seriesFromChart converts timestamps/closes into a date-ordered series.
// Null closes are skipped; a second bar on the same exchange date replaces the first.
func seriesFromChart(symbol string, r *chartResult) (contracts.PriceSeries, error) {
	if len(r.Indicators.Quote) == 0 {
		return contracts.PriceSeries{}, fmt.Errorf("chart %s: %w: no quote indicator", symbol, contracts.ErrNotFound)
	}
	closes := r.Indicators.Quote[0].Close

	points := make([]contracts.PricePoint, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		v := *closes[i]
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			continue
		}

		date := tradeDate(ts, r.Meta.GMTOffset)
		if n := len(points); n > 0 {
			if date.Equal(points[n-1].Date) {
				points[n-1].Close = v
				continue
			}
			if date.Before(points[n-1].Date) {
				return contracts.PriceSeries{}, fmt.Errorf("chart %s: timestamps out of order at index %d", symbol, i)
			}
		}
		points = append(points, contracts.PricePoint{Date: date, Close: v})
	}

	if len(points) == 0 {
		return contracts.PriceSeries{}, fmt.Errorf("chart %s: %w: no closing prices in range", symbol, contracts.ErrNotFound)
	}
	return contracts.NewPriceSeries(symbol, points)
}

// tradeDate maps a bar timestamp to its exchange-local calendar date (UTC midnight)
func tradeDate(ts, gmtOffset int64) time.Time {
	local := time.Unix(ts+gmtOffset, 0).UTC()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
