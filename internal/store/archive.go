package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

// SeriesSource is the upstream the archive sits in front of (Yahoo chart client)
type SeriesSource interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) (contracts.PriceSeries, error)
}

// PriceSink receives every series fetched from upstream
type PriceSink interface {
	SavePrices(ctx context.Context, series contracts.PriceSeries) error
}

// ArchivingStore fetches from upstream and copies the result into the archive.
// 아카이브 실패는 예측 요청을 실패시키지 않음 (warn 로그만)
type ArchivingStore struct {
	upstream SeriesSource
	sink     PriceSink
	log      zerolog.Logger
}

// NewArchivingStore wraps upstream with a write-through archive
func NewArchivingStore(upstream SeriesSource, sink PriceSink, log zerolog.Logger) *ArchivingStore {
	return &ArchivingStore{upstream: upstream, sink: sink, log: log}
}

// Fetch implements forecast.SeriesStore
func (a *ArchivingStore) Fetch(ctx context.Context, symbol string, start, end time.Time) (contracts.PriceSeries, error) {
	series, err := a.upstream.Fetch(ctx, symbol, start, end)
	if err != nil {
		return series, err
	}

	if err := a.sink.SavePrices(ctx, series); err != nil {
		a.log.Warn().Err(err).
			Str("symbol", symbol).
			Int("points", series.Len()).
			Msg("price archive failed")
	}

	return series, nil
}
