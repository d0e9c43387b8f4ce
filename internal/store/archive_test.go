package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

type fakeSource struct {
	series contracts.PriceSeries
	err    error
	calls  int
}

func (f *fakeSource) Fetch(ctx context.Context, symbol string, start, end time.Time) (contracts.PriceSeries, error) {
	f.calls++
	return f.series, f.err
}

type fakeSink struct {
	saved []contracts.PriceSeries
	err   error
}

func (f *fakeSink) SavePrices(ctx context.Context, series contracts.PriceSeries) error {
	f.saved = append(f.saved, series)
	return f.err
}

func sampleSeries(t *testing.T) contracts.PriceSeries {
	t.Helper()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series, err := contracts.NewPriceSeries("AAPL", []contracts.PricePoint{
		{Date: base, Close: 180.5},
		{Date: base.AddDate(0, 0, 1), Close: 181.25},
		{Date: base.AddDate(0, 0, 4), Close: 179.75},
	})
	require.NoError(t, err)
	return series
}

func TestArchivingStore_WritesThrough(t *testing.T) {
	src := &fakeSource{series: sampleSeries(t)}
	sink := &fakeSink{}
	store := NewArchivingStore(src, sink, zerolog.Nop())

	got, err := store.Fetch(context.Background(), "AAPL", time.Time{}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 3, got.Len())
	require.Len(t, sink.saved, 1)
	assert.Equal(t, got.Closes(), sink.saved[0].Closes())
}

func TestArchivingStore_SinkFailureIgnored(t *testing.T) {
	src := &fakeSource{series: sampleSeries(t)}
	sink := &fakeSink{err: errors.New("connection refused")}
	store := NewArchivingStore(src, sink, zerolog.Nop())

	got, err := store.Fetch(context.Background(), "AAPL", time.Time{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, got.Len())
}

func TestArchivingStore_UpstreamError(t *testing.T) {
	src := &fakeSource{err: contracts.ErrNotFound}
	sink := &fakeSink{}
	store := NewArchivingStore(src, sink, zerolog.Nop())

	_, err := store.Fetch(context.Background(), "NOPE", time.Time{}, time.Now())
	assert.ErrorIs(t, err, contracts.ErrNotFound)
	assert.Empty(t, sink.saved, "nothing archived on upstream failure")
}
