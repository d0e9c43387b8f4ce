package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockcast/backend/internal/contracts"
	"github.com/wonny/stockcast/backend/pkg/config"
	"github.com/wonny/stockcast/backend/pkg/httputil"
	"github.com/wonny/stockcast/backend/pkg/logger"
	"github.com/wonny/stockcast/backend/pkg/redis"
)

// 2024-01-02 ~ 2024-01-05 14:30 UTC (09:30 New York), gmtoffset -18000
const chartFixture = `{"chart":{"result":[{
  "meta":{"symbol":"AAPL","currency":"USD","exchangeName":"NMS","fullExchangeName":"NasdaqGS",
          "longName":"Apple Inc.","shortName":"Apple","regularMarketPrice":181.18,
          "fiftyTwoWeekHigh":199.62,"fiftyTwoWeekLow":164.08,"gmtoffset":-18000,
          "exchangeTimezoneName":"America/New_York"},
  "timestamp":[1704205800,1704292200,1704378600,1704465000],
  "indicators":{"quote":[{"close":[185.64,184.25,null,181.18]}]}
}],"error":null}}`

const notFoundFixture = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

const quoteFixture = `<html><body>
<fin-streamer data-field="regularMarketPrice">181.18</fin-streamer>
<fin-streamer data-field="marketCap">2.81T</fin-streamer>
<fin-streamer data-field="trailingPE">29.51</fin-streamer>
<fin-streamer data-field="fiftyTwoWeekRange">164.08 - 199.62</fin-streamer>
</body></html>`

const profileFixture = `<html><body>
<div class="company-stats"><dl>
  <dt>Sector:</dt><dd><a href="/sectors/technology">Technology</a></dd>
  <dt>Industry:</dt><dd><a href="/industries/consumer-electronics">Consumer Electronics</a></dd>
  <dt>Full Time Employees:</dt><dd>161,000</dd>
</dl></div>
<section data-testid="description"><h3>Description</h3>
<p>Apple Inc. designs, manufactures, and markets smartphones.</p></section>
</body></html>`

type upstream struct {
	chart, quote, profile string
	chartStatus           int
	quoteStatus           int
	requests              []string
}

func (u *upstream) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.requests = append(u.requests, r.URL.Path+"?"+r.URL.RawQuery)
		switch {
		case strings.HasPrefix(r.URL.Path, "/chart/"):
			if u.chartStatus != 0 {
				w.WriteHeader(u.chartStatus)
			}
			fmt.Fprint(w, u.chart)
		case strings.HasSuffix(r.URL.Path, "/profile/"):
			fmt.Fprint(w, u.profile)
		case strings.HasPrefix(r.URL.Path, "/quote/"):
			if u.quoteStatus != 0 {
				w.WriteHeader(u.quoteStatus)
			}
			fmt.Fprint(w, u.quote)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	cfg := config.YahooConfig{
		ChartURL: srv.URL + "/chart",
		QuoteURL: srv.URL + "/quote",
	}
	return NewClient(httputil.New(logger.Nop()), logger.Nop(), cfg)
}

func TestFetch(t *testing.T) {
	u := &upstream{chart: chartFixture}
	c := newTestClient(u.server(t))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	series, err := c.Fetch(context.Background(), "AAPL", start, end)
	require.NoError(t, err)

	// null close skipped
	require.Equal(t, 3, series.Len())
	assert.Equal(t, []float64{185.64, 184.25, 181.18}, series.Closes())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), series.At(0).Date)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), series.At(2).Date)
	assert.Equal(t, "AAPL", series.Symbol())

	require.Len(t, u.requests, 1)
	assert.Contains(t, u.requests[0], "/chart/AAPL?")
	assert.Contains(t, u.requests[0], fmt.Sprintf("period1=%d", start.Unix()))
	assert.Contains(t, u.requests[0], "interval=1d")
}

func TestFetch_NotFound(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"error envelope", notFoundFixture, http.StatusOK},
		{"http 404", notFoundFixture, http.StatusNotFound},
		{"empty result", `{"chart":{"result":[],"error":null}}`, http.StatusOK},
		{"all nulls", `{"chart":{"result":[{"meta":{},"timestamp":[1704205800],"indicators":{"quote":[{"close":[null]}]}}]}}`, http.StatusOK},
		{"no quote", `{"chart":{"result":[{"meta":{},"timestamp":[1704205800],"indicators":{"quote":[]}}]}}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &upstream{chart: tt.body, chartStatus: tt.status}
			c := newTestClient(u.server(t))

			_, err := c.Fetch(context.Background(), "ZZZZ", time.Now().AddDate(0, 0, -7), time.Now())
			assert.ErrorIs(t, err, contracts.ErrNotFound)
		})
	}
}

func TestFetch_UpstreamFailure(t *testing.T) {
	u := &upstream{chart: "oops", chartStatus: http.StatusBadGateway}
	c := newTestClient(u.server(t))

	_, err := c.Fetch(context.Background(), "AAPL", time.Now().AddDate(0, 0, -7), time.Now())
	require.Error(t, err)
	assert.NotErrorIs(t, err, contracts.ErrNotFound)
	assert.Equal(t, http.StatusInternalServerError, contracts.StatusCode(err))
	// 파이프라인은 재시도하지 않음
	assert.Len(t, u.requests, 1)
}

func TestSeriesFromChart_SameDayReplaces(t *testing.T) {
	one, two := 100.0, 101.5
	r := &chartResult{Timestamp: []int64{1704205800, 1704220000}}
	r.Indicators.Quote = append(r.Indicators.Quote, struct {
		Close []*float64 `json:"close"`
	}{Close: []*float64{&one, &two}})

	series, err := seriesFromChart("X", r)
	require.NoError(t, err)
	require.Equal(t, 1, series.Len())
	assert.Equal(t, 101.5, series.At(0).Close)
}

func TestTradeDate(t *testing.T) {
	// 2024-01-02 00:30 UTC = 2024-01-01 19:30 New York
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), tradeDate(1704155400, -18000))
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), tradeDate(1704155400, 0))
}

func TestFetchProfile(t *testing.T) {
	u := &upstream{chart: chartFixture, quote: quoteFixture, profile: profileFixture}
	c := newTestClient(u.server(t))

	p, err := c.FetchProfile(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", p.Symbol)
	assert.Equal(t, "Apple Inc.", p.Name)
	assert.Equal(t, "NasdaqGS", p.Exchange)
	assert.Equal(t, "Technology", p.Sector)
	assert.Equal(t, "Consumer Electronics", p.Industry)
	assert.Equal(t, "2.81T", p.MarketCap)
	assert.Equal(t, "29.51", p.PERatio)
	assert.Equal(t, "199.62", p.FiftyTwoWeekHigh)
	assert.Equal(t, "164.08", p.FiftyTwoWeekLow)
	assert.Equal(t, "Apple Inc. designs, manufactures, and markets smartphones.", p.About)
}

func TestFetchProfile_PagesUnavailable(t *testing.T) {
	u := &upstream{chart: chartFixture, quoteStatus: http.StatusTooManyRequests}
	c := newTestClient(u.server(t))

	p, err := c.FetchProfile(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "Apple Inc.", p.Name)
	assert.Equal(t, contracts.Unavailable, p.MarketCap)
	assert.Equal(t, contracts.Unavailable, p.PERatio)
	assert.Equal(t, contracts.Unavailable, p.Sector)
	assert.Equal(t, contracts.Unavailable, p.About)
}

func TestFetchProfile_UnknownSymbol(t *testing.T) {
	u := &upstream{chart: notFoundFixture, chartStatus: http.StatusNotFound}
	c := newTestClient(u.server(t))

	_, err := c.FetchProfile(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestParseQuotePage_RangeFallback(t *testing.T) {
	p := &contracts.StockProfile{}
	parseQuotePage(quoteFixture, p)

	assert.Equal(t, "164.08", p.FiftyTwoWeekLow)
	assert.Equal(t, "199.62", p.FiftyTwoWeekHigh)
}

type countingFetcher struct{ calls int }

func (f *countingFetcher) FetchProfile(_ context.Context, symbol string) (*contracts.StockProfile, error) {
	f.calls++
	return &contracts.StockProfile{Symbol: symbol, Name: "Test Corp"}, nil
}

func TestCachedProfiles_Disabled(t *testing.T) {
	rc, err := redis.New(&config.Config{})
	require.NoError(t, err)

	fetcher := &countingFetcher{}
	cached := NewCachedProfiles(fetcher, redis.NewCache(rc, "test"), 0)

	p, err := cached.FetchProfile(context.Background(), "msft")
	require.NoError(t, err)
	assert.Equal(t, "MSFT", p.Symbol)
	assert.Equal(t, "Test Corp", p.Name)

	_, err = cached.FetchProfile(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)

	// Redis 비활성: 무효화는 no-op
	assert.NoError(t, cached.Invalidate(context.Background(), "MSFT"))
}
