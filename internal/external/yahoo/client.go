package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/wonny/stockcast/backend/internal/contracts"
	"github.com/wonny/stockcast/backend/pkg/config"
	"github.com/wonny/stockcast/backend/pkg/httputil"
	"github.com/wonny/stockcast/backend/pkg/logger"
)

// Client handles communication with Yahoo Finance
// ⭐ SSOT: Yahoo Finance 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	chartURL   string
	quoteURL   string
}

// NewClient creates a new Yahoo Finance client
func NewClient(httpClient *httputil.Client, log *logger.Logger, cfg config.YahooConfig) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		chartURL:   strings.TrimRight(cfg.ChartURL, "/"),
		quoteURL:   strings.TrimRight(cfg.QuoteURL, "/"),
	}
}

// chartResponse is the v8 chart API envelope
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartMeta struct {
	Symbol             string   `json:"symbol"`
	Currency           string   `json:"currency"`
	ExchangeName       string   `json:"exchangeName"`
	FullExchangeName   string   `json:"fullExchangeName"`
	LongName           string   `json:"longName"`
	ShortName          string   `json:"shortName"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	FiftyTwoWeekHigh   *float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow    *float64 `json:"fiftyTwoWeekLow"`
	GMTOffset          int64    `json:"gmtoffset"`
	Timezone           string   `json:"exchangeTimezoneName"`
}

// fetchChart calls the chart API for one symbol
func (c *Client) fetchChart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	fullURL := fmt.Sprintf("%s/%s?%s", c.chartURL, url.PathEscape(symbol), params.Encode())

	body, err := c.httpClient.GetBody(ctx, fullURL)
	if err != nil {
		// 404 본문에도 chart.error가 담겨 옴
		var se *httputil.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("chart %s: %w", symbol, contracts.ErrNotFound)
		}
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}

	return parseChart(symbol, body)
}

// parseChart decodes a chart API body
func parseChart(symbol string, body []byte) (*chartResult, error) {
	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("chart %s: decode: %w", symbol, err)
	}

	if e := resp.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, fmt.Errorf("chart %s: %w: %s", symbol, contracts.ErrNotFound, e.Description)
		}
		return nil, fmt.Errorf("chart %s: upstream error %s: %s", symbol, e.Code, e.Description)
	}

	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart %s: %w", symbol, contracts.ErrNotFound)
	}
	return &resp.Chart.Result[0], nil
}
