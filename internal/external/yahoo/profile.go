package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

// FetchProfile assembles a stock profile from the chart meta (name, exchange,
// 52-week range) and the quote/profile pages (market cap, P/E, sector, industry,
// description). Page scraping is best effort; missing fields become "N/A".
func (c *Client) FetchProfile(ctx context.Context, symbol string) (*contracts.StockProfile, error) {
	params := url.Values{}
	params.Set("range", "1d")
	params.Set("interval", "1d")

	result, err := c.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	profile := profileFromMeta(symbol, result.Meta)

	if html, err := c.fetchPage(ctx, symbol, ""); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("quote page unavailable")
	} else {
		parseQuotePage(html, profile)
	}

	if html, err := c.fetchPage(ctx, symbol, "profile"); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("profile page unavailable")
	} else {
		parseProfilePage(html, profile)
	}

	profile.FillDefaults()
	return profile, nil
}

func (c *Client) fetchPage(ctx context.Context, symbol, section string) (string, error) {
	fullURL := fmt.Sprintf("%s/%s/", c.quoteURL, url.PathEscape(symbol))
	if section != "" {
		fullURL += section + "/"
	}

	body, err := c.httpClient.GetBody(ctx, fullURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func profileFromMeta(symbol string, meta chartMeta) *contracts.StockProfile {
	p := &contracts.StockProfile{Symbol: symbol}

	p.Name = firstNonEmpty(meta.LongName, meta.ShortName)
	p.Exchange = firstNonEmpty(meta.FullExchangeName, meta.ExchangeName)
	if meta.FiftyTwoWeekHigh != nil {
		p.FiftyTwoWeekHigh = formatPrice(*meta.FiftyTwoWeekHigh)
	}
	if meta.FiftyTwoWeekLow != nil {
		p.FiftyTwoWeekLow = formatPrice(*meta.FiftyTwoWeekLow)
	}
	return p
}

// parseQuotePage reads <fin-streamer data-field="..."> values from the quote page
func parseQuotePage(html string, p *contracts.StockProfile) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	field := func(name string) string {
		sel := doc.Find(fmt.Sprintf(`fin-streamer[data-field="%s"]`, name)).First()
		if v := strings.TrimSpace(sel.Text()); v != "" && v != "--" {
			return v
		}
		return ""
	}

	if v := field("marketCap"); v != "" {
		p.MarketCap = v
	}
	if v := field("trailingPE"); v != "" {
		p.PERatio = v
	}
	if p.FiftyTwoWeekHigh == "" || p.FiftyTwoWeekLow == "" {
		// "164.08 - 199.62"
		if lo, hi, ok := strings.Cut(field("fiftyTwoWeekRange"), " - "); ok {
			p.FiftyTwoWeekLow = firstNonEmpty(p.FiftyTwoWeekLow, strings.TrimSpace(lo))
			p.FiftyTwoWeekHigh = firstNonEmpty(p.FiftyTwoWeekHigh, strings.TrimSpace(hi))
		}
	}
}

// parseProfilePage reads sector/industry (<dt>/<dd> pairs) and the description
func parseProfilePage(html string, p *contracts.StockProfile) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	doc.Find("dl dt").Each(func(_ int, dt *goquery.Selection) {
		label := strings.TrimSuffix(strings.TrimSpace(dt.Text()), ":")
		value := strings.TrimSpace(dt.NextFiltered("dd").Text())
		if value == "" {
			return
		}
		switch strings.ToLower(label) {
		case "sector":
			p.Sector = value
		case "industry":
			p.Industry = value
		}
	})

	about := strings.TrimSpace(doc.Find(`section[data-testid="description"] p`).First().Text())
	if about != "" {
		p.About = about
	}
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(contracts.Round2(v), 'f', 2, 64)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
