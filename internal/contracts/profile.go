package contracts

// Unavailable marks a profile field the upstream source did not provide
const Unavailable = "N/A"

// StockProfile is the /stock-info response body
type StockProfile struct {
	Symbol           string `json:"symbol"`
	Name             string `json:"name"`
	Exchange         string `json:"exchange"`
	Sector           string `json:"sector"`
	Industry         string `json:"industry"`
	MarketCap        string `json:"marketCap"`
	About            string `json:"about"`
	PERatio          string `json:"peRatio"`
	FiftyTwoWeekHigh string `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow  string `json:"fiftyTwoWeekLow"`
}

// FillDefaults replaces empty fields with Unavailable
func (p *StockProfile) FillDefaults() {
	for _, f := range []*string{
		&p.Name, &p.Exchange, &p.Sector, &p.Industry, &p.MarketCap,
		&p.About, &p.PERatio, &p.FiftyTwoWeekHigh, &p.FiftyTwoWeekLow,
	} {
		if *f == "" {
			*f = Unavailable
		}
	}
}
