package marketdata

import "time"

// PriceBar is one ordered price bar for a ticker. Close is the only field the
// ledger consumes; the rest is forwarded to agents as-is.
type PriceBar struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// FinancialMetrics is one reported metrics period for a ticker.
type FinancialMetrics struct {
	Ticker               string  `json:"ticker"`
	Period               string  `json:"period"`
	PriceToEarningsRatio float64 `json:"price_to_earnings_ratio"`
	PriceToBookRatio     float64 `json:"price_to_book_ratio"`
	NetMargin            float64 `json:"net_margin"`
	ReturnOnEquity       float64 `json:"return_on_equity"`
	DebtToEquity         float64 `json:"debt_to_equity"`
	RevenueGrowth        float64 `json:"revenue_growth"`
}

// InsiderTrade is one reported insider transaction.
type InsiderTrade struct {
	Ticker          string  `json:"ticker"`
	Name            string  `json:"name"`
	Title           string  `json:"title"`
	TransactionDate string  `json:"transaction_date"`
	Shares          float64 `json:"transaction_shares"`
	Value           float64 `json:"transaction_value"`
}

// NewsItem is one news record for a ticker.
type NewsItem struct {
	Ticker    string `json:"ticker"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	Date      string `json:"date"`
	URL       string `json:"url"`
	Sentiment string `json:"sentiment,omitempty"`
}

// TickerData bundles everything fetched for one ticker in one cycle.
type TickerData struct {
	Prices        []PriceBar         `json:"prices"`
	Metrics       []FinancialMetrics `json:"metrics"`
	MarketCap     float64            `json:"market_cap"`
	InsiderTrades []InsiderTrade     `json:"insider_trades"`
	News          []NewsItem         `json:"news"`
	LastUpdate    time.Time          `json:"last_update"`
}

// LatestClose returns the close of the most recent price bar.
// ok is false when no bars are present.
func (d *TickerData) LatestClose() (float64, bool) {
	if len(d.Prices) == 0 {
		return 0, false
	}
	return d.Prices[len(d.Prices)-1].Close, true
}

// Snapshot is the full market-data view handed to every agent in a cycle.
type Snapshot map[string]TickerData
