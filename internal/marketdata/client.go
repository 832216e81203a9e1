// Package marketdata provides the external market-data source: an HTTP
// client for a financial-datasets REST API plus an optional Redis snapshot
// cache. Prices, financial metrics, market cap, insider trades, and company
// news are each independently queryable and independently fallible.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"hedgefund-systemv1/internal/errs"
)

// Source is the interface the orchestration loop consumes.
type Source interface {
	FetchTickerData(ctx context.Context, ticker string, startDate, endDate string) (TickerData, error)
}

const defaultTimeout = 10 * time.Second

var routes = map[string]string{
	"prices":         "/prices",
	"metrics":        "/financial-metrics",
	"market-cap":     "/market-cap",
	"insider-trades": "/insider-trades",
	"news":           "/news",
}

// ClientConfig configures the market-data HTTP client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // default: 10s
}

// Client fetches market data over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a market-data client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// doGET performs a GET against a named route with query params and decodes
// the JSON body into out.
func (c *Client) doGET(ctx context.Context, route string, params url.Values, out any) error {
	u := c.baseURL + routes[route] + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Wrap(errs.CodeService, err, "market data request %s", route)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errs.Service("market data request %s: status %d: %s", route, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrap(errs.CodeService, err, "market data decode %s", route)
	}
	return nil
}

func tickerRange(ticker, startDate, endDate string) url.Values {
	p := url.Values{}
	p.Set("ticker", ticker)
	p.Set("start_date", startDate)
	p.Set("end_date", endDate)
	return p
}

// GetPrices returns ordered price bars for the ticker over the date range.
func (c *Client) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]PriceBar, error) {
	var body struct {
		Prices []PriceBar `json:"prices"`
	}
	if err := c.doGET(ctx, "prices", tickerRange(ticker, startDate, endDate), &body); err != nil {
		return nil, err
	}
	return body.Prices, nil
}

// GetFinancialMetrics returns trailing financial metrics for the ticker.
func (c *Client) GetFinancialMetrics(ctx context.Context, ticker, endDate string, limit int) ([]FinancialMetrics, error) {
	p := url.Values{}
	p.Set("ticker", ticker)
	p.Set("report_period_lte", endDate)
	p.Set("period", "ttm")
	p.Set("limit", fmt.Sprintf("%d", limit))

	var body struct {
		Metrics []FinancialMetrics `json:"financial_metrics"`
	}
	if err := c.doGET(ctx, "metrics", p, &body); err != nil {
		return nil, err
	}
	return body.Metrics, nil
}

// GetMarketCap returns the market capitalization as of endDate.
func (c *Client) GetMarketCap(ctx context.Context, ticker, endDate string) (float64, error) {
	p := url.Values{}
	p.Set("ticker", ticker)
	p.Set("end_date", endDate)

	var body struct {
		MarketCap float64 `json:"market_cap"`
	}
	if err := c.doGET(ctx, "market-cap", p, &body); err != nil {
		return 0, err
	}
	return body.MarketCap, nil
}

// GetInsiderTrades returns insider transactions over the date range.
func (c *Client) GetInsiderTrades(ctx context.Context, ticker, startDate, endDate string) ([]InsiderTrade, error) {
	var body struct {
		Trades []InsiderTrade `json:"insider_trades"`
	}
	if err := c.doGET(ctx, "insider-trades", tickerRange(ticker, startDate, endDate), &body); err != nil {
		return nil, err
	}
	return body.Trades, nil
}

// GetCompanyNews returns news records over the date range.
func (c *Client) GetCompanyNews(ctx context.Context, ticker, startDate, endDate string) ([]NewsItem, error) {
	var body struct {
		News []NewsItem `json:"news"`
	}
	if err := c.doGET(ctx, "news", tickerRange(ticker, startDate, endDate), &body); err != nil {
		return nil, err
	}
	return body.News, nil
}

// FetchTickerData composes the per-ticker queries into one TickerData.
//
// A price fetch failure is fatal for the ticker; the other queries degrade
// to empty results so a partial upstream outage does not starve the agents
// of price data.
func (c *Client) FetchTickerData(ctx context.Context, ticker, startDate, endDate string) (TickerData, error) {
	prices, err := c.GetPrices(ctx, ticker, startDate, endDate)
	if err != nil {
		return TickerData{}, err
	}

	metrics, err := c.GetFinancialMetrics(ctx, ticker, endDate, 4)
	if err != nil {
		log.Printf("[marketdata] %s: metrics unavailable: %v", ticker, err)
	}
	marketCap, err := c.GetMarketCap(ctx, ticker, endDate)
	if err != nil {
		log.Printf("[marketdata] %s: market cap unavailable: %v", ticker, err)
	}
	insider, err := c.GetInsiderTrades(ctx, ticker, startDate, endDate)
	if err != nil {
		log.Printf("[marketdata] %s: insider trades unavailable: %v", ticker, err)
	}
	news, err := c.GetCompanyNews(ctx, ticker, startDate, endDate)
	if err != nil {
		log.Printf("[marketdata] %s: news unavailable: %v", ticker, err)
	}

	return TickerData{
		Prices:        prices,
		Metrics:       metrics,
		MarketCap:     marketCap,
		InsiderTrades: insider,
		News:          news,
		LastUpdate:    time.Now(),
	}, nil
}
