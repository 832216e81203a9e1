package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"hedgefund-systemv1/internal/errs"
)

// fakeAPI serves canned JSON per route and records received headers.
func fakeAPI(t *testing.T, failRoutes map[string]int) (*httptest.Server, *http.Header) {
	t.Helper()
	var lastHeader http.Header

	mux := http.NewServeMux()
	handle := func(path, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			lastHeader = r.Header.Clone()
			if code, ok := failRoutes[path]; ok {
				w.WriteHeader(code)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		})
	}
	handle("/prices", `{"prices":[{"time":"2025-08-29","open":149,"high":151,"low":148,"close":150,"volume":1000},{"time":"2025-08-30","close":150.5}]}`)
	handle("/financial-metrics", `{"financial_metrics":[{"ticker":"AAPL","price_to_earnings_ratio":18.5,"return_on_equity":0.2}]}`)
	handle("/market-cap", `{"market_cap":3000000000000}`)
	handle("/insider-trades", `{"insider_trades":[]}`)
	handle("/news", `{"news":[]}`)

	return httptest.NewServer(mux), &lastHeader
}

func TestClient_GetPrices(t *testing.T) {
	ts, hdr := fakeAPI(t, nil)
	defer ts.Close()

	c := NewClient(ClientConfig{BaseURL: ts.URL, APIKey: "secret"})
	prices, err := c.GetPrices(context.Background(), "AAPL", "2025-01-01", "2025-08-30")
	if err != nil {
		t.Fatalf("GetPrices: %v", err)
	}
	if len(prices) != 2 || prices[1].Close != 150.5 {
		t.Errorf("prices = %+v", prices)
	}
	if hdr.Get("X-API-KEY") != "secret" {
		t.Error("API key header not sent")
	}
}

func TestClient_PriceFailureIsFatal(t *testing.T) {
	ts, _ := fakeAPI(t, map[string]int{"/prices": http.StatusBadGateway})
	defer ts.Close()

	c := NewClient(ClientConfig{BaseURL: ts.URL})
	_, err := c.FetchTickerData(context.Background(), "AAPL", "2025-01-01", "2025-08-30")
	if err == nil {
		t.Fatal("expected error when prices unavailable")
	}
	if errs.CodeOf(err) != errs.CodeService {
		t.Errorf("code = %s, want SERVICE_ERROR", errs.CodeOf(err))
	}
}

func TestClient_SupplementaryFailuresDegrade(t *testing.T) {
	ts, _ := fakeAPI(t, map[string]int{
		"/financial-metrics": http.StatusInternalServerError,
		"/news":              http.StatusNotFound,
	})
	defer ts.Close()

	c := NewClient(ClientConfig{BaseURL: ts.URL})
	data, err := c.FetchTickerData(context.Background(), "AAPL", "2025-01-01", "2025-08-30")
	if err != nil {
		t.Fatalf("FetchTickerData: %v", err)
	}
	if len(data.Prices) != 2 {
		t.Errorf("prices = %+v", data.Prices)
	}
	if len(data.Metrics) != 0 || len(data.News) != 0 {
		t.Error("failed routes should yield empty slices")
	}
	if data.MarketCap != 3000000000000 {
		t.Errorf("market cap = %v", data.MarketCap)
	}
}

func TestLatestClose(t *testing.T) {
	var empty TickerData
	if _, ok := empty.LatestClose(); ok {
		t.Error("empty data reported a close")
	}

	data := TickerData{Prices: []PriceBar{{Close: 1}, {Close: 2}, {Close: 3}}}
	got, ok := data.LatestClose()
	if !ok || got != 3 {
		t.Errorf("LatestClose = %v,%v, want 3,true", got, ok)
	}
}
