package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hedgefund-systemv1/internal/agent"
	"hedgefund-systemv1/internal/fund"
	"hedgefund-systemv1/internal/marketdata"
	"hedgefund-systemv1/internal/metrics"
)

type cannedSource struct{}

func (cannedSource) FetchTickerData(ctx context.Context, ticker, startDate, endDate string) (marketdata.TickerData, error) {
	return marketdata.TickerData{
		Prices: []marketdata.PriceBar{{Time: "2025-08-30", Close: 150.5}},
	}, nil
}

type holdAnalyzer struct{ id string }

func (h holdAnalyzer) Name() string { return h.id }

func (h holdAnalyzer) Analyze(ctx context.Context, data marketdata.Snapshot) (agent.Analysis, error) {
	return agent.Analysis{Confidence: 1, Timestamp: time.Now()}, nil
}

func newTestServer(t *testing.T) (*Server, *fund.Service, *metrics.Collector) {
	t.Helper()
	svc := fund.NewService(fund.Deps{
		Source: cannedSource{},
		Analyzers: func(id string, cfg *agent.ModelConfig) agent.Analyzer {
			return holdAnalyzer{id: id}
		},
	})
	collector := metrics.NewCollector(100)
	return NewServer(svc, nil, nil, collector, nil, nil), svc, collector
}

func TestStatusEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/hedgefund/status", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var st fund.Status
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.IsRunning {
		t.Error("is_running = true before any run")
	}
}

func TestRunEndpoint_ValidationError(t *testing.T) {
	srv, _, _ := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	body := bytes.NewBufferString(`{"tickers":[],"selected_agents":["momentum_analyst"]}`)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/hedgefund/run", body))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %s, want VALIDATION_ERROR", resp.Error.Code)
	}
	if resp.Error.ID == "" {
		t.Error("error_id missing")
	}
}

func TestRunEndpoint_MethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/hedgefund/run", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestRunEndpoint_StreamsSSE(t *testing.T) {
	srv, svc, _ := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	body := `{"tickers":["AAPL"],"selected_agents":["momentum_analyst"],"interval_seconds":1}`
	resp, err := http.Post(ts.URL+"/api/hedgefund/run", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %s, want text/event-stream", ct)
	}

	reader := bufio.NewReader(resp.Body)
	var eventNames []string
	deadline := time.Now().Add(5 * time.Second)
	for len(eventNames) < 2 && time.Now().Before(deadline) {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if strings.HasPrefix(line, "event: ") {
			eventNames = append(eventNames, strings.TrimSpace(strings.TrimPrefix(line, "event: ")))
		} else if strings.HasPrefix(line, "data: ") {
			var ev fund.Event
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
				t.Fatalf("data line not valid JSON: %v", err)
			}
		}
	}

	if len(eventNames) < 2 || eventNames[0] != "analysis" || eventNames[1] != "portfolio_update" {
		t.Fatalf("event order = %v, want [analysis portfolio_update ...]", eventNames)
	}

	// Stopping the run must terminate the stream with a complete event.
	svc.Stop()
	var sawComplete bool
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		if strings.TrimSpace(line) == "event: complete" {
			sawComplete = true
		}
	}
	if !sawComplete {
		t.Error("stream ended without complete event")
	}
}

func TestExecuteEndpoint_Validation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	cases := []struct {
		name string
		body string
		code string
	}{
		{"missing ticker", `{"quantity":10,"price":150}`, "VALIDATION_ERROR"},
		{"bad price", `{"ticker":"AAPL","quantity":10,"price":0}`, "VALIDATION_ERROR"},
		{"no active run", `{"ticker":"AAPL","quantity":10,"price":150}`, "NOT_FOUND"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/trading/execute", strings.NewReader(tc.body)))
		var resp errorResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if resp.Error.Code != tc.code {
			t.Errorf("%s: code = %s, want %s", tc.name, resp.Error.Code, tc.code)
		}
	}
}

func TestMonitoringEndpoint(t *testing.T) {
	srv, _, collector := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	collector.Record("portfolio_total_value", 100000)
	collector.Record("portfolio_total_value", 101000)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/monitoring/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var body struct {
		Stats map[string]metrics.Stats `json:"stats"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	st, ok := body.Stats["portfolio_total_value"]
	if !ok {
		t.Fatal("portfolio_total_value stats missing")
	}
	if st.Count != 2 || st.Current != 101000 {
		t.Errorf("stats = %+v, want count=2 current=101000", st)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["running"] != false {
		t.Errorf("running = %v, want false", body["running"])
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/hedgefund/status", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header on preflight")
	}
}
