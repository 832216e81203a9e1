// Package gateway exposes the fund engine over HTTP: a REST surface for run
// control and manual trading, an SSE stream for run events, and a WebSocket
// hub for monitoring fan-out.
package gateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"hedgefund-systemv1/internal/errs"
	"hedgefund-systemv1/internal/fund"
	"hedgefund-systemv1/internal/markethours"
	"hedgefund-systemv1/internal/metrics"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Server holds the handler dependencies.
type Server struct {
	fund      *fund.Service
	hub       *Hub
	prom      *metrics.Metrics
	collector *metrics.Collector
	health    *metrics.HealthStatus
	log       *slog.Logger
	start     time.Time
}

// NewServer creates the HTTP surface. hub may be nil when WebSocket fan-out
// is not wanted (backtests, tests).
func NewServer(svc *fund.Service, hub *Hub, prom *metrics.Metrics, collector *metrics.Collector, health *metrics.HealthStatus, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		fund:      svc,
		hub:       hub,
		prom:      prom,
		collector: collector,
		health:    health,
		log:       log,
		start:     time.Now(),
	}
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/hedgefund/run", s.instrument("/api/hedgefund/run", s.handleRun))
	mux.HandleFunc("/api/hedgefund/stop", s.instrument("/api/hedgefund/stop", s.handleStop))
	mux.HandleFunc("/api/hedgefund/status", s.instrument("/api/hedgefund/status", s.handleStatus))
	mux.HandleFunc("/api/trading/execute", s.instrument("/api/trading/execute", s.handleExecute))
	mux.HandleFunc("/api/trading/trades", s.instrument("/api/trading/trades", s.handleTrades))
	mux.HandleFunc("/api/monitoring/metrics", s.instrument("/api/monitoring/metrics", s.handleMonitoring))
	mux.HandleFunc("/api/health", s.instrument("/api/health", s.handleHealth))
	mux.HandleFunc("/ws", s.handleWS)
}

// handleRun starts a strategy run and streams its events as SSE until the
// run ends or the client disconnects.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, errs.Validation("method %s not allowed", r.Method))
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.Wrap(errs.CodeValidation, err, "invalid request body"))
		return
	}

	events, err := s.fund.Run(r.Context(), req.toRunConfig())
	if err != nil {
		s.writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, errs.Service("streaming unsupported by connection"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				writeSSE(w, fund.Event{Type: fund.EventComplete, Timestamp: time.Now()})
				flusher.Flush()
				return
			}
			if s.hub != nil {
				s.hub.BroadcastEvent(ev)
			}
			if err := writeSSE(w, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSE frames one event as a named SSE message.
func writeSSE(w http.ResponseWriter, ev fund.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
	return err
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, errs.Validation("method %s not allowed", r.Method))
		return
	}
	s.fund.Stop()
	writeJSON(w, http.StatusOK, statusResponse{Status: "stopping"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.fund.Status())
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, errs.Validation("method %s not allowed", r.Method))
		return
	}

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.Wrap(errs.CodeValidation, err, "invalid request body"))
		return
	}
	if req.Ticker == "" {
		s.writeError(w, errs.Validation("ticker is required"))
		return
	}
	if req.Price <= 0 {
		s.writeError(w, errs.Validation("price must be positive"))
		return
	}

	snap, err := s.fund.ExecuteTrade(req.Ticker, req.Quantity, decimal.NewFromFloat(req.Price))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	trades, err := s.fund.Trades(limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

// handleMonitoring reports collector statistics over an optional trailing
// window (?window_seconds=N, default all history).
func (s *Server) handleMonitoring(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		writeJSON(w, http.StatusOK, map[string]any{"stats": map[string]any{}})
		return
	}

	var window time.Duration
	if v := r.URL.Query().Get("window_seconds"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			window = time.Duration(n) * time.Second
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stats":       s.collector.AllStats(window),
		"alerts":      s.collector.Alerts(15 * time.Minute),
		"last_update": s.collector.LastUpdate(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":      "ok",
		"running":     s.fund.IsRunning(),
		"market_open": markethours.IsMarketOpen(time.Now()),
		"uptime_sec":  int64(time.Since(s.start).Seconds()),
		"ts":          time.Now().UTC().Format(time.RFC3339Nano),
	}
	if s.hub != nil {
		body["ws_clients"] = s.hub.ClientCount()
	}
	if s.health != nil {
		body["checks"] = s.health.Snapshot()
	}
	writeJSON(w, http.StatusOK, body)
}

// handleWS upgrades to WebSocket and registers the client on the hub.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket disabled", http.StatusNotFound)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	s.hub.Register(conn)
}
