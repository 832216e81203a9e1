package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hedgefund-systemv1/internal/fund"
	"hedgefund-systemv1/internal/markethours"
	"hedgefund-systemv1/internal/metrics"
)

const metricsBroadcastInterval = 2 * time.Second

// Hub fans run events and periodic monitoring snapshots out to WebSocket
// clients. Delivery is best-effort: a client that cannot keep up has
// messages dropped rather than stalling the hub.
type Hub struct {
	fund      *fund.Service
	collector *metrics.Collector
	prom      *metrics.Metrics
	log       *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates a hub. collector and prom are optional.
func NewHub(svc *fund.Service, collector *metrics.Collector, prom *metrics.Metrics, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		fund:      svc,
		collector: collector,
		prom:      prom,
		log:       log,
		clients:   make(map[*Client]bool),
	}
}

// Register wraps an upgraded connection in a Client and starts its pumps.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}
	conn.EnableWriteCompression(true)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	if h.prom != nil {
		h.prom.WSClients.Set(float64(count))
	}
	h.log.Info("ws client connected", slog.Int("total", count))

	go client.writePump()
	go client.readPump()
	return client
}

// remove detaches a client. Safe to call more than once per client.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	close(c.send)
	if h.prom != nil {
		h.prom.WSClients.Set(float64(count))
	}
	h.log.Info("ws client disconnected", slog.Int("total", count))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastEvent sends one run event to every client.
func (h *Hub) BroadcastEvent(ev fund.Event) {
	payload, err := json.Marshal(map[string]any{
		"type":  "event",
		"event": ev,
	})
	if err != nil {
		return
	}
	h.broadcast(payload)
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			// Slow client: drop the message, keep the hub moving.
		}
	}
}

// Run pushes a monitoring snapshot to all clients on a fixed interval until
// ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(metricsBroadcastInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.broadcastSnapshot()
		}
	}
}

func (h *Hub) broadcastSnapshot() {
	if h.ClientCount() == 0 {
		return
	}

	now := time.Now()
	body := map[string]any{
		"type":          "monitoring",
		"status":        h.fund.Status(),
		"market_open":   markethours.IsMarketOpen(now),
		"market_status": markethours.StatusString(now),
		"ts":            now.UTC().Format(time.RFC3339Nano),
	}
	if h.collector != nil {
		body["stats"] = h.collector.AllStats(0)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return
	}
	h.broadcast(payload)
}
