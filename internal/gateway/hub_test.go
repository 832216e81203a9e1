package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"hedgefund-systemv1/internal/agent"
	"hedgefund-systemv1/internal/fund"
)

func dialTestHub(t *testing.T) (*Hub, *websocket.Conn, func()) {
	t.Helper()
	svc := fund.NewService(fund.Deps{
		Source: cannedSource{},
		Analyzers: func(id string, cfg *agent.ModelConfig) agent.Analyzer {
			return holdAnalyzer{id: id}
		},
	})
	hub := NewHub(svc, nil, nil, nil)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		hub.Register(conn)
	}))

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		ts.Close()
		t.Fatalf("dial: %v", err)
	}
	return hub, conn, func() {
		conn.Close()
		ts.Close()
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub, conn, cleanup := dialTestHub(t)
	defer cleanup()

	waitForClients(t, hub, 1)

	hub.BroadcastEvent(fund.Event{
		Type:    fund.EventAnalysis,
		Cycle:   1,
		AgentID: "momentum_analyst",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got struct {
		Type  string     `json:"type"`
		Event fund.Event `json:"event"`
	}
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != "event" || got.Event.AgentID != "momentum_analyst" {
		t.Errorf("broadcast payload = %+v", got)
	}
}

func TestHubApplicationPing(t *testing.T) {
	hub, conn, cleanup := dialTestHub(t)
	defer cleanup()

	waitForClients(t, hub, 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"ping":42}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var pong struct {
		Type string `json:"type"`
		Ping int64  `json:"ping"`
	}
	if err := json.Unmarshal(msg, &pong); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pong.Type != "pong" || pong.Ping != 42 {
		t.Errorf("pong = %+v", pong)
	}
}

func TestHubClientDisconnect(t *testing.T) {
	hub, conn, cleanup := dialTestHub(t)
	defer cleanup()

	waitForClients(t, hub, 1)
	conn.Close()
	waitForClients(t, hub, 0)

	// Broadcasting with no clients must not panic or block.
	hub.BroadcastEvent(fund.Event{Type: fund.EventError})
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
