package fund

import (
	"time"

	"hedgefund-systemv1/internal/agent"
	"hedgefund-systemv1/internal/portfolio"
)

// EventType identifies the kind of a run event.
type EventType string

const (
	EventAnalysis        EventType = "analysis"
	EventPortfolioUpdate EventType = "portfolio_update"
	EventError           EventType = "error"
	EventComplete        EventType = "complete"
)

// Event is one typed message emitted by a run, delivered to the consumer in
// generation order.
type Event struct {
	Type      EventType `json:"type"`
	Cycle     int64     `json:"cycle"`
	Timestamp time.Time `json:"timestamp"`

	// analysis events
	AgentID  string          `json:"agent_id,omitempty"`
	Analysis *agent.Analysis `json:"analysis,omitempty"`

	// portfolio_update events
	Portfolio *portfolio.Snapshot `json:"portfolio,omitempty"`

	// error events, and per-agent failures on analysis events
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// Status is the externally visible run state.
type Status struct {
	IsRunning          bool                `json:"is_running"`
	CurrentPortfolio   *portfolio.Snapshot `json:"current_portfolio"`
	LastUpdate         *time.Time          `json:"last_update"`
	ActiveAgents       []string            `json:"active_agents"`
	PerformanceMetrics portfolio.Metrics   `json:"performance_metrics"`
}
