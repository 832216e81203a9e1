// Package metrics provides the engine's observability surface: Prometheus
// collectors, a bounded-history stats collector for the monitoring API, and
// an HTTP server exposing /metrics and /healthz.
//
// Everything here is explicitly constructed and passed to its consumers;
// there is no package-level collector state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the fund engine.
type Metrics struct {
	CyclesTotal      prometheus.Counter
	CycleErrors      prometheus.Counter
	EventsTotal      *prometheus.CounterVec // labels: type
	CycleDur         prometheus.Histogram
	FetchDur         prometheus.Histogram
	FetchFailures    prometheus.Counter
	AgentAnalysisDur *prometheus.HistogramVec // labels: agent
	AgentFailures    *prometheus.CounterVec   // labels: agent
	TradesExecuted   prometheus.Counter
	TradesRejected   prometheus.Counter
	PortfolioValue   prometheus.Gauge
	PortfolioCash    prometheus.Gauge
	APICalls         *prometheus.CounterVec   // labels: path, status
	APILatency       *prometheus.HistogramVec // labels: path
	WSClients        prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fundengine_cycles_total",
			Help: "Total strategy cycles completed",
		}),
		CycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fundengine_cycle_errors_total",
			Help: "Cycles that ended with an error event",
		}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fundengine_events_total",
			Help: "Run events emitted (by event type)",
		}, []string{"type"}),
		CycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fundengine_cycle_duration_seconds",
			Help:    "Wall time of one full strategy cycle",
			Buckets: prometheus.DefBuckets,
		}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fundengine_fetch_duration_seconds",
			Help:    "Market data fetch latency per cycle",
			Buckets: prometheus.DefBuckets,
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fundengine_fetch_failures_total",
			Help: "Market data fetches that failed a cycle",
		}),
		AgentAnalysisDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fundengine_agent_analysis_duration_seconds",
			Help:    "Agent analysis latency (by agent)",
			Buckets: prometheus.DefBuckets,
		}, []string{"agent"}),
		AgentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fundengine_agent_failures_total",
			Help: "Failed agent analyses (by agent)",
		}, []string{"agent"}),
		TradesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fundengine_trades_executed_total",
			Help: "Trades accepted by the ledger",
		}),
		TradesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fundengine_trades_rejected_total",
			Help: "Trades rejected by margin or position checks",
		}),
		PortfolioValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fundengine_portfolio_total_value",
			Help: "Current portfolio total value (cash + market value)",
		}),
		PortfolioCash: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fundengine_portfolio_cash",
			Help: "Current portfolio cash balance",
		}),
		APICalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fundengine_api_calls_total",
			Help: "HTTP API calls (by path and status)",
		}, []string{"path", "status"}),
		APILatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fundengine_api_latency_seconds",
			Help:    "HTTP API latency (by path)",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fundengine_ws_clients",
			Help: "Connected WebSocket monitoring clients",
		}),
	}

	prometheus.MustRegister(
		m.CyclesTotal,
		m.CycleErrors,
		m.EventsTotal,
		m.CycleDur,
		m.FetchDur,
		m.FetchFailures,
		m.AgentAnalysisDur,
		m.AgentFailures,
		m.TradesExecuted,
		m.TradesRejected,
		m.PortfolioValue,
		m.PortfolioCash,
		m.APICalls,
		m.APILatency,
		m.WSClients,
	)

	return m
}
