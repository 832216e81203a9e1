package gateway

import (
	"time"

	"github.com/shopspring/decimal"

	"hedgefund-systemv1/internal/fund"
)

// RunRequest is the body of POST /api/hedgefund/run.
type RunRequest struct {
	Tickers           []string                `json:"tickers"`
	SelectedAgents    []string                `json:"selected_agents"`
	AgentModels       []fund.AgentModelConfig `json:"agent_models,omitempty"`
	InitialCash       float64                 `json:"initial_cash,omitempty"`
	MarginRequirement float64                 `json:"margin_requirement,omitempty"`
	IntervalSeconds   int                     `json:"interval_seconds,omitempty"`
}

func (r RunRequest) toRunConfig() fund.RunConfig {
	cfg := fund.RunConfig{
		Tickers:        r.Tickers,
		SelectedAgents: r.SelectedAgents,
		AgentModels:    r.AgentModels,
	}
	if r.InitialCash > 0 {
		cfg.InitialCash = decimal.NewFromFloat(r.InitialCash)
	}
	if r.MarginRequirement > 0 {
		cfg.MarginRequirement = decimal.NewFromFloat(r.MarginRequirement)
	}
	if r.IntervalSeconds > 0 {
		cfg.Interval = time.Duration(r.IntervalSeconds) * time.Second
	}
	return cfg
}

// TradeRequest is the body of POST /api/trading/execute.
type TradeRequest struct {
	Ticker   string  `json:"ticker"`
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// errorResponse is the uniform error envelope for REST failures.
type errorResponse struct {
	Error struct {
		ID      string         `json:"error_id"`
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}
