// Package agent wraps independent analysis capabilities. Each Agent owns one
// Analyzer, tracks its own health across cycles, and isolates its failures
// from the rest of the run.
package agent

import (
	"context"
	"sync"
	"time"

	"hedgefund-systemv1/internal/errs"
	"hedgefund-systemv1/internal/marketdata"
)

// State is the lifecycle state of an Agent.
type State string

const (
	StateInitialized State = "initialized"
	StateAnalyzing   State = "analyzing"
	StateReady       State = "ready"
	StateError       State = "error"
)

// Action is a recommended trading action.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Recommendation is one per-ticker suggestion inside an Analysis.
type Recommendation struct {
	Ticker   string `json:"ticker"`
	Action   Action `json:"action"`
	Quantity int64  `json:"quantity"`
	Reason   string `json:"reason"`
}

// Analysis is the structured result of one analyze call.
type Analysis struct {
	Recommendations []Recommendation `json:"recommendations"`
	Confidence      float64          `json:"confidence"`
	Details         map[string]any   `json:"analysis_details"`
	Timestamp       time.Time        `json:"timestamp"`
}

// Analyzer produces an Analysis from a market-data snapshot, or fails.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, data marketdata.Snapshot) (Analysis, error)
}

// ModelConfig is opaque model selection forwarded to the analyzer.
type ModelConfig struct {
	ModelName     string `json:"model_name,omitempty"`
	ModelProvider string `json:"model_provider,omitempty"`
}

// Agent is one analysis capability inside a run.
type Agent struct {
	ID          string
	ModelConfig *ModelConfig

	analyzer Analyzer

	mu           sync.RWMutex
	state        State
	lastAnalysis *Analysis
	lastUpdate   time.Time
	errorCount   int
}

// New creates an Agent in the initialized state.
func New(id string, cfg *ModelConfig, analyzer Analyzer) *Agent {
	return &Agent{
		ID:          id,
		ModelConfig: cfg,
		analyzer:    analyzer,
		state:       StateInitialized,
	}
}

// Analyze runs the agent's analyzer against the snapshot.
//
// On success the agent records the analysis, resets its error count, and
// moves to ready. On failure the error count increments, the agent moves to
// error state, and a classified error is returned. The caller attaches the
// error to this agent's result slot rather than aborting the other agents.
func (a *Agent) Analyze(ctx context.Context, data marketdata.Snapshot) (Analysis, error) {
	a.mu.Lock()
	a.state = StateAnalyzing
	a.mu.Unlock()

	analysis, err := a.analyzer.Analyze(ctx, data)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.errorCount++
		a.state = StateError
		return Analysis{}, errs.Wrap(errs.CodeService, err, "agent %s analysis failed", a.ID)
	}

	a.lastAnalysis = &analysis
	a.lastUpdate = time.Now()
	a.state = StateReady
	a.errorCount = 0
	return analysis, nil
}

// State returns the agent's current lifecycle state.
func (a *Agent) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// ErrorCount returns the number of consecutive failed analyses.
func (a *Agent) ErrorCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.errorCount
}

// LastAnalysis returns the most recent successful analysis, or nil.
func (a *Agent) LastAnalysis() *Analysis {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastAnalysis
}

// LastUpdate returns the time of the most recent successful analysis.
func (a *Agent) LastUpdate() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastUpdate
}
