// Package fund implements the streaming strategy-execution loop: a repeating
// cycle that pulls market data, fans out to analysis agents, applies price
// updates to the ledger, derives performance statistics, and emits a typed
// event stream to its consumer.
package fund

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hedgefund-systemv1/internal/agent"
	"hedgefund-systemv1/internal/errs"
	"hedgefund-systemv1/internal/journal"
	"hedgefund-systemv1/internal/marketdata"
	"hedgefund-systemv1/internal/metrics"
	"hedgefund-systemv1/internal/notify"
	"hedgefund-systemv1/internal/portfolio"
)

const (
	defaultCycleInterval = 5 * time.Second
	lookbackDays         = 365
	eventBuffer          = 64
)

// AgentModelConfig selects a model for one agent in a run request.
type AgentModelConfig struct {
	AgentID       string `json:"agent_id"`
	ModelName     string `json:"model_name,omitempty"`
	ModelProvider string `json:"model_provider,omitempty"`
}

// RunConfig describes one strategy run.
type RunConfig struct {
	Tickers           []string
	SelectedAgents    []string
	AgentModels       []AgentModelConfig
	InitialCash       decimal.Decimal
	MarginRequirement decimal.Decimal
	Interval          time.Duration // default: 5s
}

// AnalyzerFactory builds the analyzer backing an agent ID.
type AnalyzerFactory func(agentID string, cfg *agent.ModelConfig) agent.Analyzer

// Deps are the collaborators a Service is constructed with. Journal,
// Collector, Notifier, Health, and Analyzers are optional; Analyzers
// defaults to the built-in registry.
type Deps struct {
	Source    marketdata.Source
	Journal   *journal.Journal
	Prom      *metrics.Metrics
	Collector *metrics.Collector
	Notifier  notify.Notifier
	Health    *metrics.HealthStatus
	Logger    *slog.Logger
	Analyzers AnalyzerFactory

	// DefaultInterval applies when a run request carries no interval.
	// Zero means the built-in default.
	DefaultInterval time.Duration
}

// Service drives strategy runs. At most one run is active per Service;
// starting a new run supersedes the previous one.
type Service struct {
	source    marketdata.Source
	journal   *journal.Journal
	prom      *metrics.Metrics
	collector *metrics.Collector
	notifier  notify.Notifier
	health    *metrics.HealthStatus
	log       *slog.Logger

	analyzers       AnalyzerFactory
	defaultInterval time.Duration

	mu         sync.RWMutex
	running    bool
	stopReq    bool
	cancelPrev context.CancelFunc
	runID      string
	portfolio  *portfolio.Portfolio
	agents     []*agent.Agent
	lastUpdate time.Time
	perf       portfolio.Metrics
}

// NewService creates a Service from its dependencies.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier()
	}
	analyzers := deps.Analyzers
	if analyzers == nil {
		analyzers = agent.NewAnalyzer
	}
	interval := deps.DefaultInterval
	if interval <= 0 {
		interval = defaultCycleInterval
	}
	return &Service{
		analyzers:       analyzers,
		defaultInterval: interval,
		source:          deps.Source,
		journal:         deps.Journal,
		prom:            deps.Prom,
		collector:       deps.Collector,
		notifier:        notifier,
		health:          deps.Health,
		log:             logger,
	}
}

// Run validates the request, constructs a fresh portfolio and agent set, and
// starts the cycle loop. Validation failures are returned synchronously
// before any state is created. The returned channel carries events in
// generation order and is closed when the run ends.
func (s *Service) Run(ctx context.Context, cfg RunConfig) (<-chan Event, error) {
	if len(cfg.Tickers) == 0 {
		return nil, errs.Validation("no tickers provided")
	}
	if len(cfg.SelectedAgents) == 0 {
		return nil, errs.Validation("no agents selected")
	}
	if cfg.InitialCash.IsZero() {
		cfg.InitialCash = decimal.NewFromInt(100000)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = s.defaultInterval
	}

	pf := portfolio.New(cfg.InitialCash, cfg.MarginRequirement, cfg.Tickers)
	agents := make([]*agent.Agent, 0, len(cfg.SelectedAgents))
	for _, id := range cfg.SelectedAgents {
		mc := modelConfigFor(id, cfg.AgentModels)
		agents = append(agents, agent.New(id, mc, s.analyzers(id, mc)))
	}

	runCtx, cancel := context.WithCancel(ctx)
	runID := uuid.NewString()

	s.mu.Lock()
	// A new run supersedes a previous one rather than running in parallel.
	if s.cancelPrev != nil {
		s.cancelPrev()
	}
	s.cancelPrev = cancel
	s.running = true
	s.stopReq = false
	s.runID = runID
	s.portfolio = pf
	s.agents = agents
	s.lastUpdate = time.Now()
	s.perf = portfolio.Metrics{}
	s.mu.Unlock()

	if s.health != nil {
		s.health.SetRunActive(true)
	}
	s.log.Info("run started",
		slog.String("run_id", runID),
		slog.Any("tickers", cfg.Tickers),
		slog.Any("agents", cfg.SelectedAgents),
	)

	events := make(chan Event, eventBuffer)
	go s.runLoop(runCtx, cfg, pf, agents, events)
	return events, nil
}

// Stop requests a cooperative stop: the current cycle completes and the loop
// exits at the next cycle boundary.
func (s *Service) Stop() {
	s.mu.Lock()
	s.stopReq = true
	s.mu.Unlock()
	s.log.Info("run stop requested")
}

// IsRunning reports whether a run is active.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// ExecuteTrade applies a manual trade to the active run's ledger and
// journals it on success.
func (s *Service) ExecuteTrade(ticker string, quantity int64, price decimal.Decimal) (*portfolio.Snapshot, error) {
	s.mu.RLock()
	pf := s.portfolio
	runID := s.runID
	s.mu.RUnlock()

	if pf == nil {
		return nil, errs.NotFound("no active portfolio: start a run first")
	}

	if err := pf.ExecuteTrade(ticker, quantity, price, time.Now()); err != nil {
		if s.prom != nil {
			s.prom.TradesRejected.Inc()
		}
		return nil, err
	}
	if s.prom != nil {
		s.prom.TradesExecuted.Inc()
	}

	trades := pf.Trades()
	if len(trades) > 0 && s.journal != nil {
		if err := s.journal.RecordTrade(runID, trades[len(trades)-1]); err != nil {
			s.log.Warn("journal write failed", slog.String("error", err.Error()))
		}
	}

	snap := pf.Snapshot()
	return &snap, nil
}

// Trades returns the last N journaled trades.
func (s *Service) Trades(limit int) ([]journal.Record, error) {
	return s.journal.GetTrades(limit)
}

// Status reports the externally visible run state.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		IsRunning:          s.running,
		PerformanceMetrics: s.perf,
		ActiveAgents:       make([]string, 0, len(s.agents)),
	}
	for _, a := range s.agents {
		st.ActiveAgents = append(st.ActiveAgents, a.ID)
	}
	if s.portfolio != nil {
		snap := s.portfolio.Snapshot()
		st.CurrentPortfolio = &snap
	}
	if !s.lastUpdate.IsZero() {
		t := s.lastUpdate
		st.LastUpdate = &t
	}
	return st
}

func modelConfigFor(agentID string, models []AgentModelConfig) *agent.ModelConfig {
	for _, m := range models {
		if m.AgentID == agentID {
			return &agent.ModelConfig{
				ModelName:     m.ModelName,
				ModelProvider: m.ModelProvider,
			}
		}
	}
	return nil
}

// shouldContinue is the cycle-boundary check: a requested stop or consumer
// cancellation is observed here, never mid-cycle.
func (s *Service) shouldContinue(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running && !s.stopReq
}

func (s *Service) runLoop(ctx context.Context, cfg RunConfig, pf *portfolio.Portfolio, agents []*agent.Agent, events chan<- Event) {
	s.mu.RLock()
	runID := s.runID
	s.mu.RUnlock()

	// The run always ends not-running, whatever the exit path.
	defer func() {
		s.mu.Lock()
		// A superseded run must not clear the state of the run that
		// replaced it.
		current := s.runID == runID
		if current {
			s.running = false
		}
		s.mu.Unlock()
		if current && s.health != nil {
			s.health.SetRunActive(false)
		}
		close(events)
		s.log.Info("run finished", slog.String("run_id", runID))
	}()

	var cycle int64
	for s.shouldContinue(ctx) {
		cycle++
		cycleStart := time.Now()

		if err := s.runCycle(ctx, runID, cfg, pf, agents, events, cycle); err != nil {
			// Per-cycle failures are non-fatal to the run.
			if ctx.Err() != nil {
				return
			}
			s.log.Error("cycle failed",
				slog.Int64("cycle", cycle),
				slog.String("error", err.Error()),
			)
			if s.prom != nil {
				s.prom.CycleErrors.Inc()
			}
			s.notifier.Send(ctx, notify.Alert{
				Level:   notify.AlertWarning,
				Title:   "strategy cycle failed",
				Message: err.Error(),
				RunID:   runID,
			})
			if !s.emit(ctx, events, Event{
				Type:      EventError,
				Cycle:     cycle,
				Timestamp: time.Now(),
				Error:     err.Error(),
				ErrorCode: string(errs.CodeOf(err)),
			}) {
				return
			}
		}

		if s.prom != nil {
			s.prom.CyclesTotal.Inc()
			s.prom.CycleDur.Observe(time.Since(cycleStart).Seconds())
		}
		if s.health != nil {
			s.health.SetLastCycleTime(time.Now())
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(cfg.Interval):
		}
	}
}

// runCycle executes one full cycle: fetch, agent fan-out, price update,
// performance recompute. A returned error aborts this cycle only.
func (s *Service) runCycle(ctx context.Context, runID string, cfg RunConfig, pf *portfolio.Portfolio, agents []*agent.Agent, events chan<- Event, cycle int64) error {
	snapshot, err := s.fetchMarketData(ctx, cfg.Tickers)
	if err != nil {
		if s.prom != nil {
			s.prom.FetchFailures.Inc()
		}
		return errs.Wrap(errs.CodeService, err, "failed to fetch market data")
	}

	// Fan out to every agent. One agent's failure becomes an error payload on
	// its own analysis event and never aborts the others.
	for _, a := range agents {
		start := time.Now()
		analysis, err := a.Analyze(ctx, snapshot)

		ev := Event{
			Type:      EventAnalysis,
			Cycle:     cycle,
			Timestamp: time.Now(),
			AgentID:   a.ID,
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ev.Error = err.Error()
			ev.ErrorCode = string(errs.CodeOf(err))
			if s.prom != nil {
				s.prom.AgentFailures.WithLabelValues(a.ID).Inc()
			}
		} else {
			ev.Analysis = &analysis
		}
		if s.prom != nil {
			s.prom.AgentAnalysisDur.WithLabelValues(a.ID).Observe(time.Since(start).Seconds())
			s.prom.EventsTotal.WithLabelValues(string(EventAnalysis)).Inc()
		}
		if !s.emit(ctx, events, ev) {
			return ctx.Err()
		}
	}

	// Latest close per ticker -> ledger.
	priceUpdates := make(map[string]decimal.Decimal, len(snapshot))
	for ticker, data := range snapshot {
		if latest, ok := data.LatestClose(); ok {
			priceUpdates[ticker] = decimal.NewFromFloat(latest)
		}
	}
	pf.UpdatePrices(priceUpdates)

	pfSnap := pf.Snapshot()
	if s.prom != nil {
		s.prom.EventsTotal.WithLabelValues(string(EventPortfolioUpdate)).Inc()
	}
	if !s.emit(ctx, events, Event{
		Type:      EventPortfolioUpdate,
		Cycle:     cycle,
		Timestamp: time.Now(),
		Portfolio: &pfSnap,
	}) {
		return ctx.Err()
	}

	perf := portfolio.CalculateMetrics(pf.InitialCash(), pfSnap.TotalValue, pfSnap.Trades)

	// An in-flight cycle of a superseded run must not write over the state
	// of the run that replaced it.
	s.mu.Lock()
	current := s.runID == runID
	if current {
		s.perf = perf
		s.lastUpdate = time.Now()
	}
	s.mu.Unlock()

	if current {
		s.recordObservations(pfSnap, perf)
	}
	return nil
}

// fetchMarketData assembles the full per-ticker snapshot for one cycle over
// a trailing one-year window.
func (s *Service) fetchMarketData(ctx context.Context, tickers []string) (marketdata.Snapshot, error) {
	start := time.Now()
	endDate := start.Format("2006-01-02")
	startDate := start.AddDate(0, 0, -lookbackDays).Format("2006-01-02")

	snapshot := make(marketdata.Snapshot, len(tickers))
	for _, ticker := range tickers {
		data, err := s.source.FetchTickerData(ctx, ticker, startDate, endDate)
		if err != nil {
			return nil, err
		}
		snapshot[ticker] = data
	}

	if s.prom != nil {
		s.prom.FetchDur.Observe(time.Since(start).Seconds())
	}
	return snapshot, nil
}

func (s *Service) recordObservations(snap portfolio.Snapshot, perf portfolio.Metrics) {
	totalValue, _ := snap.TotalValue.Float64()
	cash, _ := snap.Cash.Float64()

	if s.prom != nil {
		s.prom.PortfolioValue.Set(totalValue)
		s.prom.PortfolioCash.Set(cash)
	}
	if s.collector != nil {
		s.collector.Record("portfolio_total_value", totalValue)
		s.collector.Record("portfolio_cash", cash)
		s.collector.Record("portfolio_total_return", perf.TotalReturn)
		s.collector.Record("portfolio_sharpe_ratio", perf.SharpeRatio)
		s.collector.Record("portfolio_max_drawdown", perf.MaxDrawdown)
	}
}

// emit delivers one event in order, blocking until the consumer takes it or
// the run context ends. Returns false when the run should abort.
func (s *Service) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	// Once the run context is cancelled no further events go out, even if
	// the channel still has buffer space.
	if ctx.Err() != nil {
		return false
	}
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
