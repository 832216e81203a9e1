// cmd/backtest replays historical price data through the analysis agents and
// the portfolio ledger, applying each cycle's recommendations at that bar's
// close. Prints a performance summary instead of streaming events.
//
// Usage:
//
//	go run ./cmd/backtest -tickers=AAPL,MSFT -agents=momentum_analyst -cash=100000
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hedgefund-systemv1/config"
	"hedgefund-systemv1/internal/agent"
	"hedgefund-systemv1/internal/marketdata"
	"hedgefund-systemv1/internal/portfolio"
)

const warmupBars = 60

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	tickersFlag := flag.String("tickers", "", "Comma-separated tickers to backtest")
	agentsFlag := flag.String("agents", "momentum_analyst", "Comma-separated agent IDs")
	cash := flag.Float64("cash", 100000, "Initial cash")
	margin := flag.Float64("margin", 0, "Margin requirement (0..1)")
	startDate := flag.String("start", "", "Start date YYYY-MM-DD (default: one year ago)")
	endDate := flag.String("end", "", "End date YYYY-MM-DD (default: today)")
	flag.Parse()

	tickers := splitList(*tickersFlag)
	agentIDs := splitList(*agentsFlag)
	if len(tickers) == 0 {
		log.Fatal("[backtest] no tickers specified")
	}
	if len(agentIDs) == 0 {
		log.Fatal("[backtest] no agents specified")
	}

	end := *endDate
	if end == "" {
		end = time.Now().Format("2006-01-02")
	}
	start := *startDate
	if start == "" {
		start = time.Now().AddDate(-1, 0, 0).Format("2006-01-02")
	}

	cfg := config.Load()
	client := marketdata.NewClient(marketdata.ClientConfig{
		BaseURL: cfg.MarketDataBaseURL,
		APIKey:  cfg.MarketDataAPIKey,
	})

	ctx := context.Background()

	// Full history up front; the replay slices it per bar.
	history := make(map[string]marketdata.TickerData, len(tickers))
	maxBars := 0
	for _, ticker := range tickers {
		data, err := client.FetchTickerData(ctx, ticker, start, end)
		if err != nil {
			log.Fatalf("[backtest] fetch %s failed: %v", ticker, err)
		}
		if len(data.Prices) > maxBars {
			maxBars = len(data.Prices)
		}
		history[ticker] = data
		log.Printf("[backtest] %s: %d bars loaded", ticker, len(data.Prices))
	}
	if maxBars <= warmupBars {
		log.Fatalf("[backtest] not enough history: %d bars, need > %d", maxBars, warmupBars)
	}

	agents := make([]*agent.Agent, 0, len(agentIDs))
	for _, id := range agentIDs {
		agents = append(agents, agent.New(id, nil, agent.NewAnalyzer(id, nil)))
	}

	pf := portfolio.New(decimal.NewFromFloat(*cash), decimal.NewFromFloat(*margin), tickers)

	for bar := warmupBars; bar < maxBars; bar++ {
		snapshot := sliceSnapshot(history, bar+1)

		for _, a := range agents {
			analysis, err := a.Analyze(ctx, snapshot)
			if err != nil {
				log.Printf("[backtest] bar %d: %v", bar, err)
				continue
			}
			applyRecommendations(pf, snapshot, analysis.Recommendations, bar)
		}

		priceUpdates := make(map[string]decimal.Decimal, len(snapshot))
		for ticker, data := range snapshot {
			if latest, ok := data.LatestClose(); ok {
				priceUpdates[ticker] = decimal.NewFromFloat(latest)
			}
		}
		pf.UpdatePrices(priceUpdates)
	}

	printSummary(pf, decimal.NewFromFloat(*cash))
}

// sliceSnapshot truncates every ticker's history to the first n bars.
func sliceSnapshot(history map[string]marketdata.TickerData, n int) marketdata.Snapshot {
	snap := make(marketdata.Snapshot, len(history))
	for ticker, data := range history {
		truncated := data
		if len(data.Prices) > n {
			truncated.Prices = data.Prices[:n]
		}
		snap[ticker] = truncated
	}
	return snap
}

func applyRecommendations(pf *portfolio.Portfolio, snapshot marketdata.Snapshot, recs []agent.Recommendation, bar int) {
	for _, rec := range recs {
		if rec.Action == agent.ActionHold || rec.Quantity == 0 {
			continue
		}
		data, ok := snapshot[rec.Ticker]
		if !ok {
			continue
		}
		latest, ok := data.LatestClose()
		if !ok {
			continue
		}

		qty := rec.Quantity
		if rec.Action == agent.ActionSell {
			qty = -qty
		}
		if err := pf.ExecuteTrade(rec.Ticker, qty, decimal.NewFromFloat(latest), time.Now()); err != nil {
			log.Printf("[backtest] bar %d: trade %s %d rejected: %v", bar, rec.Ticker, qty, err)
		}
	}
}

func printSummary(pf *portfolio.Portfolio, initialCash decimal.Decimal) {
	snap := pf.Snapshot()
	perf := portfolio.CalculateMetrics(initialCash, snap.TotalValue, snap.Trades)

	fmt.Println()
	fmt.Println("=== Backtest Summary ===")
	fmt.Printf("Initial cash:    %s\n", initialCash.StringFixed(2))
	fmt.Printf("Final value:     %s\n", snap.TotalValue.StringFixed(2))
	fmt.Printf("Cash:            %s\n", snap.Cash.StringFixed(2))
	fmt.Printf("Trades executed: %d\n", len(snap.Trades))
	fmt.Printf("Total return:    %.2f%%\n", perf.TotalReturn*100)
	fmt.Printf("Sharpe ratio:    %.4f\n", perf.SharpeRatio)
	fmt.Printf("Max drawdown:    %.2f%%\n", perf.MaxDrawdown*100)

	for ticker, pos := range snap.Positions {
		if pos.Quantity == 0 {
			continue
		}
		fmt.Printf("  %s: qty=%d avg=%s last=%s pnl=%s\n",
			ticker, pos.Quantity,
			pos.AveragePrice.StringFixed(2),
			pos.CurrentPrice.StringFixed(2),
			pos.UnrealizedPnL.StringFixed(2),
		)
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
