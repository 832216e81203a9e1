package agent

import (
	"context"
	"fmt"
	"time"

	"hedgefund-systemv1/internal/errs"
	"hedgefund-systemv1/internal/marketdata"
)

const (
	defaultFastPeriod = 20
	defaultSlowPeriod = 50
	defaultTradeQty   = 10
)

// Momentum recommends trades from an SMA crossover over the close series.
//
// Buy when the fast SMA sits above the slow SMA, sell when below, hold when
// there is not enough history for the slow window.
type Momentum struct {
	fastPeriod int
	slowPeriod int
	qty        int64
}

// NewMomentum creates a momentum analyzer. Non-positive periods fall back to
// the defaults, and the shorter period is always taken as the fast one.
func NewMomentum(fastPeriod, slowPeriod int) *Momentum {
	if fastPeriod <= 0 {
		fastPeriod = defaultFastPeriod
	}
	if slowPeriod <= 0 {
		slowPeriod = defaultSlowPeriod
	}
	if fastPeriod > slowPeriod {
		fastPeriod, slowPeriod = slowPeriod, fastPeriod
	}
	return &Momentum{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
		qty:        defaultTradeQty,
	}
}

func (m *Momentum) Name() string { return "momentum" }

// Analyze computes per-ticker SMA signals from the snapshot's price bars.
func (m *Momentum) Analyze(ctx context.Context, data marketdata.Snapshot) (Analysis, error) {
	if len(data) == 0 {
		return Analysis{}, errs.Service("momentum: empty market data snapshot")
	}

	recs := make([]Recommendation, 0, len(data))
	details := make(map[string]any, len(data))
	scored := 0

	for ticker, td := range data {
		if err := ctx.Err(); err != nil {
			return Analysis{}, err
		}

		closes := make([]float64, len(td.Prices))
		for i, bar := range td.Prices {
			closes[i] = bar.Close
		}

		if len(closes) < m.slowPeriod {
			recs = append(recs, Recommendation{
				Ticker: ticker,
				Action: ActionHold,
				Reason: fmt.Sprintf("insufficient history: %d bars, need %d", len(closes), m.slowPeriod),
			})
			continue
		}

		fast := sma(closes, m.fastPeriod)
		slow := sma(closes, m.slowPeriod)
		details[ticker] = map[string]any{
			"fast_sma": fast,
			"slow_sma": slow,
		}
		scored++

		switch {
		case fast > slow:
			recs = append(recs, Recommendation{
				Ticker:   ticker,
				Action:   ActionBuy,
				Quantity: m.qty,
				Reason:   fmt.Sprintf("fast SMA %.2f above slow SMA %.2f", fast, slow),
			})
		case fast < slow:
			recs = append(recs, Recommendation{
				Ticker:   ticker,
				Action:   ActionSell,
				Quantity: m.qty,
				Reason:   fmt.Sprintf("fast SMA %.2f below slow SMA %.2f", fast, slow),
			})
		default:
			recs = append(recs, Recommendation{Ticker: ticker, Action: ActionHold, Reason: "SMAs flat"})
		}
	}

	confidence := 0.0
	if len(data) > 0 {
		confidence = float64(scored) / float64(len(data))
	}

	return Analysis{
		Recommendations: recs,
		Confidence:      confidence,
		Details:         details,
		Timestamp:       time.Now(),
	}, nil
}

// sma averages the trailing period closes.
func sma(closes []float64, period int) float64 {
	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period)
}
