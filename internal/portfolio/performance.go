package portfolio

import (
	"math"

	"github.com/shopspring/decimal"
)

// riskFreeRate is the fixed annualized risk-free rate used in the Sharpe
// ratio computation.
const riskFreeRate = 0.02

// Metrics holds the per-cycle performance statistics derived from the ledger.
// These are ratios, not money, so float64 is fine here.
type Metrics struct {
	TotalReturn float64 `json:"total_return"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// CalculateMetrics derives performance metrics from the current total value
// and the trade history.
//
// The Sharpe ratio is computed over consecutive trade-notional deltas rather
// than period returns; with fewer than two trades, or zero variance in the
// deltas, it is 0. Max drawdown tracks the running peak of trade notionals
// seeded at the initial cash, and is monotonically non-decreasing as trades
// accrue.
func CalculateMetrics(initialCash, totalValue decimal.Decimal, trades []Trade) Metrics {
	m := Metrics{}

	initial, _ := initialCash.Float64()
	if initial != 0 {
		total, _ := totalValue.Float64()
		m.TotalReturn = (total - initial) / initial
	}

	m.SharpeRatio = sharpeRatio(trades)
	m.MaxDrawdown = maxDrawdown(initial, trades)
	return m
}

func sharpeRatio(trades []Trade) float64 {
	if len(trades) < 2 {
		return 0
	}

	deltas := make([]float64, 0, len(trades)-1)
	for i := 1; i < len(trades); i++ {
		prev, _ := trades[i-1].Value.Float64()
		curr, _ := trades[i].Value.Float64()
		if prev == 0 {
			continue
		}
		deltas = append(deltas, (curr-prev)/prev)
	}
	if len(deltas) == 0 {
		return 0
	}

	mean := 0.0
	for _, d := range deltas {
		mean += d
	}
	mean /= float64(len(deltas))

	if len(deltas) < 2 {
		return 0
	}
	// Sample (n-1) standard deviation.
	variance := 0.0
	for _, d := range deltas {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(deltas) - 1)
	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0
	}

	return (mean - riskFreeRate) / stdDev
}

func maxDrawdown(initial float64, trades []Trade) float64 {
	maxDD := 0.0
	peak := initial
	for _, t := range trades {
		value, _ := t.Value.Float64()
		if value > peak {
			peak = value
			continue
		}
		if peak > 0 {
			dd := (peak - value) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
