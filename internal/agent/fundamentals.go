package agent

import (
	"context"
	"fmt"
	"time"

	"hedgefund-systemv1/internal/errs"
	"hedgefund-systemv1/internal/marketdata"
)

// Fundamentals scores tickers on valuation and profitability from reported
// financial metrics. It abstains (HOLD) on tickers with no metrics.
type Fundamentals struct {
	qty int64
}

// NewFundamentals creates a fundamentals analyzer.
func NewFundamentals() *Fundamentals {
	return &Fundamentals{qty: defaultTradeQty}
}

func (f *Fundamentals) Name() string { return "fundamentals" }

// Analyze scores each ticker's latest metrics period.
func (f *Fundamentals) Analyze(ctx context.Context, data marketdata.Snapshot) (Analysis, error) {
	if len(data) == 0 {
		return Analysis{}, errs.Service("fundamentals: empty market data snapshot")
	}

	recs := make([]Recommendation, 0, len(data))
	details := make(map[string]any, len(data))
	scored := 0

	for ticker, td := range data {
		if err := ctx.Err(); err != nil {
			return Analysis{}, err
		}
		if len(td.Metrics) == 0 {
			recs = append(recs, Recommendation{
				Ticker: ticker,
				Action: ActionHold,
				Reason: "no financial metrics available",
			})
			continue
		}

		m := td.Metrics[0]
		score := 0
		if m.PriceToEarningsRatio > 0 && m.PriceToEarningsRatio < 20 {
			score++
		}
		if m.ReturnOnEquity > 0.15 {
			score++
		}
		if m.NetMargin > 0.10 {
			score++
		}
		if m.DebtToEquity >= 0 && m.DebtToEquity < 1.0 {
			score++
		}
		if m.RevenueGrowth > 0.05 {
			score++
		}

		details[ticker] = map[string]any{
			"score":      score,
			"pe_ratio":   m.PriceToEarningsRatio,
			"roe":        m.ReturnOnEquity,
			"net_margin": m.NetMargin,
		}
		scored++

		switch {
		case score >= 4:
			recs = append(recs, Recommendation{
				Ticker:   ticker,
				Action:   ActionBuy,
				Quantity: f.qty,
				Reason:   fmt.Sprintf("strong fundamentals (score %d/5)", score),
			})
		case score <= 1:
			recs = append(recs, Recommendation{
				Ticker:   ticker,
				Action:   ActionSell,
				Quantity: f.qty,
				Reason:   fmt.Sprintf("weak fundamentals (score %d/5)", score),
			})
		default:
			recs = append(recs, Recommendation{
				Ticker: ticker,
				Action: ActionHold,
				Reason: fmt.Sprintf("mixed fundamentals (score %d/5)", score),
			})
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
