package portfolio

import (
	"math"
	"testing"
	"time"
)

func tradeWithValue(value string) Trade {
	return Trade{Ticker: "AAPL", Quantity: 1, Price: dec(value), Value: dec(value), Timestamp: time.Now()}
}

func TestCalculateMetrics_TotalReturn(t *testing.T) {
	m := CalculateMetrics(dec("100000"), dec("110000"), nil)
	if math.Abs(m.TotalReturn-0.1) > 1e-12 {
		t.Errorf("total return = %v, want 0.1", m.TotalReturn)
	}
}

func TestSharpeRatio_FewerThanTwoTrades(t *testing.T) {
	m := CalculateMetrics(dec("100000"), dec("100000"), []Trade{tradeWithValue("1500")})
	if m.SharpeRatio != 0 {
		t.Errorf("sharpe with one trade = %v, want 0", m.SharpeRatio)
	}
}

func TestSharpeRatio_ZeroVariance(t *testing.T) {
	trades := []Trade{
		tradeWithValue("1000"),
		tradeWithValue("1000"),
		tradeWithValue("1000"),
	}
	m := CalculateMetrics(dec("100000"), dec("100000"), trades)
	if m.SharpeRatio != 0 {
		t.Errorf("sharpe with zero variance = %v, want 0", m.SharpeRatio)
	}
}

func TestSharpeRatio_KnownSequence(t *testing.T) {
	// Deltas: (1200-1000)/1000 = 0.2, (900-1200)/1200 = -0.25
	// mean = -0.025, sample stddev = sqrt(((0.225)^2 + (-0.225)^2) / 1) -- n-1 = 1
	trades := []Trade{
		tradeWithValue("1000"),
		tradeWithValue("1200"),
		tradeWithValue("900"),
	}
	deltas := []float64{0.2, -0.25}
	mean := (deltas[0] + deltas[1]) / 2
	variance := ((deltas[0]-mean)*(deltas[0]-mean) + (deltas[1]-mean)*(deltas[1]-mean)) / 1
	want := (mean - 0.02) / math.Sqrt(variance)

	m := CalculateMetrics(dec("100000"), dec("100000"), trades)
	if math.Abs(m.SharpeRatio-want) > 1e-12 {
		t.Errorf("sharpe = %v, want %v", m.SharpeRatio, want)
	}
}

func TestMaxDrawdown_WorkedExample(t *testing.T) {
	// Peak starts at initial cash 1000. Trade values: 800 (dd 0.2),
	// 1200 (new peak), 600 (dd 0.5).
	trades := []Trade{
		tradeWithValue("800"),
		tradeWithValue("1200"),
		tradeWithValue("600"),
	}
	m := CalculateMetrics(dec("1000"), dec("1000"), trades)
	if math.Abs(m.MaxDrawdown-0.5) > 1e-12 {
		t.Errorf("max drawdown = %v, want 0.5", m.MaxDrawdown)
	}
}

func TestMaxDrawdown_MonotonicUnderAppends(t *testing.T) {
	trades := []Trade{
		tradeWithValue("900"),
		tradeWithValue("1100"),
		tradeWithValue("700"),
		tradeWithValue("1300"),
		tradeWithValue("650"),
		tradeWithValue("1250"),
	}
	prev := 0.0
	for i := 1; i <= len(trades); i++ {
		m := CalculateMetrics(dec("1000"), dec("1000"), trades[:i])
		if m.MaxDrawdown < prev {
			t.Fatalf("drawdown decreased at prefix %d: %v -> %v", i, prev, m.MaxDrawdown)
		}
		prev = m.MaxDrawdown
	}
}
