package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hedgefund-systemv1/internal/errs"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestPortfolio() *Portfolio {
	return New(dec("100000"), decimal.Zero, []string{"AAPL"})
}

func TestExecuteTrade_BuySellScenario(t *testing.T) {
	pf := newTestPortfolio()

	// Buy 10 @ 150
	if err := pf.ExecuteTrade("AAPL", 10, dec("150"), time.Now()); err != nil {
		t.Fatalf("buy 10@150: %v", err)
	}
	if got := pf.Cash(); !got.Equal(dec("98500")) {
		t.Errorf("cash after first buy = %s, want 98500", got)
	}
	snap := pf.Snapshot()
	pos := snap.Positions["AAPL"]
	if pos.Quantity != 10 {
		t.Errorf("quantity = %d, want 10", pos.Quantity)
	}
	if !pos.AveragePrice.Equal(dec("150")) {
		t.Errorf("average price = %s, want 150", pos.AveragePrice)
	}

	// Buy 10 more @ 170 -> weighted average 160
	if err := pf.ExecuteTrade("AAPL", 10, dec("170"), time.Now()); err != nil {
		t.Fatalf("buy 10@170: %v", err)
	}
	snap = pf.Snapshot()
	pos = snap.Positions["AAPL"]
	if pos.Quantity != 20 {
		t.Errorf("quantity = %d, want 20", pos.Quantity)
	}
	if !pos.AveragePrice.Equal(dec("160")) {
		t.Errorf("average price = %s, want 160", pos.AveragePrice)
	}
	if !snap.Cash.Equal(dec("96800")) {
		t.Errorf("cash = %s, want 96800", snap.Cash)
	}

	// Sell 15 @ 180 -> quantity 5, avg unchanged, cash credited 2700
	if err := pf.ExecuteTrade("AAPL", -15, dec("180"), time.Now()); err != nil {
		t.Fatalf("sell 15@180: %v", err)
	}
	snap = pf.Snapshot()
	pos = snap.Positions["AAPL"]
	if pos.Quantity != 5 {
		t.Errorf("quantity = %d, want 5", pos.Quantity)
	}
	if !pos.AveragePrice.Equal(dec("160")) {
		t.Errorf("average price after sell = %s, want 160 (unchanged)", pos.AveragePrice)
	}
	if !snap.Cash.Equal(dec("99500")) {
		t.Errorf("cash = %s, want 99500", snap.Cash)
	}
	if len(snap.Trades) != 3 {
		t.Errorf("trade count = %d, want 3", len(snap.Trades))
	}
}

func TestExecuteTrade_RejectionIsAtomic(t *testing.T) {
	pf := newTestPortfolio()
	if err := pf.ExecuteTrade("AAPL", 10, dec("150"), time.Now()); err != nil {
		t.Fatalf("setup buy: %v", err)
	}
	before := pf.Snapshot()

	// Buy beyond available margin
	err := pf.ExecuteTrade("AAPL", 10000, dec("150"), time.Now())
	if err == nil {
		t.Fatal("expected rejection for oversized buy")
	}
	if errs.CodeOf(err) != errs.CodeTrading {
		t.Errorf("error code = %s, want TRADING_ERROR", errs.CodeOf(err))
	}

	// Sell more than held
	if err := pf.ExecuteTrade("AAPL", -11, dec("150"), time.Now()); err == nil {
		t.Fatal("expected rejection for oversized sell")
	}

	after := pf.Snapshot()
	if !after.Cash.Equal(before.Cash) {
		t.Errorf("cash changed on rejected trade: %s -> %s", before.Cash, after.Cash)
	}
	p0, p1 := before.Positions["AAPL"], after.Positions["AAPL"]
	if p0.Quantity != p1.Quantity || !p0.AveragePrice.Equal(p1.AveragePrice) {
		t.Errorf("position changed on rejected trade: %+v -> %+v", p0, p1)
	}
	if len(after.Trades) != len(before.Trades) {
		t.Errorf("trade appended on rejected trade")
	}
}

func TestExecuteTrade_UnknownTicker(t *testing.T) {
	pf := newTestPortfolio()
	err := pf.ExecuteTrade("MSFT", 1, dec("100"), time.Now())
	if err == nil {
		t.Fatal("expected error for untracked ticker")
	}
	if errs.CodeOf(err) != errs.CodeNotFound {
		t.Errorf("error code = %s, want NOT_FOUND", errs.CodeOf(err))
	}
}

func TestExecuteTrade_MarginRequirement(t *testing.T) {
	// 50% margin requirement: buying reserves half the market value.
	pf := New(dec("10000"), dec("0.5"), []string{"AAPL"})
	pf.UpdatePrices(map[string]decimal.Decimal{"AAPL": dec("100")})

	if err := pf.ExecuteTrade("AAPL", 50, dec("100"), time.Now()); err != nil {
		t.Fatalf("buy within margin: %v", err)
	}
	if pf.AvailableMargin().IsNegative() {
		t.Errorf("available margin went negative: %s", pf.AvailableMargin())
	}
}

func TestAvailableMargin_NeverNegativeAfterValidBuys(t *testing.T) {
	pf := New(dec("100000"), dec("0.25"), []string{"AAPL", "MSFT"})
	pf.UpdatePrices(map[string]decimal.Decimal{"AAPL": dec("150"), "MSFT": dec("300")})

	buys := []struct {
		ticker string
		qty    int64
		price  string
	}{
		{"AAPL", 100, "150"},
		{"MSFT", 50, "300"},
		{"AAPL", 200, "155"},
		{"MSFT", 100, "310"},
		{"AAPL", 500, "149"},
	}
	for _, b := range buys {
		err := pf.ExecuteTrade(b.ticker, b.qty, dec(b.price), time.Now())
		if err != nil {
			continue // rejected trades must not mutate, checked elsewhere
		}
		if pf.AvailableMargin().IsNegative() {
			t.Fatalf("available margin negative after %s %d@%s: %s",
				b.ticker, b.qty, b.price, pf.AvailableMargin())
		}
	}
}

func TestUpdatePrices_EmptyMapBumpsLastUpdated(t *testing.T) {
	pf := newTestPortfolio()
	before := pf.LastUpdated()
	time.Sleep(5 * time.Millisecond)

	pf.UpdatePrices(map[string]decimal.Decimal{})

	if !pf.LastUpdated().After(before) {
		t.Error("LastUpdated not bumped by empty price update")
	}
	snap := pf.Snapshot()
	if !snap.TotalMarketValue.IsZero() {
		t.Errorf("market value changed by empty update: %s", snap.TotalMarketValue)
	}
}

func TestUpdatePrices_IgnoresUnknownTickers(t *testing.T) {
	pf := newTestPortfolio()
	pf.UpdatePrices(map[string]decimal.Decimal{
		"AAPL": dec("151.25"),
		"TSLA": dec("900"),
	})
	snap := pf.Snapshot()
	if !snap.Positions["AAPL"].CurrentPrice.Equal(dec("151.25")) {
		t.Errorf("AAPL price = %s, want 151.25", snap.Positions["AAPL"].CurrentPrice)
	}
	if _, ok := snap.Positions["TSLA"]; ok {
		t.Error("unknown ticker TSLA was added to positions")
	}
}

func TestAveragePrice_ExactDecimal(t *testing.T) {
	// 3 @ 0.1 then 3 @ 0.2 must give exactly 0.15, where a float ledger drifts.
	pf := New(dec("1000"), decimal.Zero, []string{"AAPL"})
	if err := pf.ExecuteTrade("AAPL", 3, dec("0.1"), time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := pf.ExecuteTrade("AAPL", 3, dec("0.2"), time.Now()); err != nil {
		t.Fatal(err)
	}
	got := pf.Snapshot().Positions["AAPL"].AveragePrice
	if !got.Equal(dec("0.15")) {
		t.Errorf("average price = %s, want exactly 0.15", got)
	}
}
