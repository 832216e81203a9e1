// Package portfolio implements the margin-aware ledger: cash, per-instrument
// positions with cost-basis tracking, and an append-only trade history.
//
// All money arithmetic uses exact decimals; binary floating point is never
// used for cash, prices, or notionals so repeated trades cannot accumulate
// rounding drift.
package portfolio

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"hedgefund-systemv1/internal/errs"
)

// Trade is an immutable record of one executed trade.
type Trade struct {
	Ticker    string          `json:"ticker"`
	Quantity  int64           `json:"quantity"` // signed: positive = buy
	Price     decimal.Decimal `json:"price"`
	Value     decimal.Decimal `json:"value"` // notional = quantity × price
	Timestamp time.Time       `json:"timestamp"`
}

// Portfolio tracks cash and positions for one running strategy instance.
//
// The run loop is the primary writer, but the manual trade endpoint may write
// concurrently, so all mutation happens under the mutex.
type Portfolio struct {
	mu sync.RWMutex

	cash              decimal.Decimal
	initialCash       decimal.Decimal
	marginRequirement decimal.Decimal
	positions         map[string]*Position
	trades            []Trade
	createdAt         time.Time
	lastUpdated       time.Time
}

// New creates a Portfolio with one zero-quantity position per ticker.
// The position key set is fixed for the lifetime of the instance.
func New(initialCash, marginRequirement decimal.Decimal, tickers []string) *Portfolio {
	now := time.Now()
	positions := make(map[string]*Position, len(tickers))
	for _, t := range tickers {
		positions[t] = &Position{Ticker: t}
	}
	return &Portfolio{
		cash:              initialCash,
		initialCash:       initialCash,
		marginRequirement: marginRequirement,
		positions:         positions,
		trades:            make([]Trade, 0, 256),
		createdAt:         now,
		lastUpdated:       now,
	}
}

// InitialCash returns the cash the portfolio was constructed with.
func (pf *Portfolio) InitialCash() decimal.Decimal {
	return pf.initialCash
}

// Cash returns the current cash balance.
func (pf *Portfolio) Cash() decimal.Decimal {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	return pf.cash
}

// locked variants of the derived values; callers hold at least a read lock.

func (pf *Portfolio) totalMarketValueLocked() decimal.Decimal {
	total := decimal.Zero
	for _, p := range pf.positions {
		total = total.Add(p.MarketValue())
	}
	return total
}

func (pf *Portfolio) totalUnrealizedPnLLocked() decimal.Decimal {
	total := decimal.Zero
	for _, p := range pf.positions {
		total = total.Add(p.UnrealizedPnL())
	}
	return total
}

func (pf *Portfolio) availableMarginLocked() decimal.Decimal {
	marginUsed := pf.totalMarketValueLocked().Mul(pf.marginRequirement)
	return pf.cash.Sub(marginUsed)
}

// TotalValue returns cash plus the market value of all positions.
func (pf *Portfolio) TotalValue() decimal.Decimal {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	return pf.cash.Add(pf.totalMarketValueLocked())
}

// AvailableMargin returns cash minus the margin reserved against open
// positions. ExecuteTrade never lets a buy drive this negative.
func (pf *Portfolio) AvailableMargin() decimal.Decimal {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	return pf.availableMarginLocked()
}

// ExecuteTrade applies a single signed trade to the ledger atomically.
//
// Buys require the notional to fit within available margin; sells require
// sufficient held quantity. A rejected trade leaves the ledger bit-for-bit
// unchanged. On a buy the average price is recomputed as the weighted average
// of the prior position cost and the trade notional; on a sell only quantity
// and cash change. The trade notional is debited from (buys) or credited to
// (sells, via the signed quantity) cash, and an immutable trade record is
// appended.
func (pf *Portfolio) ExecuteTrade(ticker string, quantity int64, price decimal.Decimal, timestamp time.Time) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	pos, ok := pf.positions[ticker]
	if !ok {
		return errs.NotFound("ticker %s is not tracked by this portfolio", ticker)
	}
	if quantity == 0 {
		return errs.Validation("trade quantity must be non-zero")
	}

	notional := decimal.NewFromInt(quantity).Mul(price)

	if quantity > 0 {
		if notional.GreaterThan(pf.availableMarginLocked()) {
			return errs.Trading("insufficient funds for trade: %s %d @ %s", ticker, quantity, price)
		}
		newQty := pos.Quantity + quantity
		priorCost := pos.AveragePrice.Mul(decimal.NewFromInt(pos.Quantity))
		pos.AveragePrice = priorCost.Add(notional).Div(decimal.NewFromInt(newQty))
		pos.Quantity = newQty
	} else {
		if -quantity > pos.Quantity {
			return errs.Trading("insufficient position for trade: %s %d held, sell %d requested", ticker, pos.Quantity, -quantity)
		}
		pos.Quantity += quantity
	}

	pf.cash = pf.cash.Sub(notional)

	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	pf.trades = append(pf.trades, Trade{
		Ticker:    ticker,
		Quantity:  quantity,
		Price:     price,
		Value:     notional,
		Timestamp: timestamp,
	})
	pf.lastUpdated = time.Now()
	return nil
}

// UpdatePrices overwrites the current price for every tracked ticker present
// in the update. Unknown tickers are silently ignored. LastUpdated is bumped
// even when the map is empty.
func (pf *Portfolio) UpdatePrices(prices map[string]decimal.Decimal) {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	for ticker, price := range prices {
		if pos, ok := pf.positions[ticker]; ok {
			pos.CurrentPrice = price
		}
	}
	pf.lastUpdated = time.Now()
}

// Trades returns a copy of the trade history in execution order.
func (pf *Portfolio) Trades() []Trade {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	cp := make([]Trade, len(pf.trades))
	copy(cp, pf.trades)
	return cp
}

// LastUpdated returns the time of the last trade or price update.
func (pf *Portfolio) LastUpdated() time.Time {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	return pf.lastUpdated
}

// Snapshot is the full serialized view of the ledger. Monetary fields encode
// as exact decimal strings, not float approximations.
type Snapshot struct {
	Cash               decimal.Decimal             `json:"cash"`
	TotalValue         decimal.Decimal             `json:"total_value"`
	TotalMarketValue   decimal.Decimal             `json:"total_market_value"`
	TotalUnrealizedPnL decimal.Decimal             `json:"total_unrealized_pnl"`
	MarginUsed         decimal.Decimal             `json:"margin_used"`
	AvailableMargin    decimal.Decimal             `json:"available_margin"`
	Positions          map[string]PositionSnapshot `json:"positions"`
	Trades             []Trade                     `json:"trades"`
	CreatedAt          time.Time                   `json:"created_at"`
	LastUpdated        time.Time                   `json:"last_updated"`
}

// Snapshot returns a consistent point-in-time view of the whole ledger.
func (pf *Portfolio) Snapshot() Snapshot {
	pf.mu.RLock()
	defer pf.mu.RUnlock()

	positions := make(map[string]PositionSnapshot, len(pf.positions))
	for ticker, pos := range pf.positions {
		positions[ticker] = pos.snapshot()
	}
	trades := make([]Trade, len(pf.trades))
	copy(trades, pf.trades)

	totalMV := pf.totalMarketValueLocked()
	marginUsed := totalMV.Mul(pf.marginRequirement)

	return Snapshot{
		Cash:               pf.cash,
		TotalValue:         pf.cash.Add(totalMV),
		TotalMarketValue:   totalMV,
		TotalUnrealizedPnL: pf.totalUnrealizedPnLLocked(),
		MarginUsed:         marginUsed,
		AvailableMargin:    pf.cash.Sub(marginUsed),
		Positions:          positions,
		Trades:             trades,
		CreatedAt:          pf.createdAt,
		LastUpdated:        pf.lastUpdated,
	}
}
