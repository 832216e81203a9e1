package portfolio

import "github.com/shopspring/decimal"

// Position represents holdings in a single tracked instrument.
//
// Quantity is a signed unit count (positive = long). AveragePrice is the
// weighted-average cost basis of the current quantity; it is recomputed on
// buys and left untouched on sells. CurrentPrice is the last observed market
// price and moves independently of trades.
type Position struct {
	Ticker       string          `json:"ticker"`
	Quantity     int64           `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
}

// MarketValue returns quantity × current price.
func (p *Position) MarketValue() decimal.Decimal {
	return decimal.NewFromInt(p.Quantity).Mul(p.CurrentPrice)
}

// UnrealizedPnL returns market value minus cost of the current quantity.
func (p *Position) UnrealizedPnL() decimal.Decimal {
	return p.MarketValue().Sub(decimal.NewFromInt(p.Quantity).Mul(p.AveragePrice))
}

// PositionSnapshot is the serialized form of a Position with derived fields
// rendered as exact decimals.
type PositionSnapshot struct {
	Ticker        string          `json:"ticker"`
	Quantity      int64           `json:"quantity"`
	AveragePrice  decimal.Decimal `json:"average_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

func (p *Position) snapshot() PositionSnapshot {
	return PositionSnapshot{
		Ticker:        p.Ticker,
		Quantity:      p.Quantity,
		AveragePrice:  p.AveragePrice,
		CurrentPrice:  p.CurrentPrice,
		MarketValue:   p.MarketValue(),
		UnrealizedPnL: p.UnrealizedPnL(),
	}
}
