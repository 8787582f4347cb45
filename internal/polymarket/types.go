// Package polymarket provides Gamma API market discovery and CLOB price
// fetching for crypto Up/Down prediction windows.
package polymarket

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market is one binary Up/Down prediction window.
//
// StrikePrice (the "price to beat") is nil until Polymarket publishes it at
// window open; discovery fills it in asynchronously. Once the window closes
// the record is no longer updated.
type Market struct {
	ID          string
	ConditionID string
	Question    string
	Slug        string
	Asset       string // BTC, ETH, SOL

	UpTokenID   string
	DownTokenID string

	// StrikePrice is nullable: markets are discovered before the exchange
	// publishes the price to beat.
	StrikePrice *decimal.Decimal

	StartDate     time.Time
	EndDate       time.Time
	WindowMinutes int // 15, 60, ...

	Volume decimal.Decimal
	Active bool
	Closed bool

	LastUpdated time.Time
}

// WindowType returns a short label for the market's window length.
func (m *Market) WindowType() string {
	switch m.WindowMinutes {
	case 60:
		return "60-MIN"
	default:
		return "15-MIN"
	}
}

// HasStrike reports whether the price to beat has been published.
func (m *Market) HasStrike() bool {
	return m.StrikePrice != nil && m.StrikePrice.IsPositive()
}

// MarketPrices is a snapshot of best bid/ask for both outcome tokens.
// Snapshots are immutable; a newer fetch supersedes rather than mutates.
type MarketPrices struct {
	UpBid   decimal.Decimal
	UpAsk   decimal.Decimal
	DownBid decimal.Decimal
	DownAsk decimal.Decimal

	// BookDepth is the visible USD depth near the top of book, zero when
	// the orderbook response carried no sizes.
	BookDepth decimal.Decimal

	FetchedAt time.Time
}

// UpMid returns the mid price for the Up token.
func (p *MarketPrices) UpMid() decimal.Decimal {
	return p.UpBid.Add(p.UpAsk).Div(decimal.NewFromInt(2))
}

// DownMid returns the mid price for the Down token.
func (p *MarketPrices) DownMid() decimal.Decimal {
	return p.DownBid.Add(p.DownAsk).Div(decimal.NewFromInt(2))
}
