package risk

import "errors"

// ═══════════════════════════════════════════════════════════════════════════════
// VALUE FILTERS - cheap sanity checks before committing capital
// ═══════════════════════════════════════════════════════════════════════════════
//
// Applied after an actionable evaluation, before execution. An entry above
// 65¢ has too little payout left, an upside under 30% isn't worth the
// resolution risk, and a wide spread means the quote is stale or the book
// is thin.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	MaxEntryPrice = 0.65 // never buy shares above 65¢
	MinUpside     = 0.30 // require >= 30% potential upside
	MaxSpread     = 0.10 // max acceptable bid-ask spread
)

var (
	ErrPriceTooHigh = errors.New("entry price too high")
	ErrUpsideTooLow = errors.New("upside too low")
	ErrSpreadWide   = errors.New("spread too wide")
)

// Upside returns the potential gain relative to the entry price: a 40¢ share
// paying $1 has (1-0.40)/0.40 = 150% upside. Zero for degenerate prices.
func Upside(price float64) float64 {
	if price <= 0 || price >= 1 {
		return 0
	}
	return (1 - price) / price
}

// Spread returns the relative bid-ask spread. A bookless market (no bids)
// counts as 100% spread.
func Spread(bid, ask float64) float64 {
	if bid <= 0 {
		return 1
	}
	return (ask - bid) / bid
}

// CheckValue verifies an entry passes the value filters, returning the
// computed upside and spread alongside the first violated rule.
func CheckValue(entryPrice, bid, ask float64) (upside, spread float64, err error) {
	if entryPrice > MaxEntryPrice {
		return 0, 0, ErrPriceTooHigh
	}

	upside = Upside(entryPrice)
	if upside < MinUpside {
		return upside, 0, ErrUpsideTooLow
	}

	spread = Spread(bid, ask)
	if spread > MaxSpread {
		return upside, spread, ErrSpreadWide
	}

	return upside, spread, nil
}
