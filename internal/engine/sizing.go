package engine

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/polyedge/polyedge/internal/positions"
)

// ═══════════════════════════════════════════════════════════════════════════════
// POSITION SIZING - fractional Kelly with cap, liquidity and correlation clips
// ═══════════════════════════════════════════════════════════════════════════════
//
// For a binary share bought at price p that pays $1 on a win, an edge of e
// gives fullKelly = e / (1 - p). A configured fraction of that (0.25 by
// default) is applied to the bankroll, then clipped in a fixed order:
//
//   kelly -> max position cap -> liquidity cap -> correlation throttle
//
// The reason string always names the tightest constraint actually hit, and
// the minimum-size check runs LAST so a throttled trade can be zeroed out
// even when the unthrottled size would have cleared the minimum.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Correlation throttle: once this many same-direction positions are open, new
// candidates in that direction are cut in half. A coarse proxy - the three
// tradeable assets are treated as fully correlated rather than modeled with
// a covariance matrix.
const (
	correlationMaxPositions = 2
	correlationFactor       = 0.5
)

// PositionSizeResult is the outcome of one sizing call. A zero SizeUSD means
// "do not trade"; Reason names the constraint that bound the result.
type PositionSizeResult struct {
	SizeUSD       decimal.Decimal // rounded to cents, 0 = no trade
	KellyFraction float64         // fractional Kelly actually applied
	Reason        string
}

// Tradeable reports whether the sizer recommends a nonzero position.
func (r PositionSizeResult) Tradeable() bool {
	return r.SizeUSD.IsPositive()
}

// CalculateSize converts an edge and share price into a USD position size.
// Liquidity is the visible book depth for the side being bought; direction
// and the registry feed the correlation throttle.
func CalculateSize(edge, price, liquidity float64, direction Side, bankroll float64, cfg Config, reg *positions.Registry) PositionSizeResult {
	if edge <= 0 || math.IsNaN(edge) {
		return PositionSizeResult{SizeUSD: decimal.Zero, Reason: "no edge"}
	}
	if price <= 0 || price >= 1 || math.IsNaN(price) {
		return PositionSizeResult{SizeUSD: decimal.Zero, Reason: "invalid price"}
	}

	fullKelly := edge / (1.0 - price)
	fractionalKelly := fullKelly * cfg.KellyFraction

	sizeUSD := bankroll * fractionalKelly
	reason := fmt.Sprintf("kelly %.2f%% of bankroll", fractionalKelly*100)

	// Absolute cap. >= so a size landing exactly on the cap reports the cap
	// as the binding constraint.
	if sizeUSD >= cfg.MaxPositionSize {
		sizeUSD = cfg.MaxPositionSize
		reason = fmt.Sprintf("capped at max position $%.2f", cfg.MaxPositionSize)
	}

	// Liquidity cap: never consume more than the configured share of depth.
	if liquidity > 0 {
		liqCap := liquidity * cfg.MaxLiquidityPct
		if liqCap > 0 && liqCap < sizeUSD {
			sizeUSD = liqCap
			reason = fmt.Sprintf("liquidity capped at %.0f%% of $%.2f depth", cfg.MaxLiquidityPct*100, liquidity)
		}
	}

	// Correlation throttle across assets.
	if reg != nil {
		if n := reg.CountDirection(string(direction)); n >= correlationMaxPositions {
			sizeUSD *= correlationFactor
			reason = fmt.Sprintf("halved: %d %s positions already open", n, direction)
		}
	}

	// Minimum check runs after every clip, including the throttle.
	if sizeUSD < cfg.MinPositionSize {
		return PositionSizeResult{
			SizeUSD:       decimal.Zero,
			KellyFraction: fractionalKelly,
			Reason:        fmt.Sprintf("below minimum $%.2f", cfg.MinPositionSize),
		}
	}

	return PositionSizeResult{
		SizeUSD:       decimal.NewFromFloat(sizeUSD).Round(2),
		KellyFraction: fractionalKelly,
		Reason:        reason,
	}
}
