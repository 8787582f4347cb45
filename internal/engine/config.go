package engine

import "time"

// Config holds the evaluation and sizing parameters. Everything here is a
// plain value so evaluations are deterministic given identical inputs.
type Config struct {
	// Entry thresholds
	MinEdge          float64       // minimum edge to recommend a side, e.g. 0.05
	MinTimeRemaining time.Duration // skip windows closer to expiry than this
	MaxTimeRemaining time.Duration // skip windows further from expiry than this

	// Kelly sizing
	KellyFraction   float64 // fraction of full Kelly applied, e.g. 0.25
	MaxPositionSize float64 // absolute USD cap per position
	MinPositionSize float64 // below this the trade is skipped entirely
	MaxLiquidityPct float64 // max share of visible book depth to consume

	// Bankroll proxy: sizing uses BaseTradeSize * BankrollMultiplier rather
	// than a live balance read. See AssumedLiquidity for the matching
	// orderbook-depth placeholder.
	BaseTradeSize      float64
	BankrollMultiplier float64

	// AssumedLiquidity is used when a price snapshot carries no book depth.
	AssumedLiquidity float64
}

// DefaultConfig returns the parameters the bot ships with.
func DefaultConfig() Config {
	return Config{
		MinEdge:            0.05,
		MinTimeRemaining:   30 * time.Second,
		MaxTimeRemaining:   300 * time.Second,
		KellyFraction:      0.25,
		MaxPositionSize:    100.0,
		MinPositionSize:    1.0,
		MaxLiquidityPct:    0.25,
		BaseTradeSize:      10.0,
		BankrollMultiplier: 20.0,
		AssumedLiquidity:   1000.0,
	}
}

// Bankroll returns the USD bankroll the Kelly sizer works against.
func (c Config) Bankroll() float64 {
	return c.BaseTradeSize * c.BankrollMultiplier
}
