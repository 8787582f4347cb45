package engine

import (
	"fmt"
	"time"

	"github.com/polyedge/polyedge/internal/polymarket"
	"github.com/polyedge/polyedge/internal/positions"
)

// ═══════════════════════════════════════════════════════════════════════════════
// MARKET EVALUATOR - one market, one instant, one recommendation
// ═══════════════════════════════════════════════════════════════════════════════
//
// Pure orchestration over the probability model, edge calculator and sizer.
// No I/O, no retries, no hidden state: the only inputs beyond the arguments
// are the injected price/volatility sources and the position registry, all
// externally maintained. Evaluating twice with identical inputs (including
// now) produces identical output.
//
// Every tick ends in exactly one terminal state; most ticks of most markets
// end in TooEarly or NoEdge, which is normal operation, not an error.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Side is a tradeable outcome of an Up/Down window.
type Side string

const (
	SideUp   Side = "UP"
	SideDown Side = "DOWN"
)

// State is the terminal state of an evaluation. Actionable is the only state
// from which the execution layer should submit an order.
type State int

const (
	StateMissingData State = iota
	StateTooLate
	StateTooEarly
	StateNoEdge
	StateBelowMinimum
	StateActionable
)

func (s State) String() string {
	switch s {
	case StateMissingData:
		return "missing_data"
	case StateTooLate:
		return "too_late"
	case StateTooEarly:
		return "too_early"
	case StateNoEdge:
		return "no_edge"
	case StateBelowMinimum:
		return "below_minimum"
	case StateActionable:
		return "actionable"
	default:
		return "unknown"
	}
}

// PriceSource supplies the current underlying price for an asset, fresh
// within the feed's staleness bound.
type PriceSource interface {
	RealTimePrice(asset string) (float64, bool)
}

// VolatilitySource supplies a per-minute volatility percentage for an asset
// over a lookback window.
type VolatilitySource interface {
	VolatilityPerMinute(asset string, windowMinutes int) float64
}

// Evaluation is the full output of one evaluator invocation. Immutable once
// produced. State is authoritative; Reason is derived text for logging.
type Evaluation struct {
	Asset       string
	ConditionID string
	State       State

	CurrentPrice float64
	StrikePrice  float64
	Delta        float64 // signed, in underlying units
	DeltaPct     float64 // signed percent vs strike

	ProbUp   float64
	ProbDown float64
	AskUp    float64
	AskDown  float64
	EdgeUp   float64
	EdgeDown float64

	SecondsRemaining float64
	Volatility       float64 // per-minute %, as used by the model

	// Side and Edge are set for NoEdge's complement: any state reached
	// after side selection. Size is nil unless sizing produced a result.
	Side Side
	Edge float64
	Size *PositionSizeResult

	Reason      string
	EvaluatedAt time.Time
}

// Evaluator scores markets against the random-walk model.
type Evaluator struct {
	cfg    Config
	prices PriceSource
	vol    VolatilitySource
	reg    *positions.Registry
}

// New creates an evaluator with injected collaborators. reg may be nil, in
// which case the correlation throttle never fires.
func New(cfg Config, prices PriceSource, vol VolatilitySource, reg *positions.Registry) *Evaluator {
	return &Evaluator{cfg: cfg, prices: prices, vol: vol, reg: reg}
}

// Evaluate scores one market against one price snapshot at one instant.
func (e *Evaluator) Evaluate(m *polymarket.Market, snap *polymarket.MarketPrices, now time.Time) Evaluation {
	ev := Evaluation{
		Asset:       m.Asset,
		ConditionID: m.ConditionID,
		EvaluatedAt: now,
	}

	secondsRemaining := m.EndDate.Sub(now).Seconds()
	if secondsRemaining < 0 {
		secondsRemaining = 0
	}
	ev.SecondsRemaining = secondsRemaining

	current, ok := e.prices.RealTimePrice(m.Asset)
	if !ok || current <= 0 || !m.HasStrike() || snap == nil {
		ev.State = StateMissingData
		ev.Reason = "missing data: need live price, strike and market snapshot"
		return ev
	}
	strike := m.StrikePrice.InexactFloat64()
	ev.CurrentPrice = current
	ev.StrikePrice = strike

	if secondsRemaining < e.cfg.MinTimeRemaining.Seconds() {
		ev.State = StateTooLate
		ev.Reason = fmt.Sprintf("too late: %.0fs remaining, need %.0fs", secondsRemaining, e.cfg.MinTimeRemaining.Seconds())
		return ev
	}
	if secondsRemaining > e.cfg.MaxTimeRemaining.Seconds() {
		ev.State = StateTooEarly
		ev.Reason = fmt.Sprintf("too early: %.0fs remaining, max %.0fs", secondsRemaining, e.cfg.MaxTimeRemaining.Seconds())
		return ev
	}

	ev.Delta = current - strike
	ev.DeltaPct = ev.Delta / strike * 100.0

	ev.Volatility = e.vol.VolatilityPerMinute(m.Asset, m.WindowMinutes)

	ev.ProbUp = ProbabilityUp(ev.DeltaPct, secondsRemaining, ev.Volatility)
	ev.ProbDown = ProbabilityDown(ev.ProbUp)

	ev.AskUp = snap.UpAsk.InexactFloat64()
	ev.AskDown = snap.DownAsk.InexactFloat64()
	ev.EdgeUp, ev.EdgeDown = Edges(ev.ProbUp, ev.ProbDown, ev.AskUp, ev.AskDown)

	// Side selection: UP only on strictly greater edge, DOWN otherwise if it
	// clears the threshold.
	var side Side
	var edge, ask float64
	switch {
	case ev.EdgeUp > ev.EdgeDown && ev.EdgeUp > e.cfg.MinEdge:
		side, edge, ask = SideUp, ev.EdgeUp, ev.AskUp
	case ev.EdgeDown > e.cfg.MinEdge:
		side, edge, ask = SideDown, ev.EdgeDown, ev.AskDown
	default:
		ev.State = StateNoEdge
		ev.Reason = fmt.Sprintf("no edge: up %.1f%% down %.1f%%, need %.1f%%", ev.EdgeUp*100, ev.EdgeDown*100, e.cfg.MinEdge*100)
		return ev
	}
	ev.Side = side
	ev.Edge = edge

	liquidity := snap.BookDepth.InexactFloat64()
	if liquidity <= 0 {
		liquidity = e.cfg.AssumedLiquidity
	}

	size := CalculateSize(edge, ask, liquidity, side, e.cfg.Bankroll(), e.cfg, e.reg)
	if !size.Tradeable() {
		// Side and edge are still reported; the sizer's own reason stands.
		ev.State = StateBelowMinimum
		ev.Reason = size.Reason
		return ev
	}

	ev.Size = &size
	ev.State = StateActionable
	ev.Reason = fmt.Sprintf("buy %s: edge %.1f%%, size $%s (%s)", side, edge*100, size.SizeUSD.StringFixed(2), size.Reason)
	return ev
}

// ShouldTrade reports whether an evaluation warrants submitting an order.
func ShouldTrade(ev Evaluation) bool {
	return ev.State == StateActionable && ev.Side != "" && ev.Size != nil && ev.Size.Tradeable()
}

// Summary renders a one-line human-readable view for logs and alerts.
func Summary(ev Evaluation) string {
	switch ev.State {
	case StateMissingData:
		return fmt.Sprintf("[%s] %s", ev.Asset, ev.Reason)
	case StateTooLate, StateTooEarly:
		return fmt.Sprintf("[%s] %s (%s)", ev.Asset, ev.Reason, ev.State)
	case StateActionable:
		return fmt.Sprintf("[%s] %s | spot %.2f vs strike %.2f (%+.3f%%) | P(up)=%.3f vol=%.2f%%/min %.0fs left",
			ev.Asset, ev.Reason, ev.CurrentPrice, ev.StrikePrice, ev.DeltaPct, ev.ProbUp, ev.Volatility, ev.SecondsRemaining)
	default:
		return fmt.Sprintf("[%s] %s | spot %.2f vs strike %.2f (%+.3f%%) | edges up %.1f%% down %.1f%%",
			ev.Asset, ev.Reason, ev.CurrentPrice, ev.StrikePrice, ev.DeltaPct, ev.EdgeUp*100, ev.EdgeDown*100)
	}
}
