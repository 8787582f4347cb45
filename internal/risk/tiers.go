// Package risk applies session-level policy on top of the evaluator:
// adaptive risk tiers driven by session P&L, and pre-trade value filters.
package risk

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ADAPTIVE RISK TIERS - scale exposure with session performance
// ═══════════════════════════════════════════════════════════════════════════════
//
// The session starts Moderate. A $10 profit promotes to Aggressive, a $10
// loss demotes to Conservative. Tiers scale the per-trade size multiplier,
// max open positions per asset and total exposure.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Tier is a session risk level.
type Tier int

const (
	TierConservative Tier = iota
	TierModerate
	TierAggressive
)

// P&L thresholds for tier transitions, in cents.
const (
	profitThresholdCents int64 = 1000  // +$10 -> Aggressive
	lossThresholdCents   int64 = -1000 // -$10 -> Conservative
)

func (t Tier) String() string {
	switch t {
	case TierConservative:
		return "CONSERVATIVE"
	case TierAggressive:
		return "AGGRESSIVE"
	default:
		return "MODERATE"
	}
}

// SizeMultiplier scales the sizer's recommended USD amount.
func (t Tier) SizeMultiplier() float64 {
	switch t {
	case TierConservative:
		return 0.5
	case TierAggressive:
		return 1.5
	default:
		return 1.0
	}
}

// MaxPositionsPerAsset limits concurrent open positions on one asset.
func (t Tier) MaxPositionsPerAsset() int {
	switch t {
	case TierConservative:
		return 2
	case TierAggressive:
		return 4
	default:
		return 3
	}
}

// ExposurePct is the share of the bankroll allowed in open positions.
func (t Tier) ExposurePct() float64 {
	switch t {
	case TierConservative:
		return 0.25
	case TierAggressive:
		return 0.75
	default:
		return 0.50
	}
}

// Manager tracks session P&L and derives the current tier. P&L is kept in
// atomic cents so concurrent settlement callbacks never race.
type Manager struct {
	sessionPnLCents atomic.Int64
	bankroll        float64
}

// NewManager creates a manager for the given session bankroll.
func NewManager(bankroll float64) *Manager {
	m := &Manager{bankroll: bankroll}
	log.Info().
		Float64("bankroll", bankroll).
		Str("tier", TierModerate.String()).
		Msg("📊 Risk manager initialized")
	return m
}

// RecordPnL adds a settled trade's P&L (dollars) and returns the new tier.
func (m *Manager) RecordPnL(pnlDollars float64) Tier {
	cents := int64(pnlDollars * 100)
	total := m.sessionPnLCents.Add(cents)

	tier := tierFor(total)
	log.Info().
		Float64("session_pnl", float64(total)/100).
		Str("tier", tier.String()).
		Msg("📊 Session P&L updated")
	return tier
}

// CurrentTier returns the tier implied by the running session P&L.
func (m *Manager) CurrentTier() Tier {
	return tierFor(m.sessionPnLCents.Load())
}

// SessionPnL returns the session P&L in dollars.
func (m *Manager) SessionPnL() float64 {
	return float64(m.sessionPnLCents.Load()) / 100
}

// MaxExposure returns the USD exposure ceiling for the current tier.
func (m *Manager) MaxExposure() float64 {
	return m.bankroll * m.CurrentTier().ExposurePct()
}

func tierFor(pnlCents int64) Tier {
	switch {
	case pnlCents >= profitThresholdCents:
		return TierAggressive
	case pnlCents <= lossThresholdCents:
		return TierConservative
	default:
		return TierModerate
	}
}
