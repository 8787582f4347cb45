package engine

import "math"

// ═══════════════════════════════════════════════════════════════════════════════
// PROBABILITY MODEL - random-walk estimate of the Up/Down outcome
// ═══════════════════════════════════════════════════════════════════════════════
//
// Models log-price changes over the remaining window as approximately
// normal with a standard deviation that scales with √time. The strike is
// fixed at window open, so the probability the asset finishes above it is
// just Φ(delta / expectedMove).
//
// Deliberately ignores skew, jump risk and microstructure - over a few
// minutes the Gaussian approximation is good enough for edge detection.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	// Below this expected move the window is effectively decided.
	minExpectedMovePct = 0.001

	// |z| beyond this saturates; clamp instead of evaluating deep tails.
	maxZScore = 4.0
)

// ProbabilityUp estimates the probability that the asset finishes above the
// strike, given the current signed delta from the strike (in percent), the
// seconds remaining until resolution, and the per-minute volatility (percent).
func ProbabilityUp(deltaPct, secondsRemaining, volPerMinute float64) float64 {
	minutesRemaining := secondsRemaining / 60.0
	expectedMovePct := volPerMinute * math.Sqrt(minutesRemaining)

	// No time or volatility left: the outcome is already decided.
	if expectedMovePct < minExpectedMovePct {
		if deltaPct > 0 {
			return 0.999
		}
		return 0.001
	}

	z := deltaPct / expectedMovePct
	switch {
	case z > maxZScore:
		return 0.9999
	case z < -maxZScore:
		return 0.0001
	}

	return NormalCDF(z)
}

// ProbabilityDown is the complement of ProbabilityUp. Computed as 1-up so the
// two always sum to exactly 1.
func ProbabilityDown(probUp float64) float64 {
	return 1.0 - probUp
}
