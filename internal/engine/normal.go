package engine

import "math"

// ═══════════════════════════════════════════════════════════════════════════════
// STANDARD NORMAL CDF - closed-form rational approximation
// ═══════════════════════════════════════════════════════════════════════════════
//
// Abramowitz & Stegun 7.1.26 approximation of erf, max error ~1.5e-7.
// Deterministic and allocation-free, which keeps Evaluate bit-identical
// for identical inputs. The odd symmetry of erf gives Φ(z) + Φ(-z) = 1.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	erfA1 = 0.254829592
	erfA2 = -0.284496736
	erfA3 = 1.421413741
	erfA4 = -1.453152027
	erfA5 = 1.061405429
	erfP  = 0.3275911
)

// erfApprox evaluates erf(x) via the A&S 7.1.26 polynomial.
func erfApprox(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}

	t := 1.0 / (1.0 + erfP*x)
	poly := t * (erfA1 + t*(erfA2+t*(erfA3+t*(erfA4+t*erfA5))))

	return sign * (1.0 - poly*math.Exp(-x*x))
}

// NormalCDF returns Φ(z), the standard normal cumulative distribution function.
func NormalCDF(z float64) float64 {
	return 0.5 * (1.0 + erfApprox(z/math.Sqrt2))
}
