package engine

// Edge is the modeled probability of a side minus the market ask to buy that
// side. Always computed against the ask, never the bid - the evaluator only
// considers opening new long positions, so the ask is the price actually paid.

// Edges returns (edgeUp, edgeDown) for the given modeled probabilities and
// current ask prices. Either edge may be negative.
func Edges(probUp, probDown, askUp, askDown float64) (float64, float64) {
	return probUp - askUp, probDown - askDown
}
