package ilp

import "math"

// Tolerances follow the usual LP solver conventions: feastol decides whether
// a relaxation value counts as integral, epsilon decides whether two bounds
// are distinguishable at all, and scoreFloor keeps degenerate zero gains from
// collapsing a product score.
const (
	feastol    = 1e-6
	epsilon    = 1e-9
	scoreFloor = 1e-6
)

// frac returns the fractional part of v, in [0, 1).
func frac(v float64) float64 {
	return v - math.Floor(v)
}

// isFractional reports whether v lies further than feastol from the nearest
// integer.
func isFractional(v float64) bool {
	f := frac(v)
	return math.Min(f, 1-f) > feastol
}

// isGE reports whether a >= b up to epsilon. Equal infinities compare true.
func isGE(a, b float64) bool {
	if a == b {
		return true
	}
	return a-b >= -epsilon
}

// isAllInteger reports whether all given values are integral within feastol.
func isAllInteger(in ...float64) bool {
	for _, v := range in {
		if isFractional(v) {
			return false
		}
	}
	return true
}
