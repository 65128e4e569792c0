package solver

import (
	"math"

	"github.com/thurmanmarka/skyfix/internal/timeutil"
)

// refractionIterations is how many fixed-point steps RemoveRefraction takes.
// The correction changes by well under 1% per degree above the horizon, so
// this converges to machine precision.
const refractionIterations = 20

// Refraction returns the standard low-altitude refraction correction, in
// degrees, for an observed altitude h in degrees:
//
//	R = 1 / (60 · tan(h + 7.31/(h + 4.4)))
//
// It is about 0.57° at the horizon and falls to ~0 at the zenith. Below the
// horizon the formula blows up near h = -4.4 and is meaningless.
func Refraction(h float64) float64 {
	return 1 / (60 * timeutil.TanD(h+7.31/(h+4.4)))
}

// ApplyRefraction returns the corrected altitude h + Refraction(h). Observed
// altitudes outside [0, 90] and non-finite corrections are rejected.
func ApplyRefraction(h float64) (float64, float64, error) {
	if !timeutil.Finite(h) || h < 0 || h > 90 {
		return 0, 0, &Error{Kind: ErrNoSolution, Reason: "observed altitude outside [0, 90]"}
	}
	r := Refraction(h)
	if !timeutil.Finite(r) {
		return 0, 0, &Error{Kind: ErrNoSolution, Reason: "refraction correction not finite"}
	}
	return h + r, r, nil
}

// RemoveRefraction is the inverse of ApplyRefraction: it returns the observed
// altitude ho with ho + Refraction(ho) = h.
func RemoveRefraction(h float64) float64 {
	ho := h
	for i := 0; i < refractionIterations; i++ {
		ho = h - Refraction(ho)
		if math.IsNaN(ho) {
			break
		}
	}
	return ho
}
