// Package moon computes the Moon's geocentric ecliptic position and the
// horizontal parallax that goes with its distance.
package moon

import (
	"math"

	"github.com/thurmanmarka/skyfix/internal/timeutil"
)

// EarthRadiusKm is the equatorial radius used for horizontal parallax.
const EarthRadiusKm = 6378.14

// MeanDistanceKm is the average Earth–Moon distance.
const MeanDistanceKm = 384400.0

// Parallax returns the Moon's horizontal parallax in degrees for a
// geocentric distance in km: the angle Earth's radius subtends at the Moon.
// At the mean distance it is about 0.95°. Distances inside the Earth and
// non-finite distances have no parallax and return NaN.
func Parallax(distanceKm float64) float64 {
	if distanceKm <= EarthRadiusKm || !timeutil.Finite(distanceKm) {
		return math.NaN()
	}
	return timeutil.Rad2Deg(math.Asin(EarthRadiusKm / distanceKm))
}
