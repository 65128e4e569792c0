// Package sky converts ecliptic coordinates to equatorial ones and locates
// the geographic point directly beneath a body.
package sky

import (
	"github.com/thurmanmarka/skyfix/internal/timeutil"
)

// Obliquity is the fixed tilt of the ecliptic to the equator, in degrees.
const Obliquity = 23.4393

// Sidereal time at J2000.0 and its daily rate, degrees.
const (
	siderealAtJ2000 = 280.1470
	siderealPerDay  = 360.9856235
)

// Ecliptic represents ecliptic coordinates in degrees.
type Ecliptic struct {
	Lat float64 // ecliptic latitude β
	Lon float64 // ecliptic longitude λ
}

// Equatorial represents equatorial coordinates (right ascension and
// declination) in degrees. RA is in degrees, not hours, to stay consistent
// with the other helpers.
type Equatorial struct {
	RA  float64
	Dec float64
}

// SubPoint is the geographic point directly below a body. Lon is measured
// westward from Greenwich in [0, 360).
type SubPoint struct {
	Lat float64
	Lon float64
}

// ToEquatorial rotates ecliptic coordinates about the vernal equinox by the
// obliquity. RA is returned by atan2 and so lies in (-180, 180].
func ToEquatorial(e Ecliptic) Equatorial {
	sinE, cosE := timeutil.SinD(Obliquity), timeutil.CosD(Obliquity)

	dec := timeutil.AsinD(timeutil.SinD(e.Lat)*cosE + timeutil.CosD(e.Lat)*sinE*timeutil.SinD(e.Lon))
	ra := timeutil.Atan2D(timeutil.SinD(e.Lon)*cosE-timeutil.TanD(e.Lat)*sinE, timeutil.CosD(e.Lon))

	return Equatorial{RA: ra, Dec: dec}
}

// ToEcliptic is the inverse of ToEquatorial. Lon is returned in [0, 360).
func ToEcliptic(eq Equatorial) Ecliptic {
	sinE, cosE := timeutil.SinD(Obliquity), timeutil.CosD(Obliquity)

	lat := timeutil.AsinD(timeutil.SinD(eq.Dec)*cosE - timeutil.CosD(eq.Dec)*sinE*timeutil.SinD(eq.RA))
	lon := timeutil.Atan2D(timeutil.SinD(eq.RA)*cosE+timeutil.TanD(eq.Dec)*sinE, timeutil.CosD(eq.RA))

	return Ecliptic{Lat: lat, Lon: timeutil.Normalize360(lon)}
}

// SiderealTime returns the Greenwich sidereal angle at jd in [0, 360).
func SiderealTime(jd float64) float64 {
	return timeutil.Normalize360(siderealAtJ2000 + siderealPerDay*timeutil.DaysSinceJ2000(jd))
}

// SubPointLongitude returns the west-positive longitude beneath a body with
// right ascension ra at jd.
//
// Directly beneath the body its hour angle is zero, so the longitude is the
// sidereal angle minus the right ascension.
func SubPointLongitude(jd, ra float64) float64 {
	return timeutil.Normalize360(siderealAtJ2000 + siderealPerDay*timeutil.DaysSinceJ2000(jd) - ra)
}

// SubPointOf returns the sub-point of a body at ecliptic position e at jd.
func SubPointOf(jd float64, e Ecliptic) (SubPoint, Equatorial) {
	eq := ToEquatorial(e)
	return SubPoint{Lat: eq.Dec, Lon: SubPointLongitude(jd, eq.RA)}, eq
}
