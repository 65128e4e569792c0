// Package solver reduces a single Sun or Moon sighting to an observer
// position by solving the navigational triangle formed by the observer, a
// celestial pole and the body's sub-point.
package solver

import (
	"math"

	"github.com/thurmanmarka/skyfix/internal/orientation"
	"github.com/thurmanmarka/skyfix/internal/sky"
	"github.com/thurmanmarka/skyfix/internal/timeutil"
)

// napierEpsilon is the size of sin((B−C)/2) below which the difference form
// of Napier's analogy loses all precision and the sum form is used.
const napierEpsilon = 1e-9

// Triangle holds the navigational triangle for one sighting, degrees.
//
// Sides: HereToCelestial (observer to sub-point), PoleToCelestial and
// PoleToHere. Angles: HereAngle at the observer and PoleAngle at the pole.
type Triangle struct {
	HereToCelestial float64
	PoleToCelestial float64
	PoleToHere      float64
	HereAngle       float64
	PoleAngle       float64

	NorthPole bool // pole used is the north pole
	West      bool // body lies west of the observer
}

// Fix is a solved sighting. Longitudes are west-positive in [0, 360).
type Fix struct {
	Here       sky.SubPoint
	Body       sky.SubPoint
	Equatorial sky.Equatorial

	// Altitude is the refraction-corrected altitude; Refraction is the
	// correction that was added to the observed one.
	Altitude   float64
	Refraction float64
	Parallax   float64

	Triangle Triangle
}

// Solve locates the observer from an observed altitude/azimuth of a body at
// ecliptic position e on jd. parallax is the body's horizontal parallax in
// degrees (0 for the Sun).
//
// Each call is independent: a failed sighting returns an error wrapping
// ErrNoSolution and is never retried.
func Solve(obs orientation.AltAz, jd float64, e sky.Ecliptic, parallax float64) (Fix, error) {
	if !timeutil.Finite(obs.Azimuth, jd, e.Lat, e.Lon, parallax) {
		return Fix{}, &Error{Kind: ErrNoSolution, Reason: "non-finite input"}
	}

	altitude, refr, err := ApplyRefraction(obs.Altitude)
	if err != nil {
		return Fix{}, err
	}

	body, eq := sky.SubPointOf(jd, e)
	azimuth := timeutil.Normalize360(obs.Azimuth)

	tri := Triangle{
		HereToCelestial: 90 - altitude - parallax,
		// Use the pole on the far side of the equator from the body so the
		// pole-to-body arc is always 90 + |dec|.
		NorthPole: body.Lat < 0,
		West:      180 < azimuth && azimuth < 360,
	}
	if tri.NorthPole {
		tri.PoleToCelestial = 90 - body.Lat
	} else {
		tri.PoleToCelestial = 90 + body.Lat
	}
	tri.HereAngle = hereAngle(azimuth, tri.West, tri.NorthPole)

	s := timeutil.SinD(tri.HereToCelestial) * timeutil.SinD(tri.HereAngle)
	if !(tri.PoleToCelestial > timeutil.AsinD(s)) {
		return Fix{}, &Error{Kind: ErrNoSolution, Reason: "triangle is not solvable"}
	}

	tri.PoleAngle = timeutil.AsinD(s / timeutil.SinD(tri.PoleToCelestial))
	tri.PoleToHere = thirdSide(tri.PoleAngle, tri.HereAngle, tri.PoleToCelestial, tri.HereToCelestial)

	offset := tri.PoleAngle
	if tri.West {
		offset = -offset
	}

	here := sky.SubPoint{Lon: timeutil.Normalize360(body.Lon + offset)}
	if tri.NorthPole {
		here.Lat = 90 - tri.PoleToHere
	} else {
		here.Lat = -90 + tri.PoleToHere
	}

	if !timeutil.Finite(here.Lat, here.Lon) || math.Abs(here.Lat) > 90 {
		return Fix{}, &Error{Kind: ErrNoSolution, Reason: "position is not a number"}
	}

	return Fix{
		Here:       here,
		Body:       body,
		Equatorial: eq,
		Altitude:   altitude,
		Refraction: refr,
		Parallax:   parallax,
		Triangle:   tri,
	}, nil
}

// hereAngle converts a compass azimuth into the angle at the observer
// between the great circle to the chosen pole and the one to the body.
// Azimuth is only that angle directly when the north pole is used and the
// body is to the east.
func hereAngle(azimuth float64, west, northPole bool) float64 {
	switch {
	case northPole && west:
		return 360 - azimuth
	case northPole:
		return azimuth
	case west:
		return azimuth - 180
	default:
		return 180 - azimuth
	}
}

// thirdSide returns side a of a spherical triangle from angles C and B and
// their opposite sides c and b (two angles plus the sides facing them),
// using Napier's analogies:
//
//	tan(a/2) = tan((b−c)/2) · sin((B+C)/2) / sin((B−C)/2)
//	tan(a/2) = tan((b+c)/2) · cos((B+C)/2) / cos((B−C)/2)
//
// The first form is 0/0 when B = C, which happens for a sighting on the
// meridian towards the pole (both angles zero); there the second form gives
// a = b + c.
func thirdSide(C, B, b, c float64) float64 {
	half := func(x float64) float64 { return x / 2 }

	if d := timeutil.SinD(half(B - C)); math.Abs(d) > napierEpsilon {
		return 2 * timeutil.AtanD(timeutil.TanD(half(b-c))*timeutil.SinD(half(B+C))/d)
	}
	num := timeutil.TanD(half(b+c)) * timeutil.CosD(half(B+C))
	a := 2 * timeutil.AtanD(num/timeutil.CosD(half(B-C)))
	if a < 0 {
		// b + c past 180: tan changed sign, a/2 lies in (90, 180).
		a += 360
	}
	return a
}
