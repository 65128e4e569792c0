package timeutil

import (
	"math"
	"time"
)

// -----------------------------
// Julian dates
// -----------------------------

const (
	// J1970 is the Julian Date of 1970-01-01T12:00Z. The Unix epoch itself
	// is J1970 - 0.5 because Julian days start at noon.
	J1970 = 2440588.0

	// J2000 is the J2000.0 reference epoch (2000-01-01T12:00Z) as a Julian Date.
	J2000 = 2451545.0

	// DaysPerCentury is the length of a Julian century.
	DaysPerCentury = 36525.0

	dayMs = 1000.0 * 60 * 60 * 24
)

// JulianDate returns the Julian Date of t.
//
// The conversion works on the Unix millisecond count, so it is continuous
// and valid for any instant time.Time can represent. UT and TT are not
// distinguished; the difference (about a minute) is below the accuracy of
// a hand-held sighting.
func JulianDate(t time.Time) float64 {
	ms := float64(t.UnixMilli())
	return ms/dayMs - 0.5 + J1970
}

// Time converts a Julian Date back to a UTC time, rounded to the millisecond.
func Time(jd float64) time.Time {
	ms := (jd + 0.5 - J1970) * dayMs
	return time.UnixMilli(int64(math.Round(ms))).UTC()
}

// DaysSinceJ2000 returns the (fractional) number of days between J2000.0 and jd.
func DaysSinceJ2000(jd float64) float64 {
	return jd - J2000
}

// JulianCenturies returns centuries since J2000.0.
func JulianCenturies(jd float64) float64 {
	return (jd - J2000) / DaysPerCentury
}

// -----------------------------
// Basic degree/radian helpers and trig with degree inputs.
// -----------------------------

func Deg2Rad(d float64) float64 {
	return d * math.Pi / 180.0
}

func Rad2Deg(r float64) float64 {
	return r * 180.0 / math.Pi
}

func SinD(deg float64) float64 {
	return math.Sin(Deg2Rad(deg))
}

func CosD(deg float64) float64 {
	return math.Cos(Deg2Rad(deg))
}

func TanD(deg float64) float64 {
	return math.Tan(Deg2Rad(deg))
}

// AsinD returns asin(x) in degrees.
func AsinD(x float64) float64 {
	return Rad2Deg(math.Asin(x))
}

// AtanD returns atan(x) in degrees.
func AtanD(x float64) float64 {
	return Rad2Deg(math.Atan(x))
}

// Atan2D returns atan2(y, x) in degrees, in (-180, 180].
func Atan2D(y, x float64) float64 {
	return Rad2Deg(math.Atan2(y, x))
}

// Mod is the floored modulo: the result has the sign of n.
func Mod(m, n float64) float64 {
	return math.Mod(math.Mod(m, n)+n, n)
}

// Normalize360 maps d into [0, 360).
func Normalize360(d float64) float64 {
	d = math.Mod(d, 360.0)
	if d < 0 {
		d += 360.0
	}
	// -1e-15 + 360 rounds to 360 in float64.
	if d >= 360.0 {
		d = 0
	}
	return d
}

// Finite reports whether every value is neither NaN nor ±Inf.
func Finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
