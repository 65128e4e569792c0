package sun

import (
	"github.com/thurmanmarka/skyfix/internal/sky"
	"github.com/thurmanmarka/skyfix/internal/timeutil"
)

// Low-precision solar model constants, degrees.
const (
	meanAnomalyAtJ2000 = 357.5291
	meanAnomalyPerDay  = 0.98560028

	// perihelion is the ecliptic longitude of Earth's perihelion.
	perihelion = 102.9373
)

// Parallax of the Sun is treated as zero: at its distance the shift
// between a surface observer and Earth's centre is ~9 arcseconds.
const Parallax = 0.0

// MeanAnomaly returns the Sun's mean anomaly at jd in [0, 360).
func MeanAnomaly(jd float64) float64 {
	return timeutil.Normalize360(meanAnomalyAtJ2000 + meanAnomalyPerDay*timeutil.DaysSinceJ2000(jd))
}

// EquationOfCenter returns the correction from mean to true anomaly for
// mean anomaly m, both in degrees.
func EquationOfCenter(m float64) float64 {
	return 1.9148*timeutil.SinD(m) +
		0.0200*timeutil.SinD(2*m) +
		0.0003*timeutil.SinD(3*m)
}

// Ecliptic returns the Sun's geocentric ecliptic coordinates at jd.
//
// This is the low-precision model from the "Astronomical Computations"
// series (aa.quae.nl):
//
//	M = mean anomaly
//	C = equation of center
//	L = M + perihelion longitude (Earth's heliocentric mean longitude)
//	λ = L + C + 180   (the Sun seen from Earth)
//
// The Sun's ecliptic latitude never exceeds ~1 arcsecond and is taken as 0.
// The perihelion is held fixed, so λ drifts from the precessing true value
// by roughly 0.017° a year away from J2000.
func Ecliptic(jd float64) sky.Ecliptic {
	m := MeanAnomaly(jd)
	c := EquationOfCenter(m)
	l := m + perihelion

	return sky.Ecliptic{
		Lat: 0,
		Lon: timeutil.Normalize360(l + c + 180),
	}
}
