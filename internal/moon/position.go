package moon

import (
	"fmt"
	"math"
	"strings"

	"github.com/soniakeys/meeus/v3/moonposition"

	"github.com/thurmanmarka/skyfix/internal/sky"
	"github.com/thurmanmarka/skyfix/internal/timeutil"
)

// Model selects the lunar series used for the Moon's position.
type Model int

const (
	// Meeus is the full series of Meeus, "Astronomical Algorithms" ch. 47
	// (ELP-2000/82 truncated), good to ~10" in longitude.
	Meeus Model = iota

	// Abridged is a handful of the dominant periodic terms, good to roughly
	// 0.1°. It needs no tables and is handy for comparison.
	Abridged
)

func (m Model) String() string {
	switch m {
	case Meeus:
		return "meeus"
	case Abridged:
		return "abridged"
	default:
		return fmt.Sprintf("Model(%d)", int(m))
	}
}

// ParseModel maps a config string to a Model.
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "meeus":
		return Meeus, nil
	case "abridged":
		return Abridged, nil
	default:
		return 0, fmt.Errorf("unknown lunar model %q (use meeus or abridged)", s)
	}
}

// Position returns the Moon's geocentric ecliptic coordinates and distance
// (km) at jd for the chosen model.
func Position(m Model, jd float64) (sky.Ecliptic, float64, error) {
	switch m {
	case Meeus:
		lon, lat, dist := moonposition.Position(jd)
		return sky.Ecliptic{
			Lat: lat.Deg(),
			Lon: timeutil.Normalize360(lon.Deg()),
		}, dist, nil
	case Abridged:
		e, dist := abridgedPosition(jd)
		return e, dist, nil
	default:
		return sky.Ecliptic{}, 0, fmt.Errorf("unknown lunar model %v", m)
	}
}

// Ecliptic returns the Moon's ecliptic coordinates together with its
// horizontal parallax, both in degrees.
func Ecliptic(m Model, jd float64) (sky.Ecliptic, float64, error) {
	e, dist, err := Position(m, jd)
	if err != nil {
		return sky.Ecliptic{}, 0, err
	}
	return e, Parallax(dist), nil
}

// abridgedPosition evaluates a truncated Meeus-style series:
//
//	L'  = mean longitude of the Moon
//	M   = mean anomaly of the Sun
//	Mm  = mean anomaly of the Moon
//	D   = mean elongation of the Moon from the Sun
//	F   = argument of latitude of the Moon
func abridgedPosition(jd float64) (sky.Ecliptic, float64) {
	d := timeutil.DaysSinceJ2000(jd)

	// All linear coefficients here are in deg/day.
	Lprime := timeutil.Normalize360(218.3164477 + 13.17639648*d)
	M := timeutil.Normalize360(357.5291092 + 0.98560028*d)
	Mm := timeutil.Normalize360(134.9633964 + 13.06499295*d)
	D := timeutil.Normalize360(297.8501921 + 12.19074912*d)
	F := timeutil.Normalize360(93.2720950 + 13.22935024*d)

	Mr := timeutil.Deg2Rad(M)
	Mmr := timeutil.Deg2Rad(Mm)
	Dr := timeutil.Deg2Rad(D)
	Fr := timeutil.Deg2Rad(F)

	// λ ≈ L' + 6.289 sin(Mm) + 1.274 sin(2D − Mm)
	//      + 0.658 sin(2D) + 0.214 sin(2Mm) − 0.186 sin(M)
	//      − 0.114 sin(2F)
	lon := Lprime +
		6.289*math.Sin(Mmr) +
		1.274*math.Sin(2*Dr-Mmr) +
		0.658*math.Sin(2*Dr) +
		0.214*math.Sin(2*Mmr) -
		0.186*math.Sin(Mr) -
		0.114*math.Sin(2*Fr)

	// β ≈ 5.128 sin(F) + 0.280 sin(Mm + F)
	//      + 0.277 sin(Mm − F) + 0.173 sin(2D − F)
	lat := 5.128*math.Sin(Fr) +
		0.280*math.Sin(Mmr+Fr) +
		0.277*math.Sin(Mmr-Fr) +
		0.173*math.Sin(2*Dr-Fr)

	// Earth–Moon distance Δ (km), dominant cosine terms.
	dist := 385000.56 -
		20905.0*math.Cos(Mmr) -
		3699.0*math.Cos(2*Dr-Mmr) -
		2956.0*math.Cos(2*Dr) -
		570.0*math.Cos(2*Mmr) -
		246.0*math.Cos(2*Dr+Mmr)

	return sky.Ecliptic{Lat: lat, Lon: timeutil.Normalize360(lon)}, dist
}
