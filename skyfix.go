// Package skyfix estimates an observer's position from a single hand-held
// sighting of the Sun or Moon, using nothing but the device's orientation
// and the time.
//
// The pipeline is:
//   - orientation reading -> observed altitude/azimuth (AltAzFromReading)
//   - time -> Julian Date -> ecliptic position of the body -> sub-point
//   - altitude/azimuth + sub-point -> observer position (Locate)
//
// Positions at this boundary use signed, east-positive longitudes in
// [-180, 180]. A Sighter adds the "latest sensor reading" slot that a live
// app feeds continuously and reads when the user takes a sighting.
package skyfix

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thurmanmarka/skyfix/internal/geo"
	"github.com/thurmanmarka/skyfix/internal/moon"
	"github.com/thurmanmarka/skyfix/internal/orientation"
	"github.com/thurmanmarka/skyfix/internal/sky"
	"github.com/thurmanmarka/skyfix/internal/solver"
	"github.com/thurmanmarka/skyfix/internal/sun"
	"github.com/thurmanmarka/skyfix/internal/timeutil"
)

// Body represents a celestial body that can be sighted.
type Body int

const (
	Sun Body = iota
	Moon
)

func (b Body) String() string {
	switch b {
	case Sun:
		return "sun"
	case Moon:
		return "moon"
	default:
		return fmt.Sprintf("Body(%d)", int(b))
	}
}

// ParseBody maps "sun" or "moon" (any case) to a Body.
func ParseBody(s string) (Body, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sun":
		return Sun, nil
	case "moon":
		return Moon, nil
	default:
		return 0, fmt.Errorf("%w: %q (use sun or moon)", ErrUnknownBody, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (b Body) MarshalText() ([]byte, error) {
	if b != Sun && b != Moon {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBody, int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Body) UnmarshalText(text []byte) error {
	v, err := ParseBody(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

type (
	// AltAz is an observed direction in degrees; azimuth is clockwise from
	// north in [0, 360).
	AltAz = orientation.AltAz

	// Reading is one orientation sensor sample: a platform quaternion
	// (scalar-last) or Euler angles plus a compass heading.
	Reading = orientation.Reading

	// Euler holds ZXY device orientation angles in degrees.
	Euler = orientation.Euler

	// Position is a geographic position in degrees, longitude east-positive.
	Position = geo.Position

	// Ecliptic holds ecliptic latitude and longitude in degrees.
	Ecliptic = sky.Ecliptic

	// LunarModel selects the series used for the Moon.
	LunarModel = moon.Model
)

const (
	// LunarMeeus is the full Meeus ch. 47 series (the default).
	LunarMeeus = moon.Meeus
	// LunarAbridged is a short truncated series, good to ~0.1°.
	LunarAbridged = moon.Abridged
)

// ParseLunarModel maps "meeus" or "abridged" to a LunarModel.
func ParseLunarModel(s string) (LunarModel, error) {
	return moon.ParseModel(s)
}

var (
	// ErrMissingReading is returned when a sighting is taken before any
	// usable orientation reading has arrived. Wait, aim and retry.
	ErrMissingReading = errors.New("no orientation reading available")

	// ErrStaleReading is returned when the latest reading is older than the
	// Sighter's MaxAge. It matches ErrMissingReading with errors.Is.
	ErrStaleReading = fmt.Errorf("%w: latest reading is too old", ErrMissingReading)

	// ErrNoSolution is returned when a sighting does not reduce to a
	// position: the navigational triangle is unsolvable or the arithmetic
	// went non-finite. No partial position is ever returned with it.
	ErrNoSolution = solver.ErrNoSolution

	// ErrBelowHorizon is returned by Predict for a body that cannot be seen
	// from the observer.
	ErrBelowHorizon = solver.ErrBelowHorizon

	// ErrDegenerateOrientation is returned for a reading with no usable
	// pointing direction (zero quaternion, vertical sight line, NaNs).
	ErrDegenerateOrientation = orientation.ErrDegenerateOrientation

	// ErrNoHeading is returned for an Euler reading without a compass heading.
	ErrNoHeading = orientation.ErrNoHeading

	// ErrUnknownBody is returned for a body other than Sun or Moon.
	ErrUnknownBody = errors.New("unknown body")
)

// Estimate is the result of one sighting.
type Estimate struct {
	Body Body      `json:"body"`
	Time time.Time `json:"time"`

	// Here is the estimated observer position.
	Here Position `json:"here"`
	// SubPoint is the point directly beneath the body at Time.
	SubPoint Position `json:"sub_point"`

	JulianDate float64 `json:"julian_date"`
	// Observed is the sighting as read from the sensor.
	Observed AltAz `json:"observed"`
	// Altitude is the observed altitude after refraction correction.
	Altitude       float64 `json:"altitude"`
	Refraction     float64 `json:"refraction"`
	Parallax       float64 `json:"parallax"`
	RightAscension float64 `json:"right_ascension"`
	Declination    float64 `json:"declination"`
}

// Fixer reduces sightings with a chosen lunar model. The zero value uses
// LunarMeeus.
type Fixer struct {
	Lunar LunarModel
}

var defaultFixer = Fixer{Lunar: LunarMeeus}

// Ecliptic returns the body's geocentric ecliptic coordinates at jd and its
// horizontal parallax in degrees (0 for the Sun).
func (f Fixer) Ecliptic(body Body, jd float64) (Ecliptic, float64, error) {
	switch body {
	case Sun:
		return sun.Ecliptic(jd), sun.Parallax, nil
	case Moon:
		return moon.Ecliptic(f.Lunar, jd)
	default:
		return Ecliptic{}, 0, fmt.Errorf("%w: %v", ErrUnknownBody, body)
	}
}

// SubPoint returns the geographic point directly beneath the body at t.
func (f Fixer) SubPoint(body Body, t time.Time) (Position, error) {
	jd := timeutil.JulianDate(t)
	e, _, err := f.Ecliptic(body, jd)
	if err != nil {
		return Position{}, err
	}
	sp, _ := sky.SubPointOf(jd, e)
	return geo.FromWest(sp.Lat, sp.Lon), nil
}

// Locate estimates the observer's position from an observed altitude and
// azimuth of body at t. Failures wrap ErrNoSolution.
func (f Fixer) Locate(body Body, obs AltAz, t time.Time) (Estimate, error) {
	jd := timeutil.JulianDate(t)
	e, parallax, err := f.Ecliptic(body, jd)
	if err != nil {
		return Estimate{}, err
	}

	fix, err := solver.Solve(obs, jd, e, parallax)
	if err != nil {
		return Estimate{}, err
	}

	return Estimate{
		Body:           body,
		Time:           t,
		Here:           geo.FromWest(fix.Here.Lat, fix.Here.Lon),
		SubPoint:       geo.FromWest(fix.Body.Lat, fix.Body.Lon),
		JulianDate:     jd,
		Observed:       obs,
		Altitude:       fix.Altitude,
		Refraction:     fix.Refraction,
		Parallax:       fix.Parallax,
		RightAscension: timeutil.Normalize360(fix.Equatorial.RA),
		Declination:    fix.Equatorial.Dec,
	}, nil
}

// LocateReading converts a raw reading and locates the observer. A reading
// that yields no direction is reported as ErrNoSolution (wrapping the
// orientation error), the same as an unsolvable triangle.
func (f Fixer) LocateReading(body Body, r Reading, t time.Time) (Estimate, error) {
	obs, err := AltAzFromReading(r)
	if err != nil {
		return Estimate{}, fmt.Errorf("%w: %w", ErrNoSolution, err)
	}
	return f.Locate(body, obs, t)
}

// Predict returns the altitude/azimuth a sighting of body from observer at
// t would read, refraction included. It is the inverse of Locate.
func (f Fixer) Predict(body Body, observer Position, t time.Time) (AltAz, error) {
	jd := timeutil.JulianDate(t)
	e, parallax, err := f.Ecliptic(body, jd)
	if err != nil {
		return AltAz{}, err
	}
	p, err := solver.Predict(sky.SubPoint{Lat: observer.Lat, Lon: geo.WestLongitude(observer.Lon)}, jd, e, parallax)
	if err != nil {
		return AltAz{}, err
	}
	return p.Observed, nil
}

// AltAzFromReading converts an orientation reading into the altitude and
// azimuth the device's back camera points at.
func AltAzFromReading(r Reading) (AltAz, error) {
	return orientation.ToAltAz(r)
}

// Locate estimates the observer's position using the default lunar model.
func Locate(body Body, obs AltAz, t time.Time) (Estimate, error) {
	return defaultFixer.Locate(body, obs, t)
}

// LocateReading is Fixer.LocateReading with the default lunar model.
func LocateReading(body Body, r Reading, t time.Time) (Estimate, error) {
	return defaultFixer.LocateReading(body, r, t)
}

// Predict is Fixer.Predict with the default lunar model.
func Predict(body Body, observer Position, t time.Time) (AltAz, error) {
	return defaultFixer.Predict(body, observer, t)
}

// SubPoint is Fixer.SubPoint with the default lunar model.
func SubPoint(body Body, t time.Time) (Position, error) {
	return defaultFixer.SubPoint(body, t)
}

// SunEcliptic returns the Sun's ecliptic coordinates at t.
func SunEcliptic(t time.Time) Ecliptic {
	return sun.Ecliptic(timeutil.JulianDate(t))
}

// MoonEcliptic returns the Moon's ecliptic coordinates and horizontal
// parallax (degrees) at t using the default lunar model.
func MoonEcliptic(t time.Time) (Ecliptic, float64, error) {
	return defaultFixer.Ecliptic(Moon, timeutil.JulianDate(t))
}

// JulianDate returns the Julian Date of t.
func JulianDate(t time.Time) float64 {
	return timeutil.JulianDate(t)
}

// NormalizeLongitude folds a longitude (east-positive, any range) into
// [-180, 180]. It is idempotent.
func NormalizeLongitude(lon float64) float64 {
	return geo.Normalize(Position{Lon: lon}).Lon
}

// NormalizePosition folds p's longitude into [-180, 180].
func NormalizePosition(p Position) Position {
	return geo.Normalize(p)
}

// Distance returns the great-circle distance between a and b in km.
func Distance(a, b Position) float64 {
	return geo.Distance(a, b)
}

// FormatPosition renders p in degrees, minutes and seconds.
func FormatPosition(p Position) string {
	return geo.FormatDMS(p)
}
