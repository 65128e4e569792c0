package orientation

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/thurmanmarka/skyfix/internal/timeutil"
)

var (
	// ErrZeroQuaternion is returned when a rotation quaternion has zero
	// (or non-finite) norm.
	ErrZeroQuaternion = errors.New("quaternion has zero norm")

	// ErrDegenerateOrientation is returned when a reading does not define a
	// usable pointing direction.
	ErrDegenerateOrientation = errors.New("degenerate orientation reading")

	// ErrNoHeading is returned for an Euler reading without a compass heading.
	ErrNoHeading = errors.New("euler reading has no compass heading")

	// ErrEmptyReading is returned for a reading with neither a quaternion nor
	// Euler angles.
	ErrEmptyReading = errors.New("reading has no orientation data")
)

// Forward is the direction the back camera looks along, in device
// coordinates.
var Forward = Vector3{X: 0, Y: 0, Z: -1}

// minHorizontal is the smallest horizontal component (relative to the
// vector length) for which an azimuth is still meaningful.
const minHorizontal = 1e-9

// AltAz is the observed direction of a body, in degrees. Azimuth is
// measured clockwise from north and always lies in [0, 360).
type AltAz struct {
	Altitude float64 `json:"altitude"`
	Azimuth  float64 `json:"azimuth"`
}

// Euler holds DeviceOrientationEvent angles in degrees.
type Euler struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// Reading is one sample from the orientation sensor. Exactly one of
// Quaternion or Euler is expected to be set; Heading is only consulted for
// Euler readings.
type Reading struct {
	// Quaternion is the platform quaternion, scalar-last [x, y, z, w].
	Quaternion *[4]float64 `json:"quaternion,omitempty"`
	Euler      *Euler      `json:"euler,omitempty"`
	// Heading is an externally derived compass bearing in degrees.
	Heading *float64  `json:"heading,omitempty"`
	Time    time.Time `json:"time"`
}

// QuaternionReading builds a platform-quaternion reading.
func QuaternionReading(q [4]float64, t time.Time) Reading {
	return Reading{Quaternion: &q, Time: t}
}

// EulerReading builds an Euler reading with a compass heading.
func EulerReading(alpha, beta, gamma, heading float64, t time.Time) Reading {
	return Reading{
		Euler:   &Euler{Alpha: alpha, Beta: beta, Gamma: gamma},
		Heading: &heading,
		Time:    t,
	}
}

// ToAltAz converts a reading into the altitude/azimuth the device's back
// camera is pointing at.
//
// Quaternion readings derive both angles from the rotated forward vector.
// Euler readings only derive the altitude that way; magnetometer-based
// Euler yaw is too unreliable, so the azimuth comes from Heading.
func ToAltAz(r Reading) (AltAz, error) {
	switch {
	case r.Quaternion != nil:
		return fromQuaternion(FromScalarLast(*r.Quaternion))
	case r.Euler != nil:
		return fromEuler(*r.Euler, r.Heading)
	default:
		return AltAz{}, ErrEmptyReading
	}
}

func fromQuaternion(q Quaternion) (AltAz, error) {
	if !timeutil.Finite(q.W, q.X, q.Y, q.Z) {
		return AltAz{}, fmt.Errorf("%w: non-finite quaternion", ErrDegenerateOrientation)
	}
	dir, err := q.Rotate(Forward)
	if err != nil {
		return AltAz{}, fmt.Errorf("%w: %v", ErrDegenerateOrientation, err)
	}

	// Pointing straight up or down leaves the azimuth undefined.
	if math.Hypot(dir.X, dir.Y) <= minHorizontal*dir.Norm() {
		return AltAz{}, fmt.Errorf("%w: vertical sight vector has no azimuth", ErrDegenerateOrientation)
	}

	alt, err := Altitude(dir)
	if err != nil {
		return AltAz{}, err
	}
	return AltAz{Altitude: alt, Azimuth: Azimuth(dir)}, nil
}

func fromEuler(e Euler, heading *float64) (AltAz, error) {
	if !timeutil.Finite(e.Alpha, e.Beta, e.Gamma) {
		return AltAz{}, fmt.Errorf("%w: non-finite euler angles", ErrDegenerateOrientation)
	}
	if heading == nil {
		return AltAz{}, ErrNoHeading
	}
	if !timeutil.Finite(*heading) {
		return AltAz{}, fmt.Errorf("%w: non-finite heading", ErrDegenerateOrientation)
	}

	dir, err := FromEulerZXY(e.Alpha, e.Beta, e.Gamma).Rotate(Forward)
	if err != nil {
		return AltAz{}, fmt.Errorf("%w: %v", ErrDegenerateOrientation, err)
	}
	alt, err := Altitude(dir)
	if err != nil {
		return AltAz{}, err
	}
	return AltAz{Altitude: alt, Azimuth: timeutil.Normalize360(*heading)}, nil
}

// Altitude returns the elevation of v above the x-y plane in degrees. A
// vertical vector gives ±90; the zero vector has no direction.
func Altitude(v Vector3) (float64, error) {
	horiz := math.Sqrt(v.X*v.X + v.Y*v.Y)
	if horiz == 0 {
		if v.Z == 0 || math.IsNaN(v.Z) {
			return 0, fmt.Errorf("%w: zero sight vector", ErrDegenerateOrientation)
		}
		return math.Copysign(90, v.Z), nil
	}
	alt := timeutil.AtanD(v.Z / horiz)
	if !timeutil.Finite(alt) {
		return 0, fmt.Errorf("%w: non-finite altitude", ErrDegenerateOrientation)
	}
	return alt, nil
}

// Azimuth returns the compass bearing of v's horizontal projection in
// [0, 360), clockwise from north (+y), with east on +x.
//
// atan2 gives the angle counter-clockwise from east in [-π, π]; negating
// it and shifting by a quarter turn converts it to a bearing from north.
func Azimuth(v Vector3) float64 {
	if !timeutil.Finite(v.X, v.Y) {
		return 0
	}
	theta := -math.Atan2(v.Y, v.X)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	fromNorth := math.Mod(theta+math.Pi/2, 2*math.Pi)
	return timeutil.Normalize360(timeutil.Rad2Deg(fromNorth))
}
