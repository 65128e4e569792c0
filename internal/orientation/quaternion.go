// Package orientation turns device orientation readings into the altitude
// and azimuth of the direction the device is pointing.
package orientation

import (
	"math"

	"github.com/thurmanmarka/skyfix/internal/timeutil"
)

// Vector3 is a 3D vector in the device's reference frame: x east, y north,
// z up once rotated into the earth frame.
type Vector3 struct {
	X, Y, Z float64
}

// Quaternion is stored scalar-first: W is the scalar part.
type Quaternion struct {
	W, X, Y, Z float64
}

// Identity is the no-rotation quaternion.
var Identity = Quaternion{W: 1}

// FromScalarLast converts a platform quaternion laid out as [x, y, z, w]
// (the W3C orientation sensor convention) into the internal layout.
func FromScalarLast(q [4]float64) Quaternion {
	return Quaternion{W: q[3], X: q[0], Y: q[1], Z: q[2]}
}

// FromEulerZXY builds the quaternion for intrinsic Z-X'-Y'' rotations by
// alpha, beta and gamma degrees, the DeviceOrientationEvent convention.
func FromEulerZXY(alpha, beta, gamma float64) Quaternion {
	cX := timeutil.CosD(beta / 2)
	cY := timeutil.CosD(gamma / 2)
	cZ := timeutil.CosD(alpha / 2)
	sX := timeutil.SinD(beta / 2)
	sY := timeutil.SinD(gamma / 2)
	sZ := timeutil.SinD(alpha / 2)

	return Quaternion{
		W: cX*cY*cZ - sX*sY*sZ,
		X: sX*cY*cZ - cX*sY*sZ,
		Y: cX*sY*cZ + sX*cY*sZ,
		Z: cX*cY*sZ + sX*sY*cZ,
	}
}

// Pure promotes v to the quaternion [0, x, y, z].
func Pure(v Vector3) Quaternion {
	return Quaternion{X: v.X, Y: v.Y, Z: v.Z}
}

// Vector drops the scalar part.
func (q Quaternion) Vector() Vector3 {
	return Vector3{X: q.X, Y: q.Y, Z: q.Z}
}

// Mul returns the Hamilton product q·r.
func (q Quaternion) Mul(r Quaternion) Quaternion {
	return Quaternion{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

// Conjugate negates the vector part.
func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// SquaredNorm returns w² + x² + y² + z².
func (q Quaternion) SquaredNorm() float64 {
	return q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z
}

// scaled divides q by its largest absolute component and returns that
// factor. The result has components in [-1, 1] and a squared norm in
// [1, 4], so badly scaled input neither overflows nor underflows.
func (q Quaternion) scaled() (Quaternion, float64, error) {
	m := math.Max(math.Max(math.Abs(q.W), math.Abs(q.X)), math.Max(math.Abs(q.Y), math.Abs(q.Z)))
	if m == 0 || !timeutil.Finite(m) {
		return Quaternion{}, 0, ErrZeroQuaternion
	}
	return Quaternion{W: q.W / m, X: q.X / m, Y: q.Y / m, Z: q.Z / m}, m, nil
}

// Inverse returns the conjugate divided by the squared norm, so non-unit
// quaternions still invert correctly. A zero quaternion has no inverse.
func (q Quaternion) Inverse() (Quaternion, error) {
	p, m, err := q.scaled()
	if err != nil {
		return Quaternion{}, err
	}
	d := p.SquaredNorm() * m
	c := p.Conjugate()
	return Quaternion{W: c.W / d, X: c.X / d, Y: c.Y / d, Z: c.Z / d}, nil
}

// Rotate applies the sandwich product q·v·q⁻¹. The product does not depend
// on the scale of q, so it is taken with q rescaled.
func (q Quaternion) Rotate(v Vector3) (Vector3, error) {
	p, _, err := q.scaled()
	if err != nil {
		return Vector3{}, err
	}
	inv, err := p.Inverse()
	if err != nil {
		return Vector3{}, err
	}
	return p.Mul(Pure(v)).Mul(inv).Vector(), nil
}

// Norm returns the Euclidean length of v.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}
