// Package geom provides the small amount of 3D math the kernel needs on top
// of gonum: tolerances, unit-quaternion rotations in degrees, and a few
// vector helpers that read better at call sites than nested r3 calls.
package geom

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ZeroTol is the tolerance used for parallelism and degeneracy tests.
const ZeroTol = 1e-6

// Vec is the vector type used throughout cellforge.
type Vec = r3.Vec

// Canonical axes.
var (
	XAxis = Vec{X: 1}
	YAxis = Vec{Y: 1}
	ZAxis = Vec{Z: 1}
)

// Rotation is a unit quaternion. The zero value is not a valid rotation;
// use Identity.
type Rotation struct {
	q quat.Number
}

// Identity returns the rotation that leaves every vector unchanged.
func Identity() Rotation {
	return Rotation{q: quat.Number{Real: 1}}
}

// RotationDeg returns the rotation by angle degrees about axis, following
// the right-hand rule. The axis need not be normalized.
func RotationDeg(angle float64, axis Vec) Rotation {
	return RotationRad(angle*math.Pi/180.0, axis)
}

// RotationRad is RotationDeg in radians.
func RotationRad(angle float64, axis Vec) Rotation {
	if angle == 0 || r3.Norm(axis) == 0 {
		return Identity()
	}
	return Rotation{q: quat.Number(r3.NewRotation(angle, axis))}
}

// Then returns the rotation that applies r first and next second.
func (r Rotation) Then(next Rotation) Rotation {
	q := quat.Mul(next.q, r.q)
	if n := quat.Abs(q); n != 0 && n != 1 {
		q = quat.Scale(1/n, q)
	}
	return Rotation{q: q}
}

// Apply rotates v.
func (r Rotation) Apply(v Vec) Vec {
	if r.q == (quat.Number{}) {
		return v
	}
	return r3.Rotation(r.q).Rotate(v)
}

// Inverse returns the opposite rotation.
func (r Rotation) Inverse() Rotation {
	return Rotation{q: quat.Conj(r.q)}
}

// Unit returns v normalized. The zero vector is returned unchanged.
func Unit(v Vec) Vec {
	if r3.Norm(v) == 0 {
		return v
	}
	return r3.Unit(v)
}

// Neg returns -v.
func Neg(v Vec) Vec {
	return r3.Scale(-1, v)
}

// Combine returns o + a*u + b*v + c*w, the usual "offset along a basis".
func Combine(o Vec, a float64, u Vec, b float64, v Vec, c float64, w Vec) Vec {
	return r3.Add(o, r3.Add(r3.Scale(a, u), r3.Add(r3.Scale(b, v), r3.Scale(c, w))))
}

// Parallel reports whether a and b are parallel or anti-parallel within
// ZeroTol. A zero vector is treated as parallel to everything.
func Parallel(a, b Vec) bool {
	na, nb := r3.Norm(a), r3.Norm(b)
	if na == 0 || nb == 0 {
		return true
	}
	return math.Abs(r3.Dot(a, b)/(na*nb)) > 1.0-ZeroTol
}

// Near reports whether a and b differ by at most tol in every component.
func Near(a, b Vec, tol float64) bool {
	return scalar.EqualWithinAbs(a.X, b.X, tol) &&
		scalar.EqualWithinAbs(a.Y, b.Y, tol) &&
		scalar.EqualWithinAbs(a.Z, b.Z, tol)
}

// AngleAbout returns the signed angle in degrees, in (-180, 180], that
// rotates from onto to about axis. Both vectors are projected onto the
// plane normal to axis first.
func AngleAbout(from, to, axis Vec) float64 {
	n := Unit(axis)
	f := r3.Sub(from, r3.Scale(r3.Dot(from, n), n))
	t := r3.Sub(to, r3.Scale(r3.Dot(to, n), n))
	y := r3.Dot(r3.Cross(f, t), n)
	x := r3.Dot(f, t)
	return math.Atan2(y, x) * 180.0 / math.Pi
}

// Perpendicular returns some unit vector perpendicular to v.
func Perpendicular(v Vec) Vec {
	u := Unit(v)
	trial := XAxis
	if Parallel(u, trial) {
		trial = YAxis
	}
	return Unit(r3.Cross(u, trial))
}
