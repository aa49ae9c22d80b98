// Package surface defines the primitive surfaces cells are built from.
//
// Every surface splits space into a positive and a negative side. Value
// returns a signed distance: positive on the positive side, zero on the
// surface. Planes are positive along their normal; cylinders and spheres are
// positive outside.
package surface

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cellforge/pkg/geom"
)

// Kind identifies a surface type.
type Kind int

const (
	KindPlane Kind = iota
	KindCylinder
	KindSphere
)

func (k Kind) String() string {
	switch k {
	case KindPlane:
		return "plane"
	case KindCylinder:
		return "cylinder"
	case KindSphere:
		return "sphere"
	default:
		return "unknown"
	}
}

// Surface is a primitive surface.
type Surface interface {
	Kind() Kind
	// Value is the signed distance from p to the surface.
	Value(p geom.Vec) float64
	// Card renders the surface in the target solver's mnemonic form, without
	// the surface number.
	Card() string
}

// Side returns +1 or -1 for the side of s that p lies on, or 0 when p is
// within tol of the surface.
func Side(s Surface, p geom.Vec, tol float64) int {
	v := s.Value(p)
	switch {
	case v > tol:
		return 1
	case v < -tol:
		return -1
	}
	return 0
}

// DegenerateError is returned by constructors for zero normals, zero axes
// or non-positive radii.
type DegenerateError struct {
	Kind   Kind
	Reason string
}

func (e *DegenerateError) Error() string {
	return fmt.Sprintf("surface: degenerate %s: %s", e.Kind, e.Reason)
}

// ----------------------------------------------------------------------------
// Plane
// ----------------------------------------------------------------------------

// Plane is the set of points p with Normal·p = Dist.
type Plane struct {
	Normal geom.Vec // unit
	Dist   float64
}

// NewPlane builds the plane through point with the given normal.
func NewPlane(point, normal geom.Vec) (*Plane, error) {
	if r3.Norm(normal) < geom.ZeroTol {
		return nil, &DegenerateError{Kind: KindPlane, Reason: "zero normal"}
	}
	n := r3.Unit(normal)
	return &Plane{Normal: n, Dist: r3.Dot(n, point)}, nil
}

func (s *Plane) Kind() Kind { return KindPlane }

func (s *Plane) Value(p geom.Vec) float64 {
	return r3.Dot(s.Normal, p) - s.Dist
}

func (s *Plane) Card() string {
	// px/py/pz are positive along +axis, so only positive normals use them.
	if axis, sign := alignedAxis(s.Normal); axis != 0 && sign > 0 {
		return fmt.Sprintf("p%c %s", axis, num(s.Dist))
	}
	return "p " + nums(s.Normal.X, s.Normal.Y, s.Normal.Z, s.Dist)
}

// ----------------------------------------------------------------------------
// Cylinder
// ----------------------------------------------------------------------------

// Cylinder is an infinite circular cylinder.
type Cylinder struct {
	Centre geom.Vec // any point on the axis
	Axis   geom.Vec // unit
	Radius float64
}

// NewCylinder builds the cylinder of the given radius about the line
// through centre along axis.
func NewCylinder(centre, axis geom.Vec, radius float64) (*Cylinder, error) {
	if r3.Norm(axis) < geom.ZeroTol {
		return nil, &DegenerateError{Kind: KindCylinder, Reason: "zero axis"}
	}
	if radius <= 0 {
		return nil, &DegenerateError{Kind: KindCylinder, Reason: fmt.Sprintf("radius %g", radius)}
	}
	return &Cylinder{Centre: centre, Axis: r3.Unit(axis), Radius: radius}, nil
}

func (s *Cylinder) Kind() Kind { return KindCylinder }

func (s *Cylinder) Value(p geom.Vec) float64 {
	d := r3.Sub(p, s.Centre)
	radial := r3.Sub(d, r3.Scale(r3.Dot(d, s.Axis), s.Axis))
	return r3.Norm(radial) - s.Radius
}

// Card writes axis-aligned cylinders as c/x, c/y or c/z and anything else
// as a general quadric.
func (s *Cylinder) Card() string {
	c := s.Centre
	switch axis, _ := alignedAxis(s.Axis); axis {
	case 'x':
		return "c/x " + nums(c.Y, c.Z, s.Radius)
	case 'y':
		return "c/y " + nums(c.X, c.Z, s.Radius)
	case 'z':
		return "c/z " + nums(c.X, c.Y, s.Radius)
	}
	// |d|^2 - (d.a)^2 - r^2 with d = p - c.
	a := s.Axis
	ca := r3.Dot(c, a)
	return "gq " + nums(
		1-a.X*a.X, 1-a.Y*a.Y, 1-a.Z*a.Z,
		-2*a.X*a.Y, -2*a.Y*a.Z, -2*a.Z*a.X,
		-2*c.X+2*ca*a.X, -2*c.Y+2*ca*a.Y, -2*c.Z+2*ca*a.Z,
		r3.Dot(c, c)-ca*ca-s.Radius*s.Radius,
	)
}

// ----------------------------------------------------------------------------
// Sphere
// ----------------------------------------------------------------------------

// Sphere is a sphere about Centre.
type Sphere struct {
	Centre geom.Vec
	Radius float64
}

// NewSphere builds a sphere.
func NewSphere(centre geom.Vec, radius float64) (*Sphere, error) {
	if radius <= 0 {
		return nil, &DegenerateError{Kind: KindSphere, Reason: fmt.Sprintf("radius %g", radius)}
	}
	return &Sphere{Centre: centre, Radius: radius}, nil
}

func (s *Sphere) Kind() Kind { return KindSphere }

func (s *Sphere) Value(p geom.Vec) float64 {
	return r3.Norm(r3.Sub(p, s.Centre)) - s.Radius
}

func (s *Sphere) Card() string {
	if s.Centre == (geom.Vec{}) {
		return "so " + num(s.Radius)
	}
	return "s " + nums(s.Centre.X, s.Centre.Y, s.Centre.Z, s.Radius)
}

// ----------------------------------------------------------------------------
// Formatting helpers
// ----------------------------------------------------------------------------

// alignedAxis reports which coordinate axis v lies along, if any, and the
// sign of that component.
func alignedAxis(v geom.Vec) (byte, float64) {
	const tol = 1e-12
	switch {
	case math.Abs(v.Y) < tol && math.Abs(v.Z) < tol:
		return 'x', math.Copysign(1, v.X)
	case math.Abs(v.X) < tol && math.Abs(v.Z) < tol:
		return 'y', math.Copysign(1, v.Y)
	case math.Abs(v.X) < tol && math.Abs(v.Y) < tol:
		return 'z', math.Copysign(1, v.Z)
	}
	return 0, 1
}

func num(v float64) string {
	if math.Abs(v) < 1e-12 {
		v = 0
	}
	return fmt.Sprintf("%.10g", v)
}

func nums(vs ...float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = num(v)
	}
	return strings.Join(parts, " ")
}
