// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/cellforge/pkg/geom"
	"github.com/chazu/cellforge/pkg/kernel"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel = (*SdfxKernel)(nil)
	_ sdf.SDF3      = (*halfSpace)(nil)
	_ sdf.SDF3      = (*complement)(nil)
)

// DefaultWorld is the half width of the box unbounded solids report as
// their bounding box.
const DefaultWorld = 1e5

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// Distance evaluates the underlying SDF.
func (s *sdfxSolid) Distance(p geom.Vec) float64 {
	return s.s.Evaluate(v3.Vec{X: p.X, Y: p.Y, Z: p.Z})
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	world sdf.Box3
}

// New returns a new SdfxKernel whose unbounded solids report a world box of
// half width DefaultWorld.
func New() *SdfxKernel {
	return NewWithWorld(DefaultWorld)
}

// NewWithWorld is New with a custom world half width.
func NewWithWorld(half float64) *SdfxKernel {
	return &SdfxKernel{world: sdf.Box3{
		Min: v3.Vec{X: -half, Y: -half, Z: -half},
		Max: v3.Vec{X: half, Y: half, Z: half},
	}}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// halfSpace is one side of a surface. Surface values are exact distances
// for planes, cylinders and spheres, so the SDF is exact too.
type halfSpace struct {
	surf  kernel.Surface
	sense float64
	bb    sdf.Box3
}

func (h *halfSpace) Evaluate(p v3.Vec) float64 {
	return -h.sense * h.surf.Value(geom.Vec{X: p.X, Y: p.Y, Z: p.Z})
}

func (h *halfSpace) BoundingBox() sdf.Box3 { return h.bb }

// complement negates an SDF.
type complement struct {
	s  sdf.SDF3
	bb sdf.Box3
}

func (c *complement) Evaluate(p v3.Vec) float64 { return -c.s.Evaluate(p) }

func (c *complement) BoundingBox() sdf.Box3 { return c.bb }

// HalfSpace returns the positive (sense > 0) or negative side of s.
func (k *SdfxKernel) HalfSpace(s kernel.Surface, sense int) (kernel.Solid, error) {
	if s == nil || sense == 0 {
		return nil, fmt.Errorf("sdfx: half space needs a surface and a non-zero sense")
	}
	sign := 1.0
	if sense < 0 {
		sign = -1.0
	}
	return wrap(&halfSpace{surf: s, sense: sign, bb: k.world}), nil
}

// Box returns the axis-aligned box between min and max.
func (k *SdfxKernel) Box(min, max geom.Vec) (kernel.Solid, error) {
	size := v3.Vec{X: max.X - min.X, Y: max.Y - min.Y, Z: max.Z - min.Z}
	s, err := sdf.Box3D(size, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Box3D: %w", err)
	}
	// Box3D is centred on the origin.
	m := sdf.Translate3d(v3.Vec{X: (min.X + max.X) / 2, Y: (min.Y + max.Y) / 2, Z: (min.Z + max.Z) / 2})
	return wrap(sdf.Transform3D(s, m)), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

// Complement returns everything outside a solid.
func (k *SdfxKernel) Complement(a kernel.Solid) kernel.Solid {
	return wrap(&complement{s: unwrap(a), bb: k.world})
}
