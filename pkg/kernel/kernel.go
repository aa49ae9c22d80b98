// Package kernel defines the abstract solid kernel used to check cells.
//
// Cell rules are compiled into solids: each signed surface literal becomes
// a half space, intersections and unions map onto the kernel's booleans and
// complements onto its negation. Solids answer point membership, which is
// all the partition and volume checks need. The sdfx subpackage provides
// the implementation.
package kernel

import "github.com/chazu/cellforge/pkg/geom"

// Solid is an opaque handle to a kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box. Unbounded solids
	// report the kernel's world extent.
	BoundingBox() (min, max [3]float64)

	// Distance is a signed distance bound, negative inside.
	Distance(p geom.Vec) float64
}

// Inside reports whether p lies strictly inside s.
func Inside(s Solid, p geom.Vec) bool {
	return s.Distance(p) < 0
}

// Kernel is the abstract solid kernel interface.
type Kernel interface {
	// Primitives
	HalfSpace(s Surface, sense int) (Solid, error)
	Box(min, max geom.Vec) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Intersection(a, b Solid) Solid
	Complement(a Solid) Solid
}

// Surface is the view of a surface the kernel needs: a value that is
// negative on the minus side, zero on the surface and positive on the plus
// side.
type Surface interface {
	Value(p geom.Vec) float64
}
