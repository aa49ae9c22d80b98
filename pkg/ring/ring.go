// Package ring builds a radial ring of bolts, the composition pattern used
// for flanges and housings.
//
// With NBolts == 1 the ring is welded: a single wall cell fills the space
// between the front/back and edge rules. Otherwise the ring is cut into
// NBolts wedges by divider planes through the axis. Each wedge holds one
// bolt bore and a wall cell around it, plus a seal cell when a seal rule is
// given. Bolt i sits at AngleOffset + i·step; the dividers sit half a step
// either side of it.
//
// Surfaces live at SurfOffset+100+10i+7 (bolt cylinder) and
// SurfOffset+100+10i+3 (divider plane) in the owning component's block.
package ring

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cellforge/pkg/attach"
	"github.com/chazu/cellforge/pkg/geom"
	"github.com/chazu/cellforge/pkg/model"
	"github.com/chazu/cellforge/pkg/rule"
	"github.com/chazu/cellforge/pkg/surface"
)

// Cell group names.
const (
	GroupBolts = "Bolts"
	GroupWall  = "Wall"
	GroupSeal  = "Seal"
)

// Params describes one ring.
type Params struct {
	SurfOffset  int
	Centre      geom.Vec
	Axis        geom.Vec
	Radial      geom.Vec // direction of angle zero; zero picks one normal to Axis
	NBolts      int
	PitchRadius float64 // radius of the bolt circle
	BoltRadius  float64 // radius of each bolt bore
	AngleOffset float64 // degrees, about Axis

	FrontBack rule.Rule // bounds the ring along the axis
	Edge      rule.Rule // bounds the ring radially
	Seal      rule.Rule // optional seal region inside the ring

	BoltMat     string
	WallMat     string
	SealMat     string
	Temperature float64
}

// Wedge is the angular sector between two divider planes.
type Wedge struct {
	Index int
	Start geom.Vec // radial direction of the lower divider
	End   geom.Vec // radial direction of the upper divider
	Span  float64  // degrees
}

// Result records what a ring emitted.
type Result struct {
	NBolts    int
	Axis      geom.Vec
	Bolts     []int // cell numbers
	Walls     []int
	Seals     []int
	Cylinders []int // surface numbers
	Dividers  []int
	Wedges    []Wedge
}

// Cells returns every emitted cell number in emission order groups.
func (r Result) Cells() []int {
	out := make([]int, 0, len(r.Bolts)+len(r.Walls)+len(r.Seals))
	out = append(out, r.Bolts...)
	out = append(out, r.Walls...)
	return append(out, r.Seals...)
}

func (p Params) check() error {
	if p.NBolts < 1 {
		return &attach.DegenerateGeometryError{Op: "ring", Reason: fmt.Sprintf("NBolts %d < 1", p.NBolts)}
	}
	if p.FrontBack.IsEmpty() || p.Edge.IsEmpty() {
		return &attach.DegenerateGeometryError{Op: "ring", Reason: "front/back and edge rules are required"}
	}
	if p.NBolts == 1 {
		return nil
	}
	if r3.Norm(p.Axis) < geom.ZeroTol {
		return &attach.DegenerateGeometryError{Op: "ring", Reason: "zero axis"}
	}
	if p.Radial != (geom.Vec{}) && geom.Parallel(p.Radial, p.Axis) {
		return &attach.DegenerateGeometryError{Op: "ring", Reason: "radial direction parallel to axis"}
	}
	if p.PitchRadius <= 0 || p.BoltRadius <= 0 {
		return &attach.DegenerateGeometryError{
			Op:     "ring",
			Reason: fmt.Sprintf("pitch radius %g and bolt radius %g must be positive", p.PitchRadius, p.BoltRadius),
		}
	}
	// A bore must not cross its wedge's dividers.
	half := math.Pi / float64(p.NBolts)
	if room := p.PitchRadius * math.Sin(math.Min(half, math.Pi/2)); p.BoltRadius >= room {
		return &attach.DegenerateGeometryError{
			Op:     "ring",
			Reason: fmt.Sprintf("bolt radius %g does not fit between dividers (max %g)", p.BoltRadius, room),
		}
	}
	return nil
}

// zeroDirection is the unit radial direction at angle zero.
func (p Params) zeroDirection() geom.Vec {
	axis := geom.Unit(p.Axis)
	if p.Radial == (geom.Vec{}) {
		return geom.Perpendicular(axis)
	}
	// Remove any axial part so the ring is planar.
	r := r3.Sub(p.Radial, r3.Scale(r3.Dot(p.Radial, axis), axis))
	return geom.Unit(r)
}

// Build emits the ring's surfaces and cells into c, which must already be
// registered in s.
func Build(s *model.Session, c *model.Component, p Params) (Result, error) {
	if err := p.check(); err != nil {
		return Result{}, err
	}
	if c.SMap == nil {
		return Result{}, fmt.Errorf("ring: component %s is not registered", c.KeyName)
	}
	res := Result{NBolts: p.NBolts, Axis: geom.Unit(p.Axis)}

	var sealOut rule.Rule
	if !p.Seal.IsEmpty() {
		sealOut = rule.ComplementOf(p.Seal)
	}

	if p.NBolts == 1 {
		n, err := c.AddCell(s, GroupWall, p.WallMat, p.Temperature, rule.Intersect(p.FrontBack, p.Edge))
		if err != nil {
			return Result{}, err
		}
		res.Walls = append(res.Walls, n)
		dir := p.zeroDirection()
		res.Wedges = []Wedge{{Index: 0, Start: dir, End: dir, Span: 360}}
		return res, nil
	}

	axis := res.Axis
	step := 360.0 / float64(p.NBolts)
	zero := p.zeroDirection()
	start := geom.RotationDeg(p.AngleOffset, axis)
	halfSeg := geom.RotationDeg(step/2, axis)

	dividerDirs := make([]geom.Vec, p.NBolts)
	for i := 0; i < p.NBolts; i++ {
		seg := geom.RotationDeg(float64(i)*step, axis)
		boltDir := start.Then(seg).Apply(zero)
		divDir := start.Then(halfSeg).Then(seg).Apply(zero)
		dividerDirs[i] = divDir

		boltC := r3.Add(p.Centre, r3.Scale(p.PitchRadius, boltDir))
		cyl, err := surface.NewCylinder(boltC, axis, p.BoltRadius)
		if err != nil {
			return Result{}, err
		}
		// Divider normal is the tangent, pointing towards increasing angle.
		plane, err := surface.NewPlane(p.Centre, r3.Cross(axis, divDir))
		if err != nil {
			return Result{}, err
		}
		idx := p.SurfOffset + 100 + 10*i
		cylID, err := c.SMap.AddSurface(idx+7, cyl)
		if err != nil {
			return Result{}, err
		}
		planeID, err := c.SMap.AddSurface(idx+3, plane)
		if err != nil {
			return Result{}, err
		}
		res.Cylinders = append(res.Cylinders, cylID)
		res.Dividers = append(res.Dividers, planeID)
	}

	prev := p.SurfOffset + 100 + 10*(p.NBolts-1)
	for i := 0; i < p.NBolts; i++ {
		idx := p.SurfOffset + 100 + 10*i

		bore, err := c.SMap.Composite("-7", idx)
		if err != nil {
			return Result{}, err
		}
		n, err := c.AddCell(s, GroupBolts, p.BoltMat, p.Temperature, rule.Intersect(bore, p.FrontBack))
		if err != nil {
			return Result{}, err
		}
		res.Bolts = append(res.Bolts, n)

		wall, err := c.SMap.Composite("3 -3M 7M", prev, idx)
		if err != nil {
			return Result{}, err
		}
		n, err = c.AddCell(s, GroupWall, p.WallMat, p.Temperature,
			rule.All(wall, p.FrontBack, p.Edge, sealOut))
		if err != nil {
			return Result{}, err
		}
		res.Walls = append(res.Walls, n)

		if !p.Seal.IsEmpty() {
			wedge, err := c.SMap.Composite("3 -3M", prev, idx)
			if err != nil {
				return Result{}, err
			}
			n, err = c.AddCell(s, GroupSeal, p.SealMat, p.Temperature, rule.Intersect(wedge, p.Seal))
			if err != nil {
				return Result{}, err
			}
			res.Seals = append(res.Seals, n)
		}

		lo := dividerDirs[(i+p.NBolts-1)%p.NBolts]
		hi := dividerDirs[i]
		res.Wedges = append(res.Wedges, Wedge{
			Index: i,
			Start: lo,
			End:   hi,
			Span:  wedgeSpan(lo, hi, axis),
		})
		prev = idx
	}
	return res, nil
}

// wedgeSpan is the angle from lo to hi about axis in (0, 360].
func wedgeSpan(lo, hi, axis geom.Vec) float64 {
	a := geom.AngleAbout(lo, hi, axis)
	if a <= 0 {
		a += 360
	}
	return a
}
