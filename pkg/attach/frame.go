// Package attach provides coordinate frames and their link points.
//
// A Frame is an immutable value: origin, an orthonormal right-handed basis
// (Z = X × Y), a beam axis that may diverge from Y, and a fixed number of
// link points (ports). Every operation returns a new Frame and never touches
// the receiver, so frames can be copied freely between sibling components.
//
// Link points are addressed by signed side index: +k is port k-1 seen from
// inside, -k is the same port seen from outside (axis negated, rule
// complemented) and 0 is the frame's own origin and beam axis.
package attach

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cellforge/pkg/geom"
	"github.com/chazu/cellforge/pkg/rule"
)

// Frame is a component's local coordinate system.
type Frame struct {
	origin  geom.Vec
	x, y, z geom.Vec
	beam    geom.Vec
	links   []LinkPoint
}

// CreateFrame builds a frame at origin whose Y axis follows beamAxis. X is
// beamAxis × zHint and Z completes the right-handed basis.
func CreateFrame(origin, beamAxis, zHint geom.Vec, nLinks int) (Frame, error) {
	if r3.Norm(beamAxis) < geom.ZeroTol {
		return Frame{}, &DegenerateGeometryError{Op: "CreateFrame", Reason: "zero beam axis"}
	}
	if r3.Norm(zHint) < geom.ZeroTol {
		return Frame{}, &DegenerateGeometryError{Op: "CreateFrame", Reason: "zero z hint"}
	}
	y := r3.Unit(beamAxis)
	if geom.Parallel(y, zHint) {
		return Frame{}, &DegenerateGeometryError{
			Op:     "CreateFrame",
			Reason: fmt.Sprintf("beam axis %v parallel to z hint %v", beamAxis, zHint),
		}
	}
	x := r3.Unit(r3.Cross(y, zHint))
	f := Frame{
		origin: origin,
		x:      x,
		y:      y,
		z:      r3.Cross(x, y),
		beam:   y,
		links:  newLinks(nLinks),
	}
	return f, nil
}

// MustCreateFrame is like CreateFrame but panics on error.
func MustCreateFrame(origin, beamAxis, zHint geom.Vec, nLinks int) Frame {
	f, err := CreateFrame(origin, beamAxis, zHint, nLinks)
	if err != nil {
		panic(err)
	}
	return f
}

// DeriveFrame copies the parent's origin, basis and beam axis. The child
// gets nLinks fresh, empty link points.
func DeriveFrame(parent Frame, nLinks int) Frame {
	return Frame{
		origin: parent.origin,
		x:      parent.x,
		y:      parent.y,
		z:      parent.z,
		beam:   parent.beam,
		links:  newLinks(nLinks),
	}
}

// DeriveFrameAt builds a frame on the parent's port |sideIndex|-1. The
// child's Y is the port axis, negated for a negative sideIndex. The parent's
// Z is used as the Z hint unless it is nearly parallel to the new Y, in
// which case the parent's X is used. sideIndex 0 is DeriveFrame.
func DeriveFrameAt(parent Frame, sideIndex, nLinks int) (Frame, error) {
	if sideIndex == 0 {
		return DeriveFrame(parent, nLinks), nil
	}
	lp, err := parent.link(sideIndex)
	if err != nil {
		return Frame{}, err
	}
	if !lp.HasPoint {
		return Frame{}, &EmptyLinkError{Index: lp.Index, Field: "connection point"}
	}
	if !lp.HasAxis {
		return Frame{}, &EmptyLinkError{Index: lp.Index, Field: "axis"}
	}
	y := lp.Axis
	if sideIndex < 0 {
		y = geom.Neg(y)
	}
	zHint := parent.z
	if math.Abs(r3.Dot(zHint, y)) > 1.0-geom.ZeroTol {
		zHint = parent.x
	}
	f, err := CreateFrame(lp.Point, y, zHint, nLinks)
	if err != nil {
		return Frame{}, fmt.Errorf("attach: derive at side %d: %w", sideIndex, err)
	}
	return f, nil
}

func newLinks(n int) []LinkPoint {
	if n < 0 {
		n = 0
	}
	links := make([]LinkPoint, n)
	for i := range links {
		links[i].Index = i
	}
	return links
}

// ----------------------------------------------------------------------------
// Accessors
// ----------------------------------------------------------------------------

func (f Frame) Origin() geom.Vec   { return f.origin }
func (f Frame) X() geom.Vec        { return f.x }
func (f Frame) Y() geom.Vec        { return f.y }
func (f Frame) Z() geom.Vec        { return f.z }
func (f Frame) BeamAxis() geom.Vec { return f.beam }

// NLinks returns the number of ports.
func (f Frame) NLinks() int { return len(f.links) }

// Local converts local coordinates (along X, Y, Z) into a global point.
func (f Frame) Local(dx, dy, dz float64) geom.Vec {
	return geom.Combine(f.origin, dx, f.x, dy, f.y, dz, f.z)
}

// ----------------------------------------------------------------------------
// Placement
// ----------------------------------------------------------------------------

// Shift moves the origin along the frame's own axes.
func (f Frame) Shift(dx, dy, dz float64) Frame {
	f.origin = f.Local(dx, dy, dz)
	return f
}

// Rotate applies an elevation of angleZ degrees about X followed by a turn
// of angleXY degrees about Z. Both axes are taken from the frame as it was
// before the call. The beam axis does not move.
func (f Frame) Rotate(angleXY, angleZ float64) Frame {
	q := geom.RotationDeg(angleZ, f.x).Then(geom.RotationDeg(angleXY, f.z))
	return f.rotateBasis(q, false)
}

// Rotate3 rotates about the frame's own X, then its moved Y, then its moved
// Z. That equals Z, Y, X applied about the axes before the call. The beam
// axis does not move.
func (f Frame) Rotate3(angleX, angleY, angleZ float64) Frame {
	q := geom.RotationDeg(angleZ, f.z).
		Then(geom.RotationDeg(angleY, f.y)).
		Then(geom.RotationDeg(angleX, f.x))
	return f.rotateBasis(q, false)
}

// RotateAbout rotates the basis and the beam axis by angle degrees about an
// arbitrary axis.
func (f Frame) RotateAbout(axis geom.Vec, angle float64) Frame {
	return f.rotateBasis(geom.RotationDeg(angle, axis), true)
}

// RotateAround is Rotate with the origin also swung about centre.
func (f Frame) RotateAround(angleXY, angleZ float64, centre geom.Vec) Frame {
	q := geom.RotationDeg(angleZ, f.x).Then(geom.RotationDeg(angleXY, f.z))
	g := f.rotateBasis(q, false)
	g.origin = r3.Add(centre, q.Apply(r3.Sub(f.origin, centre)))
	return g
}

// ReverseZ flips Z and X, keeping Y.
func (f Frame) ReverseZ() Frame {
	f.x = geom.Neg(f.x)
	f.z = geom.Neg(f.z)
	return f
}

func (f Frame) rotateBasis(q geom.Rotation, withBeam bool) Frame {
	x := q.Apply(f.x)
	y := q.Apply(f.y)
	// Re-orthonormalize: Y leads, X is made orthogonal to it, Z follows.
	y = geom.Unit(y)
	x = geom.Unit(r3.Sub(x, r3.Scale(r3.Dot(x, y), y)))
	f.x, f.y, f.z = x, y, r3.Cross(x, y)
	if withBeam {
		f.beam = geom.Unit(q.Apply(f.beam))
	}
	return f
}

// ----------------------------------------------------------------------------
// Link points
// ----------------------------------------------------------------------------

// Resize returns a frame with n ports. Existing ports are kept up to n.
func (f Frame) Resize(n int) Frame {
	links := newLinks(n)
	copy(links, f.links)
	f.links = links
	return f
}

// withLink returns a copy of f with port i replaced. The link slice is
// copied so the receiver's ports are never shared.
func (f Frame) withLink(i int, lp LinkPoint) Frame {
	links := make([]LinkPoint, len(f.links))
	copy(links, f.links)
	lp.Index = i
	links[i] = lp
	f.links = links
	return f
}

func (f Frame) checkIndex(i int) error {
	if i < 0 || i >= len(f.links) {
		return &IndexError{Index: i, Size: len(f.links)}
	}
	return nil
}

// link resolves a non-zero signed side index to the stored port.
func (f Frame) link(sideIndex int) (LinkPoint, error) {
	i := sideIndex - 1
	if sideIndex < 0 {
		i = -sideIndex - 1
	}
	if sideIndex == 0 || i >= len(f.links) {
		return LinkPoint{}, &IndexError{Index: sideIndex, Size: len(f.links)}
	}
	return f.links[i], nil
}

// Link returns a copy of port i (zero based).
func (f Frame) Link(i int) (LinkPoint, error) {
	if err := f.checkIndex(i); err != nil {
		return LinkPoint{}, err
	}
	return f.links[i], nil
}

// AttachLinkPoint populates port i with a point, a unit axis, a main rule
// and an optional common rule.
func (f Frame) AttachLinkPoint(i int, point, axis geom.Vec, main rule.Rule, common ...rule.Rule) (Frame, error) {
	if err := f.checkIndex(i); err != nil {
		return f, err
	}
	if r3.Norm(axis) < geom.ZeroTol {
		return f, &DegenerateGeometryError{Op: "AttachLinkPoint", Reason: fmt.Sprintf("zero axis on link %d", i)}
	}
	lp := LinkPoint{
		Point:    point,
		Axis:     r3.Unit(axis),
		Main:     main,
		HasPoint: true,
		HasAxis:  true,
	}
	if len(common) > 0 {
		lp.Common = rule.All(common...)
	}
	return f.withLink(i, lp), nil
}

// SetConnect sets the point and axis of port i, keeping its rules.
func (f Frame) SetConnect(i int, point, axis geom.Vec) (Frame, error) {
	if err := f.checkIndex(i); err != nil {
		return f, err
	}
	if r3.Norm(axis) < geom.ZeroTol {
		return f, &DegenerateGeometryError{Op: "SetConnect", Reason: fmt.Sprintf("zero axis on link %d", i)}
	}
	lp := f.links[i]
	lp.Point, lp.Axis = point, r3.Unit(axis)
	lp.HasPoint, lp.HasAxis = true, true
	return f.withLink(i, lp), nil
}

// SetLinkRule replaces the main rule of port i.
func (f Frame) SetLinkRule(i int, main rule.Rule) (Frame, error) {
	if err := f.checkIndex(i); err != nil {
		return f, err
	}
	lp := f.links[i]
	lp.Main = main
	return f.withLink(i, lp), nil
}

// AddLinkRule intersects r into the main rule of port i. The point and axis
// are left as they are.
func (f Frame) AddLinkRule(i int, r rule.Rule) (Frame, error) {
	if err := f.checkIndex(i); err != nil {
		return f, err
	}
	lp := f.links[i]
	lp.Main = rule.Intersect(lp.Main, r)
	return f.withLink(i, lp), nil
}

// SetBridgeRule replaces the bridge rule of port i.
func (f Frame) SetBridgeRule(i int, bridge rule.Rule) (Frame, error) {
	if err := f.checkIndex(i); err != nil {
		return f, err
	}
	lp := f.links[i]
	lp.Bridge = bridge
	return f.withLink(i, lp), nil
}

// AddBridgeRule intersects r into the bridge rule of port i.
func (f Frame) AddBridgeRule(i int, r rule.Rule) (Frame, error) {
	if err := f.checkIndex(i); err != nil {
		return f, err
	}
	lp := f.links[i]
	lp.Bridge = rule.Intersect(lp.Bridge, r)
	return f.withLink(i, lp), nil
}

// BridgeFrom sets the bridge rule of port i to the far side of another
// frame's port: the complement of its main rule.
func (f Frame) BridgeFrom(i int, other Frame, sideIndex int) (Frame, error) {
	v, err := other.QueryLinkPoint(sideIndex)
	if err != nil {
		return f, err
	}
	return f.SetBridgeRule(i, rule.ComplementOf(v.Main))
}

// SetExit sets the point and axis of port 1.
func (f Frame) SetExit(point, axis geom.Vec) (Frame, error) {
	if len(f.links) < 2 {
		return f, &IndexError{Index: 1, Size: len(f.links)}
	}
	return f.SetConnect(1, point, axis)
}

// Exit is the point of port 1, or the origin while it is unset.
func (f Frame) Exit() geom.Vec {
	if len(f.links) > 1 && f.links[1].HasPoint {
		return f.links[1].Point
	}
	return f.origin
}

// ExitAxis is the axis of port 1, or the beam axis while it is unset.
func (f Frame) ExitAxis() geom.Vec {
	if len(f.links) > 1 && f.links[1].HasAxis {
		return f.links[1].Axis
	}
	return f.beam
}

// SetCommonRule replaces the common rule of port i.
func (f Frame) SetCommonRule(i int, common rule.Rule) (Frame, error) {
	if err := f.checkIndex(i); err != nil {
		return f, err
	}
	lp := f.links[i]
	lp.Common = common
	return f.withLink(i, lp), nil
}

// SetBasicExtent places the six conventional box ports at half widths
// along each axis: 0/1 at -/+Y, 2/3 at -/+X, 4/5 at -/+Z. The frame must
// have exactly six ports.
func (f Frame) SetBasicExtent(halfX, halfY, halfZ float64) (Frame, error) {
	if len(f.links) != 6 {
		return f, &IndexError{Index: 6, Size: len(f.links)}
	}
	type port struct {
		offset float64
		axis   geom.Vec
	}
	ports := []port{
		{-halfY, geom.Neg(f.y)}, {halfY, f.y},
		{-halfX, geom.Neg(f.x)}, {halfX, f.x},
		{-halfZ, geom.Neg(f.z)}, {halfZ, f.z},
	}
	links := make([]LinkPoint, 6)
	copy(links, f.links)
	for i, p := range ports {
		dir := geom.Unit(p.axis)
		links[i].Point = r3.Add(f.origin, r3.Scale(math.Abs(p.offset), dir))
		links[i].Axis = dir
		links[i].HasPoint, links[i].HasAxis = true, true
	}
	f.links = links
	return f, nil
}

// CopySignedLink copies another frame's port into port i. A positive
// sideIndex copies it as is; a negative one copies the view from the other
// side (axis negated, main rule complemented).
func (f Frame) CopySignedLink(i int, other Frame, sideIndex int) (Frame, error) {
	if err := f.checkIndex(i); err != nil {
		return f, err
	}
	lp, err := other.link(sideIndex)
	if err != nil {
		return f, err
	}
	if sideIndex < 0 {
		lp.Axis = geom.Neg(lp.Axis)
		lp.Main = rule.ComplementOf(lp.Main)
	}
	return f.withLink(i, lp), nil
}

// LinkAngleRotate turns the axis of port |sideIndex|-1 by an elevation
// about X and a turn about Z. The angles are negated for negative indexes so
// that the rotation is seen the same way from either side.
func (f Frame) LinkAngleRotate(sideIndex int, angleXY, angleZ float64) (Frame, error) {
	lp, err := f.link(sideIndex)
	if err != nil {
		return f, err
	}
	sign := 1.0
	if sideIndex < 0 {
		sign = -1.0
	}
	q := geom.RotationDeg(sign*angleZ, f.x).Then(geom.RotationDeg(sign*angleXY, f.z))
	lp.Axis = geom.Unit(q.Apply(lp.Axis))
	return f.withLink(lp.Index, lp), nil
}

// QueryLinkPoint returns the view of a port from the given side. Index 0 is
// the frame origin and beam axis with empty rules. The common and bridge
// rules read the same from both sides.
func (f Frame) QueryLinkPoint(sideIndex int) (LinkView, error) {
	if sideIndex == 0 {
		return LinkView{Point: f.origin, Axis: f.beam}, nil
	}
	lp, err := f.link(sideIndex)
	if err != nil {
		return LinkView{}, err
	}
	v := LinkView{
		Index:    sideIndex,
		Point:    lp.Point,
		Axis:     lp.Axis,
		Main:     lp.Main,
		Common:   lp.Common,
		Bridge:   lp.Bridge,
		HasPoint: lp.HasPoint,
		HasAxis:  lp.HasAxis,
	}
	if sideIndex < 0 {
		v.Axis = geom.Neg(v.Axis)
		v.Main = rule.ComplementOf(v.Main)
	}
	return v, nil
}

// FindLinkAxis returns the zero-based port whose axis points most nearly
// along dir.
func (f Frame) FindLinkAxis(dir geom.Vec) int {
	best, bestDot := 0, math.Inf(-1)
	for i, lp := range f.links {
		if !lp.HasAxis {
			continue
		}
		if d := r3.Dot(dir, lp.Axis); d > bestDot {
			best, bestDot = i, d
		}
	}
	return best
}

// LinkAxes returns a right-handed orthonormal triple at a port: Y along the
// signed port axis, Z as close to the frame's Z as possible (frame X when Z
// is parallel to the port axis). Index 0 gives the frame basis.
func (f Frame) LinkAxes(sideIndex int) (x, y, z geom.Vec, err error) {
	if sideIndex == 0 {
		return f.x, f.y, f.z, nil
	}
	v, err := f.QueryLinkPoint(sideIndex)
	if err != nil {
		return x, y, z, err
	}
	if !v.HasAxis {
		return x, y, z, &EmptyLinkError{Index: absInt(sideIndex) - 1, Field: "axis"}
	}
	y = v.Axis
	zPrime := f.z
	if geom.Parallel(zPrime, y) {
		zPrime = f.x
	}
	x = geom.Unit(r3.Cross(y, zPrime))
	z = r3.Cross(x, y)
	return x, y, z, nil
}

func absInt(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
