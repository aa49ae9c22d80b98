package attach

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
	"pgregory.net/rapid"

	"github.com/chazu/cellforge/pkg/geom"
	"github.com/chazu/cellforge/pkg/rule"
)

const tol = 1e-10

func assertVec(t *testing.T, name string, got, want geom.Vec) {
	t.Helper()
	if !geom.Near(got, want, tol) {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func checkOrthonormal(f Frame) error {
	for _, v := range []geom.Vec{f.X(), f.Y(), f.Z()} {
		if math.Abs(r3.Norm(v)-1) > tol {
			return errors.New("axis not unit length")
		}
	}
	if math.Abs(r3.Dot(f.X(), f.Y())) > tol ||
		math.Abs(r3.Dot(f.Y(), f.Z())) > tol ||
		math.Abs(r3.Dot(f.Z(), f.X())) > tol {
		return errors.New("axes not orthogonal")
	}
	if !geom.Near(r3.Cross(f.X(), f.Y()), f.Z(), tol) {
		return errors.New("Z != X × Y")
	}
	return nil
}

func TestCreateFrameBasis(t *testing.T) {
	f, err := CreateFrame(geom.Vec{}, geom.YAxis, geom.ZAxis, 0)
	if err != nil {
		t.Fatal(err)
	}
	assertVec(t, "X", f.X(), geom.XAxis)
	assertVec(t, "Y", f.Y(), geom.YAxis)
	assertVec(t, "Z", f.Z(), geom.ZAxis)
	assertVec(t, "BeamAxis", f.BeamAxis(), geom.YAxis)
}

func TestCreateFrameDegenerate(t *testing.T) {
	tests := []struct {
		name        string
		beam, zHint geom.Vec
	}{
		{"parallel", geom.YAxis, geom.Vec{Y: 3}},
		{"antiparallel", geom.ZAxis, geom.Vec{Z: -1}},
		{"zero beam", geom.Vec{}, geom.ZAxis},
		{"zero hint", geom.XAxis, geom.Vec{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateFrame(geom.Vec{}, tt.beam, tt.zHint, 0)
			var de *DegenerateGeometryError
			if !errors.As(err, &de) {
				t.Fatalf("err = %v, want DegenerateGeometryError", err)
			}
		})
	}
}

func TestShiftUsesLocalAxes(t *testing.T) {
	f := MustCreateFrame(geom.Vec{X: 1}, geom.XAxis, geom.ZAxis, 0)
	// Y is global X, X is global -Y.
	g := f.Shift(2, 3, 4)
	assertVec(t, "Origin", g.Origin(), geom.Vec{X: 4, Y: -2, Z: 4})
	assertVec(t, "receiver unchanged", f.Origin(), geom.Vec{X: 1})
}

func TestRotate(t *testing.T) {
	f := MustCreateFrame(geom.Vec{}, geom.YAxis, geom.ZAxis, 0)

	g := f.Rotate(90, 0)
	assertVec(t, "xy-turn Y", g.Y(), geom.Neg(geom.XAxis))
	assertVec(t, "xy-turn X", g.X(), geom.YAxis)
	assertVec(t, "beam untouched", g.BeamAxis(), geom.YAxis)

	h := f.Rotate(0, 90)
	assertVec(t, "elevation Y", h.Y(), geom.ZAxis)
	assertVec(t, "elevation Z", h.Z(), geom.Neg(geom.YAxis))

	// Elevation first, then the turn about the original Z.
	k := f.Rotate(90, 90)
	assertVec(t, "combined Y", k.Y(), geom.ZAxis)
	assertVec(t, "combined X", k.X(), geom.YAxis)
}

func TestRotate3Order(t *testing.T) {
	f := MustCreateFrame(geom.Vec{}, geom.YAxis, geom.ZAxis, 0)
	g := f.Rotate3(90, 0, 90)
	// X turn sends Y to Z; the turn about the moved Z (old -Y) sends X to Z.
	assertVec(t, "X", g.X(), geom.ZAxis)
	assertVec(t, "Y", g.Y(), geom.Neg(geom.XAxis))

	// Same as stepping about the current axes one at a time.
	h := f.RotateAbout(f.X(), 30)
	h = h.RotateAbout(h.Y(), 40)
	h = h.RotateAbout(h.Z(), 50)
	k := f.Rotate3(30, 40, 50)
	assertVec(t, "stepped X", k.X(), h.X())
	assertVec(t, "stepped Y", k.Y(), h.Y())
	assertVec(t, "stepped Z", k.Z(), h.Z())
}

func TestRotateAboutMovesBeam(t *testing.T) {
	f := MustCreateFrame(geom.Vec{}, geom.YAxis, geom.ZAxis, 0)
	g := f.RotateAbout(geom.ZAxis, 90)
	assertVec(t, "beam", g.BeamAxis(), geom.Neg(geom.XAxis))
	assertVec(t, "Y", g.Y(), geom.Neg(geom.XAxis))
}

func TestRotateAround(t *testing.T) {
	f := MustCreateFrame(geom.Vec{X: 2}, geom.YAxis, geom.ZAxis, 0)
	g := f.RotateAround(90, 0, geom.Vec{})
	assertVec(t, "Origin", g.Origin(), geom.Vec{Y: 2})
}

func TestReverseZ(t *testing.T) {
	f := MustCreateFrame(geom.Vec{}, geom.YAxis, geom.ZAxis, 0).ReverseZ()
	assertVec(t, "X", f.X(), geom.Neg(geom.XAxis))
	assertVec(t, "Z", f.Z(), geom.Neg(geom.ZAxis))
	if err := checkOrthonormal(f); err != nil {
		t.Error(err)
	}
}

func boxFrame(t *testing.T) Frame {
	t.Helper()
	f := MustCreateFrame(geom.Vec{Y: 10}, geom.YAxis, geom.ZAxis, 6)
	f, err := f.SetBasicExtent(1, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		f, err = f.SetLinkRule(i, rule.Literal(101+i))
		if err != nil {
			t.Fatal(err)
		}
	}
	return f
}

func TestSetBasicExtent(t *testing.T) {
	f := boxFrame(t)
	tests := []struct {
		side        int
		point, axis geom.Vec
	}{
		{1, geom.Vec{Y: 8}, geom.Neg(geom.YAxis)},
		{2, geom.Vec{Y: 12}, geom.YAxis},
		{3, geom.Vec{X: -1, Y: 10}, geom.Neg(geom.XAxis)},
		{4, geom.Vec{X: 1, Y: 10}, geom.XAxis},
		{5, geom.Vec{Y: 10, Z: -3}, geom.Neg(geom.ZAxis)},
		{6, geom.Vec{Y: 10, Z: 3}, geom.ZAxis},
	}
	for _, tt := range tests {
		v, err := f.QueryLinkPoint(tt.side)
		if err != nil {
			t.Fatal(err)
		}
		assertVec(t, "point", v.Point, tt.point)
		assertVec(t, "axis", v.Axis, tt.axis)
	}
	if _, err := MustCreateFrame(geom.Vec{}, geom.YAxis, geom.ZAxis, 4).SetBasicExtent(1, 1, 1); err == nil {
		t.Error("SetBasicExtent accepted a frame without six links")
	}
}

func TestDeriveFrameAtNegativeSide(t *testing.T) {
	parent := boxFrame(t)
	child, err := DeriveFrameAt(parent, -2, 2)
	if err != nil {
		t.Fatal(err)
	}
	lp, _ := parent.Link(1)
	assertVec(t, "child Y", child.Y(), geom.Neg(lp.Axis))
	assertVec(t, "child origin", child.Origin(), lp.Point)
	if child.NLinks() != 2 {
		t.Errorf("NLinks = %d, want 2", child.NLinks())
	}
	if err := checkOrthonormal(child); err != nil {
		t.Error(err)
	}
}

func TestDeriveFrameAtZFallback(t *testing.T) {
	parent := boxFrame(t)
	// Port 6 points along +Z so the parent's Z cannot serve as hint.
	child, err := DeriveFrameAt(parent, 6, 0)
	if err != nil {
		t.Fatal(err)
	}
	assertVec(t, "Y", child.Y(), geom.ZAxis)
	// X hint: X = Y × parentX = Z × X = Y.
	assertVec(t, "X", child.X(), geom.YAxis)
	if err := checkOrthonormal(child); err != nil {
		t.Error(err)
	}
}

func TestDeriveFrameAtErrors(t *testing.T) {
	parent := boxFrame(t)
	var ie *IndexError
	if _, err := DeriveFrameAt(parent, 7, 0); !errors.As(err, &ie) {
		t.Errorf("side 7: err = %v, want IndexError", err)
	}
	if _, err := DeriveFrameAt(parent, -9, 0); !errors.As(err, &ie) {
		t.Errorf("side -9: err = %v, want IndexError", err)
	}
	empty := MustCreateFrame(geom.Vec{}, geom.YAxis, geom.ZAxis, 2)
	var ee *EmptyLinkError
	if _, err := DeriveFrameAt(empty, 1, 0); !errors.As(err, &ee) {
		t.Errorf("empty port: err = %v, want EmptyLinkError", err)
	}
	same := DeriveFrame(parent, 0)
	if d, _ := DeriveFrameAt(parent, 0, 0); d.Origin() != same.Origin() || d.Y() != same.Y() {
		t.Error("side 0 should match DeriveFrame")
	}
}

func TestAttachLinkPoint(t *testing.T) {
	f := MustCreateFrame(geom.Vec{}, geom.YAxis, geom.ZAxis, 2)
	g, err := f.AttachLinkPoint(1, geom.Vec{Y: 5}, geom.Vec{Y: 2}, rule.Literal(-7), rule.Literal(3), rule.Literal(-4))
	if err != nil {
		t.Fatal(err)
	}
	lp, _ := g.Link(1)
	if !lp.HasPoint || !lp.HasAxis || !lp.HasRule() || !lp.HasCommon() {
		t.Errorf("flags not set: %+v", lp)
	}
	assertVec(t, "axis normalized", lp.Axis, geom.YAxis)
	if lp.Common.String() != "3 -4" {
		t.Errorf("Common = %q", lp.Common)
	}
	if old, _ := f.Link(1); old.HasPoint {
		t.Error("AttachLinkPoint mutated the receiver")
	}
	var ie *IndexError
	if _, err := f.AttachLinkPoint(2, geom.Vec{}, geom.YAxis, rule.Rule{}); !errors.As(err, &ie) {
		t.Errorf("err = %v, want IndexError", err)
	}
	var de *DegenerateGeometryError
	if _, err := f.AttachLinkPoint(0, geom.Vec{}, geom.Vec{}, rule.Rule{}); !errors.As(err, &de) {
		t.Errorf("err = %v, want DegenerateGeometryError", err)
	}
}

func TestQueryLinkPointZero(t *testing.T) {
	f := boxFrame(t)
	v, err := f.QueryLinkPoint(0)
	if err != nil {
		t.Fatal(err)
	}
	assertVec(t, "origin", v.Point, f.Origin())
	assertVec(t, "beam", v.Axis, f.BeamAxis())
	if !v.LinkRule().IsEmpty() {
		t.Error("side 0 should carry no rule")
	}
}

func TestCopySignedLink(t *testing.T) {
	src := boxFrame(t)
	src, _ = src.SetCommonRule(1, rule.Literal(55))
	dst := MustCreateFrame(geom.Vec{}, geom.YAxis, geom.ZAxis, 2)

	dst, err := dst.CopySignedLink(0, src, 2)
	if err != nil {
		t.Fatal(err)
	}
	dst, err = dst.CopySignedLink(1, src, -2)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := dst.Link(0)
	b, _ := dst.Link(1)
	if a.Main.String() != "102" || b.Main.String() != "-102" {
		t.Errorf("copied rules = %q, %q", a.Main, b.Main)
	}
	if b.Common.String() != "55" {
		t.Errorf("common rule not kept: %q", b.Common)
	}
	assertVec(t, "complement axis", b.Axis, geom.Neg(a.Axis))
	if _, err := dst.CopySignedLink(0, src, 0); err == nil {
		t.Error("side 0 copy accepted")
	}
}

func TestAddLinkRule(t *testing.T) {
	f := boxFrame(t)
	g, err := f.AddLinkRule(1, rule.Literal(-9))
	if err != nil {
		t.Fatal(err)
	}
	lp, _ := g.Link(1)
	if lp.Main.String() != "102 -9" {
		t.Errorf("Main = %q, want %q", lp.Main, "102 -9")
	}
	if !lp.HasPoint || !lp.HasAxis {
		t.Error("AddLinkRule cleared the connection")
	}
	if old, _ := f.Link(1); old.Main.String() != "102" {
		t.Error("AddLinkRule mutated the receiver")
	}

	// Into an empty port the rule is taken as is.
	e := MustCreateFrame(geom.Vec{}, geom.YAxis, geom.ZAxis, 1)
	e, _ = e.AddLinkRule(0, rule.Literal(4))
	if lp, _ := e.Link(0); lp.Main.String() != "4" || lp.HasPoint {
		t.Errorf("empty port: %+v", lp)
	}
	var ie *IndexError
	if _, err := e.AddLinkRule(1, rule.Literal(4)); !errors.As(err, &ie) {
		t.Errorf("err = %v, want IndexError", err)
	}
}

func TestBridgeRule(t *testing.T) {
	f := boxFrame(t)
	f, err := f.SetBridgeRule(1, rule.Literal(-17))
	if err != nil {
		t.Fatal(err)
	}
	if f, err = f.AddBridgeRule(1, rule.Literal(3)); err != nil {
		t.Fatal(err)
	}
	for _, side := range []int{2, -2} {
		v, err := f.QueryLinkPoint(side)
		if err != nil {
			t.Fatal(err)
		}
		if v.Bridge.String() != "-17 3" {
			t.Errorf("side %d: Bridge = %q, want %q", side, v.Bridge, "-17 3")
		}
		if v.LinkRule().String() == v.Bridge.String() {
			t.Errorf("side %d: bridge leaked into LinkRule", side)
		}
	}
	if lp, _ := f.Link(0); lp.HasBridge() {
		t.Error("bridge set on the wrong port")
	}

	other := boxFrame(t)
	g := MustCreateFrame(geom.Vec{}, geom.YAxis, geom.ZAxis, 2)
	if g, err = g.BridgeFrom(0, other, 2); err != nil {
		t.Fatal(err)
	}
	if lp, _ := g.Link(0); lp.Bridge.String() != "-102" {
		t.Errorf("BridgeFrom = %q, want %q", lp.Bridge, "-102")
	}
	if _, err := g.BridgeFrom(0, other, 9); err == nil {
		t.Error("BridgeFrom past the last port accepted")
	}
}

func TestExit(t *testing.T) {
	f := MustCreateFrame(geom.Vec{X: 1}, geom.YAxis, geom.ZAxis, 2)
	assertVec(t, "unset exit", f.Exit(), f.Origin())
	assertVec(t, "unset exit axis", f.ExitAxis(), f.BeamAxis())

	g, err := f.SetExit(geom.Vec{X: 1, Y: 4}, geom.Vec{Z: 3})
	if err != nil {
		t.Fatal(err)
	}
	assertVec(t, "exit", g.Exit(), geom.Vec{X: 1, Y: 4})
	assertVec(t, "exit axis", g.ExitAxis(), geom.ZAxis)
	assertVec(t, "receiver exit", f.Exit(), f.Origin())

	one := MustCreateFrame(geom.Vec{}, geom.YAxis, geom.ZAxis, 1)
	var ie *IndexError
	if _, err := one.SetExit(geom.Vec{}, geom.YAxis); !errors.As(err, &ie) {
		t.Errorf("err = %v, want IndexError", err)
	}
	assertVec(t, "one-port exit", one.Exit(), one.Origin())
}

func TestFindLinkAxisAndLinkAxes(t *testing.T) {
	f := boxFrame(t)
	if got := f.FindLinkAxis(geom.Vec{X: 0.9, Y: 0.1}); got != 3 {
		t.Errorf("FindLinkAxis = %d, want 3", got)
	}
	x, y, z, err := f.LinkAxes(-6)
	if err != nil {
		t.Fatal(err)
	}
	assertVec(t, "y", y, geom.Neg(geom.ZAxis))
	assertVec(t, "z", z, r3.Cross(x, y))
	if math.Abs(r3.Dot(x, y)) > tol || math.Abs(r3.Norm(x)-1) > tol {
		t.Errorf("LinkAxes not orthonormal: %v %v %v", x, y, z)
	}
}

func TestLinkAngleRotate(t *testing.T) {
	f := boxFrame(t)
	g, err := f.LinkAngleRotate(2, 90, 0)
	if err != nil {
		t.Fatal(err)
	}
	lp, _ := g.Link(1)
	assertVec(t, "rotated axis", lp.Axis, geom.Neg(geom.XAxis))
	h, _ := f.LinkAngleRotate(-2, 90, 0)
	lp, _ = h.Link(1)
	assertVec(t, "negative side rotates the other way", lp.Axis, geom.XAxis)
}

func TestResize(t *testing.T) {
	f := boxFrame(t).Resize(8)
	if f.NLinks() != 8 {
		t.Fatalf("NLinks = %d", f.NLinks())
	}
	lp, _ := f.Link(7)
	if lp.Index != 7 || lp.HasPoint {
		t.Errorf("new link = %+v", lp)
	}
	kept, _ := f.Link(0)
	if !kept.HasPoint {
		t.Error("Resize dropped an existing link")
	}
}

// ----------------------------------------------------------------------------
// Properties
// ----------------------------------------------------------------------------

func drawUnit(t *rapid.T, label string) geom.Vec {
	for {
		v := geom.Vec{
			X: rapid.Float64Range(-1, 1).Draw(t, label+".x"),
			Y: rapid.Float64Range(-1, 1).Draw(t, label+".y"),
			Z: rapid.Float64Range(-1, 1).Draw(t, label+".z"),
		}
		if n := r3.Norm(v); n > 0.1 {
			return r3.Scale(1/n, v)
		}
	}
}

func TestOrthonormalAfterMovesProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		beam := drawUnit(rt, "beam")
		hint := drawUnit(rt, "hint")
		f, err := CreateFrame(geom.Vec{}, beam, hint, 0)
		if err != nil {
			rt.Skip("degenerate start")
		}
		steps := rapid.IntRange(1, 25).Draw(rt, "steps")
		angle := rapid.Float64Range(-720, 720)
		dist := rapid.Float64Range(-100, 100)
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 4).Draw(rt, "op") {
			case 0:
				f = f.Shift(dist.Draw(rt, "dx"), dist.Draw(rt, "dy"), dist.Draw(rt, "dz"))
			case 1:
				f = f.Rotate(angle.Draw(rt, "xy"), angle.Draw(rt, "z"))
			case 2:
				f = f.Rotate3(angle.Draw(rt, "ax"), angle.Draw(rt, "ay"), angle.Draw(rt, "az"))
			case 3:
				f = f.RotateAbout(drawUnit(rt, "axis"), angle.Draw(rt, "a"))
			case 4:
				f = f.ReverseZ()
			}
			if err := checkOrthonormal(f); err != nil {
				rt.Fatalf("after step %d: %v", i, err)
			}
		}
	})
}

func TestLinkSignSymmetryProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(rt, "links")
		f := MustCreateFrame(geom.Vec{}, geom.YAxis, geom.ZAxis, n)
		k := rapid.IntRange(1, n).Draw(rt, "k")
		ids := rapid.SliceOfN(rapid.IntRange(1, 500), 1, 4).Draw(rt, "ids")
		var err error
		f, err = f.AttachLinkPoint(k-1, drawUnit(rt, "p"), drawUnit(rt, "axis"), rule.Literals(ids...), rule.Literal(999))
		if err != nil {
			rt.Fatal(err)
		}
		pos, err := f.QueryLinkPoint(k)
		if err != nil {
			rt.Fatal(err)
		}
		neg, err := f.QueryLinkPoint(-k)
		if err != nil {
			rt.Fatal(err)
		}
		if pos.Axis != geom.Neg(neg.Axis) {
			rt.Fatalf("axes not negated: %v vs %v", pos.Axis, neg.Axis)
		}
		if !rule.Equal(neg.Main, rule.ComplementOf(pos.Main)) {
			rt.Fatalf("main rule %q not complement of %q", neg.Main, pos.Main)
		}
		if !rule.Equal(pos.Common, neg.Common) {
			rt.Fatal("common rule changed with side")
		}
		if pos.Point != neg.Point {
			rt.Fatal("point changed with side")
		}
	})
}
