package components

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cellforge/pkg/model"
	"github.com/chazu/cellforge/pkg/rule"
	"github.com/chazu/cellforge/pkg/surface"
)

// Vessel cell groups.
const (
	GroupVoid = "Void"
	GroupWall = "Wall"
)

// Vessel is a rectangular box with a wall of uniform thickness. Its six
// ports sit on the outer faces in the SetBasicExtent order (0/1 at -/+Y,
// 2/3 at -/+X, 4/5 at -/+Z); each port's main rule is the outer face,
// positive outside.
//
// Variables, prefixed with the key name: Length (along Y), Width (X),
// Height (Z), WallThick, and optionally VoidMat, WallMat and Temperature.
type Vessel struct {
	model.Component

	Length, Width, Height float64
	WallThick             float64
}

// NewVessel returns an unbuilt vessel.
func NewVessel(keyName string) *Vessel {
	return &Vessel{Component: model.NewComponent(keyName)}
}

// Outer face offsets in port order; the inner face of port i is at
// outerFace[i]+10.
var outerFace = [6]int{1, 2, 3, 4, 5, 6}

// CreateAll implements model.Builder. A vessel placed on a port is centred
// one half length beyond it.
func (v *Vessel) CreateAll(s *model.Session, parent string, side int) error {
	r := newReader(s.Vars, v.KeyName)
	v.Length = r.float("Length")
	v.Width = r.float("Width")
	v.Height = r.float("Height")
	v.WallThick = r.float("WallThick")
	voidMat := r.stringDef("VoidMat", "Void")
	wallMat := r.stringDef("WallMat", "Stainless304")
	temp := r.temperature(300)
	if r.err != nil {
		return r.err
	}
	if err := v.check(); err != nil {
		return err
	}

	if err := v.Register(s, v); err != nil {
		return err
	}
	f, err := model.FrameAt(s, parent, side, 6)
	if err != nil {
		return err
	}
	if parent != "" {
		f = f.Shift(0, v.Length/2, 0)
	}
	f, err = f.SetBasicExtent(v.Width/2, v.Length/2, v.Height/2)
	if err != nil {
		return err
	}

	for i, off := range outerFace {
		lp, err := f.Link(i)
		if err != nil {
			return err
		}
		outer, err := surface.NewPlane(lp.Point, lp.Axis)
		if err != nil {
			return err
		}
		id, err := v.SMap.AddSurface(off, outer)
		if err != nil {
			return err
		}
		inner, err := surface.NewPlane(r3.Sub(lp.Point, r3.Scale(v.WallThick, lp.Axis)), lp.Axis)
		if err != nil {
			return err
		}
		if _, err := v.SMap.AddSurface(off+10, inner); err != nil {
			return err
		}
		if f, err = f.SetLinkRule(i, rule.Literal(id)); err != nil {
			return err
		}
	}
	v.Frame = f

	cavity := v.SMap.MustComposite("-11 -12 -13 -14 -15 -16")
	if _, err := v.AddCell(s, GroupVoid, voidMat, temp, cavity); err != nil {
		return err
	}
	shell := rule.Intersect(v.SMap.MustComposite("-1 -2 -3 -4 -5 -6"), rule.ComplementOf(cavity))
	_, err = v.AddCell(s, GroupWall, wallMat, temp, shell)
	return err
}

func (v *Vessel) check() error {
	dims := []struct {
		name string
		val  float64
	}{{"Length", v.Length}, {"Width", v.Width}, {"Height", v.Height}, {"WallThick", v.WallThick}}
	for _, d := range dims {
		if d.val <= 0 {
			return &ParamError{Component: v.KeyName, Param: d.name, Reason: fmt.Sprintf("%g is not positive", d.val)}
		}
	}
	if smallest := min(v.Length, v.Width, v.Height); 2*v.WallThick >= smallest {
		return &ParamError{Component: v.KeyName, Param: "WallThick",
			Reason: fmt.Sprintf("%g leaves no cavity inside %g", v.WallThick, smallest)}
	}
	return nil
}

var (
	_ model.Builder           = (*Vessel)(nil)
	_ model.LinkPointProvider = (*Vessel)(nil)
	_ model.FrameProvider     = (*Vessel)(nil)
)
