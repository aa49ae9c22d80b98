package components

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cellforge/pkg/model"
	"github.com/chazu/cellforge/pkg/ring"
	"github.com/chazu/cellforge/pkg/rule"
	"github.com/chazu/cellforge/pkg/surface"
)

// GroupBore holds the open bore inside a flange's inner radius.
const GroupBore = "Bore"

// Flange is an annular plate bolted onto a parent port. Its back face is
// the parent port's main rule, so the flange shares the parent's surface
// instead of duplicating it; with no parent rule it cuts its own back
// plane. The plate is a ring.Build bolt ring with an optional seal groove
// against the back face.
//
// Ports: 0 is the back face (axis pointing into the parent), 1 the front
// face. Both carry the outer cylinder as their bridge rule.
//
// Variables, prefixed with the key name: NBolts, PitchRadius, BoltRadius,
// InnerRadius, OuterRadius, Thickness; optional AngleOffset, Seal,
// SealInner, SealOuter, SealDepth, BoltMat, WallMat, SealMat, VoidMat and
// Temperature.
type Flange struct {
	model.Component

	Params ring.Params
	Ring   ring.Result

	InnerRadius, OuterRadius float64
	Thickness                float64
	Seal                     bool
	SealInner, SealOuter     float64
	SealDepth                float64
}

// NewFlange returns an unbuilt flange.
func NewFlange(keyName string) *Flange {
	return &Flange{Component: model.NewComponent(keyName)}
}

// Surface offsets inside the flange block. Ring surfaces start at 100.
const (
	offBack      = 1
	offFront     = 2
	offSealFront = 3
	offInner     = 7
	offOuter     = 17
	offSealIn    = 27
	offSealOut   = 37
)

func (fl *Flange) read(s *model.Session) error {
	r := newReader(s.Vars, fl.KeyName)
	p := &fl.Params
	p.NBolts = r.count("NBolts")
	p.PitchRadius = r.float("PitchRadius")
	p.BoltRadius = r.float("BoltRadius")
	p.AngleOffset = r.floatDef("AngleOffset", 0)
	p.BoltMat = r.stringDef("BoltMat", "Stainless304")
	p.WallMat = r.stringDef("WallMat", "Stainless304")
	p.SealMat = r.stringDef("SealMat", "Viton")
	p.Temperature = r.temperature(300)
	fl.InnerRadius = r.float("InnerRadius")
	fl.OuterRadius = r.float("OuterRadius")
	fl.Thickness = r.float("Thickness")
	fl.Seal = r.boolDef("Seal", false)
	if fl.Seal {
		fl.SealInner = r.float("SealInner")
		fl.SealOuter = r.float("SealOuter")
		fl.SealDepth = r.floatDef("SealDepth", fl.Thickness/2)
	}
	return r.err
}

func (fl *Flange) check() error {
	p := fl.Params
	bad := func(param, format string, args ...any) error {
		return &ParamError{Component: fl.KeyName, Param: param, Reason: fmt.Sprintf(format, args...)}
	}
	if fl.Thickness <= 0 {
		return bad("Thickness", "%g is not positive", fl.Thickness)
	}
	if fl.InnerRadius <= 0 || fl.OuterRadius <= fl.InnerRadius {
		return bad("OuterRadius", "need 0 < InnerRadius (%g) < OuterRadius (%g)", fl.InnerRadius, fl.OuterRadius)
	}
	if p.NBolts > 1 {
		if p.PitchRadius-p.BoltRadius <= fl.InnerRadius || p.PitchRadius+p.BoltRadius >= fl.OuterRadius {
			return bad("PitchRadius", "bolt circle %g±%g leaves the plate %g..%g",
				p.PitchRadius, p.BoltRadius, fl.InnerRadius, fl.OuterRadius)
		}
	}
	if !fl.Seal {
		return nil
	}
	if fl.SealDepth <= 0 || fl.SealDepth > fl.Thickness {
		return bad("SealDepth", "%g is outside (0, %g]", fl.SealDepth, fl.Thickness)
	}
	if fl.SealInner < fl.InnerRadius || fl.SealOuter <= fl.SealInner || fl.SealOuter > fl.OuterRadius {
		return bad("SealOuter", "seal band %g..%g is not inside the plate %g..%g",
			fl.SealInner, fl.SealOuter, fl.InnerRadius, fl.OuterRadius)
	}
	if p.NBolts > 1 && fl.SealOuter > p.PitchRadius-p.BoltRadius && fl.SealInner < p.PitchRadius+p.BoltRadius {
		return bad("SealInner", "seal band %g..%g crosses the bolt circle", fl.SealInner, fl.SealOuter)
	}
	return nil
}

// CreateAll implements model.Builder.
func (fl *Flange) CreateAll(s *model.Session, parent string, side int) error {
	if err := fl.read(s); err != nil {
		return err
	}
	if err := fl.check(); err != nil {
		return err
	}
	if err := fl.Register(s, fl); err != nil {
		return err
	}
	f, err := model.FrameAt(s, parent, side, 2)
	if err != nil {
		return err
	}
	origin, axis := f.Origin(), f.Y()
	front := r3.Add(origin, r3.Scale(fl.Thickness, axis))

	back, err := fl.backRule(s, parent, side)
	if err != nil {
		return err
	}
	frontPlane, err := surface.NewPlane(front, axis)
	if err != nil {
		return err
	}
	frontID, err := fl.SMap.AddSurface(offFront, frontPlane)
	if err != nil {
		return err
	}
	for _, c := range []struct {
		off int
		r   float64
	}{{offInner, fl.InnerRadius}, {offOuter, fl.OuterRadius}} {
		cyl, err := surface.NewCylinder(origin, axis, c.r)
		if err != nil {
			return err
		}
		if _, err := fl.SMap.AddSurface(c.off, cyl); err != nil {
			return err
		}
	}

	p := &fl.Params
	p.Centre, p.Axis, p.Radial = origin, axis, f.X()
	p.FrontBack = rule.Intersect(back, rule.Literal(-frontID))
	p.Edge = fl.SMap.MustComposite("7 -17")
	if fl.Seal && p.NBolts > 1 {
		if p.Seal, err = fl.sealRule(origin, axis, back); err != nil {
			return err
		}
	}

	bore := rule.Intersect(fl.SMap.MustComposite("-7"), p.FrontBack)
	voidMat := newReader(s.Vars, fl.KeyName).stringDef("VoidMat", "Void")
	if _, err := fl.AddCell(s, GroupBore, voidMat, p.Temperature, bore); err != nil {
		return err
	}
	if fl.Ring, err = ring.Build(s, &fl.Component, *p); err != nil {
		return err
	}
	if err := ring.Verify(fl.Ring, !p.Seal.IsEmpty()); err != nil {
		return err
	}

	if f, err = f.AttachLinkPoint(0, origin, r3.Scale(-1, axis), rule.ComplementOf(back)); err != nil {
		return err
	}
	if f, err = f.SetExit(front, axis); err != nil {
		return err
	}
	if f, err = f.AddLinkRule(1, rule.Literal(frontID)); err != nil {
		return err
	}
	outer := fl.SMap.MustComposite("-17")
	for i := 0; i < 2; i++ {
		if f, err = f.SetBridgeRule(i, outer); err != nil {
			return err
		}
	}
	fl.Frame = f

	s.Log.Debug("flange built",
		zap.String("component", fl.KeyName),
		zap.String("parent", parent),
		zap.Int("bolts", len(fl.Ring.Bolts)),
		zap.Int("seals", len(fl.Ring.Seals)),
	)
	return nil
}

// backRule is the parent port's main rule, or a new back plane at the
// frame origin when there is none.
func (fl *Flange) backRule(s *model.Session, parent string, side int) (rule.Rule, error) {
	if parent != "" {
		v, err := model.GetLinkPoint(s, parent, side)
		if err != nil {
			return rule.Rule{}, err
		}
		if !v.Main.IsEmpty() {
			return v.LinkRule(), nil
		}
	}
	f, err := model.FrameAt(s, parent, side, 0)
	if err != nil {
		return rule.Rule{}, err
	}
	pl, err := surface.NewPlane(f.Origin(), f.Y())
	if err != nil {
		return rule.Rule{}, err
	}
	id, err := fl.SMap.AddSurface(offBack, pl)
	if err != nil {
		return rule.Rule{}, err
	}
	return rule.Literal(id), nil
}

// sealRule is the groove between the seal cylinders, from the back face to
// SealDepth.
func (fl *Flange) sealRule(origin, axis r3.Vec, back rule.Rule) (rule.Rule, error) {
	depth, err := surface.NewPlane(r3.Add(origin, r3.Scale(fl.SealDepth, axis)), axis)
	if err != nil {
		return rule.Rule{}, err
	}
	if _, err := fl.SMap.AddSurface(offSealFront, depth); err != nil {
		return rule.Rule{}, err
	}
	for _, c := range []struct {
		off int
		r   float64
	}{{offSealIn, fl.SealInner}, {offSealOut, fl.SealOuter}} {
		cyl, err := surface.NewCylinder(origin, axis, c.r)
		if err != nil {
			return rule.Rule{}, err
		}
		if _, err := fl.SMap.AddSurface(c.off, cyl); err != nil {
			return rule.Rule{}, err
		}
	}
	return rule.Intersect(fl.SMap.MustComposite("27 -37 -3"), back), nil
}

var (
	_ model.Builder           = (*Flange)(nil)
	_ model.LinkPointProvider = (*Flange)(nil)
	_ model.FrameProvider     = (*Flange)(nil)
)
