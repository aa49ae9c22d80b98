package attach

import (
	"github.com/chazu/cellforge/pkg/geom"
	"github.com/chazu/cellforge/pkg/rule"
)

// LinkPoint is one port of a frame. Ports start empty and are filled in as
// the owning builder goes; HasPoint and HasAxis say which parts are set.
//
// Main is the face a neighbour shares, Common the bound that applies from
// both sides and Bridge the bound on whatever sits beyond the port, such as
// the outer radius a following part must stay inside.
type LinkPoint struct {
	Index    int
	Point    geom.Vec
	Axis     geom.Vec
	Main     rule.Rule
	Common   rule.Rule
	Bridge   rule.Rule
	HasPoint bool
	HasAxis  bool
}

// HasRule reports whether a main rule is set.
func (lp LinkPoint) HasRule() bool { return !lp.Main.IsEmpty() }

// HasCommon reports whether a common rule is set.
func (lp LinkPoint) HasCommon() bool { return !lp.Common.IsEmpty() }

// HasBridge reports whether a bridge rule is set.
func (lp LinkPoint) HasBridge() bool { return !lp.Bridge.IsEmpty() }

// LinkView is a port seen from one side, as returned by QueryLinkPoint.
type LinkView struct {
	Index    int // signed side index the view was taken from
	Point    geom.Vec
	Axis     geom.Vec
	Main     rule.Rule
	Common   rule.Rule
	Bridge   rule.Rule
	HasPoint bool
	HasAxis  bool
}

// LinkRule is the main rule intersected with the common rule.
func (v LinkView) LinkRule() rule.Rule {
	return rule.Intersect(v.Main, v.Common)
}
