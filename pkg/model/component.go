package model

import (
	"fmt"

	"github.com/chazu/cellforge/pkg/attach"
	"github.com/chazu/cellforge/pkg/geom"
	"github.com/chazu/cellforge/pkg/registry"
	"github.com/chazu/cellforge/pkg/rule"
)

// LinkPointProvider is the capability other components use to couple to a
// component's ports.
type LinkPointProvider interface {
	QueryLinkPoint(sideIndex int) (attach.LinkView, error)
}

// FrameProvider exposes a component's frame so that a child can be placed
// on one of its ports.
type FrameProvider interface {
	LinkFrame() attach.Frame
}

// Component is the embeddable base of every builder. It owns the frame,
// the surface map of the reserved block and the named cell groups.
type Component struct {
	KeyName string
	Frame   attach.Frame
	SMap    *registry.SurfaceMap

	groups     map[string][]int
	groupOrder []string
}

// NewComponent returns a base with the given key name.
func NewComponent(keyName string) Component {
	return Component{KeyName: keyName}
}

// Name returns the component key name.
func (c *Component) Name() string { return c.KeyName }

// Register reserves the component's number block and stores self (the
// outer builder that embeds c) in the object registry under the key name.
func (c *Component) Register(s *Session, self any) error {
	if _, err := s.Surfaces.Reserve(c.KeyName); err != nil {
		return err
	}
	h, err := s.Objects.Add(c.KeyName, self)
	if err != nil {
		return err
	}
	if err := s.Surfaces.Bind(c.KeyName, h); err != nil {
		return err
	}
	m, err := s.Surfaces.Map(c.KeyName)
	if err != nil {
		return err
	}
	c.SMap = m
	c.groups = make(map[string][]int)
	c.groupOrder = nil
	return nil
}

// AddCell emits a cell with the next number of the block and files it
// under group. The rule must not be empty.
func (c *Component) AddCell(s *Session, group, material string, temp float64, r rule.Rule) (int, error) {
	if c.SMap == nil {
		return 0, fmt.Errorf("model: %s: AddCell before Register", c.KeyName)
	}
	if r.IsEmpty() {
		return 0, fmt.Errorf("model: %s: cell in group %q has an empty rule", c.KeyName, group)
	}
	n, err := c.SMap.NextCell()
	if err != nil {
		return 0, err
	}
	cell := Cell{
		Number:      n,
		Material:    material,
		Temperature: temp,
		Rule:        r,
		Owner:       c.KeyName,
		Group:       group,
	}
	if err := s.addCell(cell); err != nil {
		return 0, err
	}
	if _, ok := c.groups[group]; !ok {
		c.groupOrder = append(c.groupOrder, group)
	}
	c.groups[group] = append(c.groups[group], n)
	return n, nil
}

// CellGroup returns the cell numbers filed under name.
func (c *Component) CellGroup(name string) []int {
	out := make([]int, len(c.groups[name]))
	copy(out, c.groups[name])
	return out
}

// Groups returns the group names in first-use order.
func (c *Component) Groups() []string {
	out := make([]string, len(c.groupOrder))
	copy(out, c.groupOrder)
	return out
}

// QueryLinkPoint implements LinkPointProvider.
func (c *Component) QueryLinkPoint(sideIndex int) (attach.LinkView, error) {
	v, err := c.Frame.QueryLinkPoint(sideIndex)
	if err != nil {
		return v, fmt.Errorf("model: %s: %w", c.KeyName, err)
	}
	return v, nil
}

// LinkFrame implements FrameProvider.
func (c *Component) LinkFrame() attach.Frame { return c.Frame }

// ----------------------------------------------------------------------------
// Cross-component lookups
// ----------------------------------------------------------------------------

// GetLinkPoint resolves another component's port by key name and signed
// side index. It is the only way builders read each other's geometry.
func GetLinkPoint(s *Session, name string, sideIndex int) (attach.LinkView, error) {
	p, err := registry.GetAs[LinkPointProvider](s.Objects, name)
	if err != nil {
		return attach.LinkView{}, err
	}
	return p.QueryLinkPoint(sideIndex)
}

// FrameAt builds a frame with nLinks ports on the named component's port.
// An empty name gives a default frame at the global origin with Y as beam
// and Z up.
func FrameAt(s *Session, name string, sideIndex, nLinks int) (attach.Frame, error) {
	if name == "" {
		return attach.CreateFrame(geom.Vec{}, geom.YAxis, geom.ZAxis, nLinks)
	}
	p, err := registry.GetAs[FrameProvider](s.Objects, name)
	if err != nil {
		return attach.Frame{}, err
	}
	return attach.DeriveFrameAt(p.LinkFrame(), sideIndex, nLinks)
}
