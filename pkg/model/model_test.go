package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chazu/cellforge/pkg/geom"
	"github.com/chazu/cellforge/pkg/registry"
	"github.com/chazu/cellforge/pkg/rule"
	"github.com/chazu/cellforge/pkg/surface"
)

// box is a cube of half width half with six planar faces.
type box struct {
	Component
	half float64
}

func newBox(name string, half float64) *box {
	return &box{Component: NewComponent(name), half: half}
}

func (b *box) CreateAll(s *Session, parent string, side int) error {
	if err := b.Register(s, b); err != nil {
		return err
	}
	f, err := FrameAt(s, parent, side, 6)
	if err != nil {
		return err
	}
	// Centre the box one half width beyond the port.
	f = f.Shift(0, b.half, 0)
	if f, err = f.SetBasicExtent(b.half, b.half, b.half); err != nil {
		return err
	}
	for i := 0; i < 6; i++ {
		lp, _ := f.Link(i)
		p, err := surface.NewPlane(lp.Point, lp.Axis)
		if err != nil {
			return err
		}
		id, err := b.SMap.AddSurface(i+1, p)
		if err != nil {
			return err
		}
		if f, err = f.SetLinkRule(i, rule.Literal(id)); err != nil {
			return err
		}
	}
	b.Frame = f
	_, err = b.AddCell(s, "Main", "Void", 300, b.SMap.MustComposite("-1 -2 -3 -4 -5 -6"))
	return err
}

// funcBuilder runs an arbitrary body after registering.
type funcBuilder struct {
	Component
	body func(b *funcBuilder, s *Session) error
}

func newFunc(name string, body func(b *funcBuilder, s *Session) error) *funcBuilder {
	return &funcBuilder{Component: NewComponent(name), body: body}
}

func (b *funcBuilder) CreateAll(s *Session, parent string, side int) error {
	if err := b.Register(s, b); err != nil {
		return err
	}
	return b.body(b, s)
}

var (
	_ Builder           = (*box)(nil)
	_ LinkPointProvider = (*box)(nil)
	_ FrameProvider     = (*box)(nil)
)

func TestBuildPlacesChildOnPort(t *testing.T) {
	s := NewSession()
	a, b := newBox("A", 1), newBox("B", 2)
	if err := Build(s, Root(a), Place(b, "A", 2)); err != nil {
		t.Fatal(err)
	}

	// A sits from y=0 to y=2; B starts at A's +Y face.
	lp, err := GetLinkPoint(s, "A", 2)
	if err != nil {
		t.Fatal(err)
	}
	if !geom.Near(lp.Point, geom.Vec{Y: 2}, 1e-12) {
		t.Errorf("A port 2 at %v", lp.Point)
	}
	back, err := GetLinkPoint(s, "B", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !geom.Near(back.Point, lp.Point, 1e-12) {
		t.Errorf("B back face at %v, want %v", back.Point, lp.Point)
	}
	if back.Main.String() != "20001" {
		t.Errorf("B port 1 rule = %q", back.Main)
	}
	neg, _ := GetLinkPoint(s, "B", -1)
	if neg.Main.String() != "-20001" {
		t.Errorf("B port -1 rule = %q", neg.Main)
	}

	got := s.CellRecords()
	want := []CellRecord{
		{Number: 10001, Material: "Void", Temperature: 300, Rule: "-10001 -10002 -10003 -10004 -10005 -10006", Owner: "A", Group: "Main"},
		{Number: 20001, Material: "Void", Temperature: 300, Rule: "-20001 -20002 -20003 -20004 -20005 -20006", Owner: "B", Group: "Main"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CellRecords mismatch (-want +got):\n%s", diff)
	}
	if n := len(s.SurfaceRecords()); n != 12 {
		t.Errorf("%d surfaces, want 12", n)
	}
	if g := b.CellGroup("Main"); len(g) != 1 || g[0] != 20001 {
		t.Errorf("B Main group = %v", g)
	}
	if c, ok := s.Cell(20001); !ok || c.Owner != "B" {
		t.Errorf("Cell(20001) = %+v, %v", c, ok)
	}
}

func TestBuildFailureResetsSession(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	s := NewSession(WithLogger(zap.New(core)))
	firstID := s.ID

	boom := errors.New("boom")
	bad := newFunc("Broken", func(*funcBuilder, *Session) error { return boom })
	err := Build(s, Root(newBox("A", 1)), Place(bad, "A", 2))

	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want BuildError", err)
	}
	if be.Component != "Broken" || be.Step != 1 || !errors.Is(err, boom) {
		t.Errorf("BuildError = %+v", be)
	}
	if s.Objects.Len() != 0 || len(s.Cells()) != 0 || len(s.Surfaces.Entries()) != 0 {
		t.Error("session not reset after failure")
	}
	if s.ID == firstID {
		t.Error("session ID kept after reset")
	}
	if base, _ := s.Surfaces.Reserve("A"); base != registry.BlockSize {
		t.Errorf("numbering not reset, base %d", base)
	}
	if logs.Len() != 1 {
		t.Fatalf("%d error logs, want 1", logs.Len())
	}
	entry := logs.All()[0]
	if entry.ContextMap()["component"] != "Broken" {
		t.Errorf("log context = %v", entry.ContextMap())
	}
}

func TestBuildDuplicateName(t *testing.T) {
	s := NewSession()
	err := Build(s, Root(newBox("A", 1)), Root(newBox("A", 1)))
	var de *registry.DuplicateNameError
	if !errors.As(err, &de) || de.Name != "A" {
		t.Fatalf("err = %v, want DuplicateNameError", err)
	}
}

func TestBuildUnknownParent(t *testing.T) {
	s := NewSession()
	err := Build(s, Place(newBox("B", 1), "Ghost", 1))
	var nf *registry.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestGetLinkPointCapability(t *testing.T) {
	s := NewSession()
	if _, err := s.Objects.Add("Plain", struct{}{}); err != nil {
		t.Fatal(err)
	}
	_, err := GetLinkPoint(s, "Plain", 1)
	var ce *registry.CapabilityError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want CapabilityError", err)
	}
	_, err = GetLinkPoint(s, "Nobody", 1)
	var nf *registry.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestAddCellErrors(t *testing.T) {
	s := NewSession()
	c := NewComponent("Loose")
	if _, err := c.AddCell(s, "Main", "Void", 0, rule.Literal(1)); err == nil {
		t.Error("AddCell before Register accepted")
	}
	if err := c.Register(s, &c); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddCell(s, "Main", "Void", 0, rule.Rule{}); err == nil {
		t.Error("empty rule accepted")
	}
}

func TestAddCellAfterReset(t *testing.T) {
	s := NewSession()
	a := NewComponent("A")
	if err := a.Register(s, &a); err != nil {
		t.Fatal(err)
	}
	s.Reset()
	var nf *registry.NotFoundError
	if _, err := a.AddCell(s, "Main", "Void", 0, rule.Literal(-10001)); !errors.As(err, &nf) {
		t.Fatalf("AddCell after Reset: err = %v, want NotFoundError", err)
	}
	if len(s.Cells()) != 0 {
		t.Fatalf("cells after Reset = %d, want 0", len(s.Cells()))
	}

	// A fresh component gets the first block back without collisions.
	b := NewComponent("B")
	if err := b.Register(s, &b); err != nil {
		t.Fatal(err)
	}
	n, err := b.AddCell(s, "Main", "Void", 0, rule.Literal(-10001))
	if err != nil || n != 10001 {
		t.Fatalf("B cell = %d, err %v; want 10001", n, err)
	}
}

func TestValidate(t *testing.T) {
	s := NewSession()
	dangling := newFunc("D", func(b *funcBuilder, s *Session) error {
		p, _ := surface.NewSphere(geom.Vec{}, 1)
		if _, err := b.SMap.AddSurface(5, p); err != nil {
			return err
		}
		_, err := b.AddCell(s, "Main", "Void", 0, rule.Literals(-10001, 99999))
		return err
	})
	empty := newFunc("E", func(*funcBuilder, *Session) error { return nil })
	for _, st := range []Step{Root(dangling), Root(empty)} {
		if err := st.Builder.CreateAll(s, "", 0); err != nil {
			t.Fatal(err)
		}
	}

	res := Validate(s)
	codes := func(fs []Finding) []string {
		var out []string
		for _, f := range fs {
			out = append(out, f.Code)
		}
		return out
	}
	if diff := cmp.Diff([]string{"DANGLING_SURFACE", "DANGLING_SURFACE"}, codes(res.Errors)); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"UNUSED_SURFACE", "NO_CELLS"}, codes(res.Warnings)); diff != "" {
		t.Errorf("warnings (-want +got):\n%s", diff)
	}
	if res.OK() {
		t.Error("OK() with errors")
	}
	if !strings.Contains(res.Errors[1].Error(), "99999") {
		t.Errorf("finding text %q", res.Errors[1].Error())
	}
}

func TestBuildFailsValidation(t *testing.T) {
	s := NewSession()
	bad := newFunc("Bad", func(b *funcBuilder, s *Session) error {
		_, err := b.AddCell(s, "Main", "Void", 0, rule.Literal(10042))
		return err
	})
	err := Build(s, Root(bad))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	var be *BuildError
	if !errors.As(err, &be) || be.Component != "Bad" {
		t.Errorf("BuildError = %+v", be)
	}
	if len(s.Cells()) != 0 {
		t.Error("cells survived a failed build")
	}
}
