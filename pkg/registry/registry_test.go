package registry

import (
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/chazu/cellforge/pkg/geom"
	"github.com/chazu/cellforge/pkg/surface"
)

func TestReserveOrder(t *testing.T) {
	r := NewSurfaceRegistry()
	a, err := r.Reserve("CompA")
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Reserve("CompB")
	if err != nil {
		t.Fatal(err)
	}
	if a != 10000 || b != 20000 {
		t.Fatalf("bases = %d, %d; want 10000, 20000", a, b)
	}
	e, err := r.Entry("CompA")
	if err != nil {
		t.Fatal(err)
	}
	if e.Count != BlockSize || e.CellBase != e.SurfaceBase || e.Handle != NoHandle {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestReserveDuplicate(t *testing.T) {
	r := NewSurfaceRegistry()
	if _, err := r.Reserve("A"); err != nil {
		t.Fatal(err)
	}
	_, err := r.Reserve("A")
	var de *DuplicateNameError
	if !errors.As(err, &de) || de.Name != "A" {
		t.Fatalf("err = %v, want DuplicateNameError for A", err)
	}
}

func TestMapUnreserved(t *testing.T) {
	r := NewSurfaceRegistry()
	_, err := r.Map("ghost")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestSurfaceMap(t *testing.T) {
	r := NewSurfaceRegistry()
	r.Reserve("A")
	r.Reserve("B")
	m, err := r.Map("B")
	if err != nil {
		t.Fatal(err)
	}
	p, _ := surface.NewPlane(geom.Vec{}, geom.XAxis)
	id, err := m.AddSurface(3, p)
	if err != nil {
		t.Fatal(err)
	}
	if id != 20003 {
		t.Errorf("AddSurface id = %d, want 20003", id)
	}
	if _, err := m.AddSurface(3, p); err == nil {
		t.Error("duplicate offset accepted")
	}
	var re *RangeError
	if _, err := m.AddSurface(BlockSize, p); !errors.As(err, &re) {
		t.Errorf("out-of-block offset: err = %v, want RangeError", err)
	}
	if got, _ := m.Real(-3); got != -20003 {
		t.Errorf("Real(-3) = %d", got)
	}
	if s, ok := r.Surface(-20003); !ok || s != p {
		t.Error("registry Surface lookup failed")
	}
	if owner, ok := r.Owner(20003); !ok || owner.Name != "B" {
		t.Errorf("Owner(20003) = %+v, %v", owner, ok)
	}
	if _, ok := r.Owner(30001); ok {
		t.Error("Owner of unreserved block should fail")
	}
}

func TestNextCell(t *testing.T) {
	r := NewSurfaceRegistry()
	r.Reserve("A")
	m, _ := r.Map("A")
	for want := 10001; want <= 10003; want++ {
		got, err := m.NextCell()
		if err != nil || got != want {
			t.Fatalf("NextCell = %d, %v; want %d", got, err, want)
		}
	}
}

func TestComposite(t *testing.T) {
	r := NewSurfaceRegistry()
	r.Reserve("A")
	m, _ := r.Map("A")
	tests := []struct {
		text    string
		offsets []int
		want    string
	}{
		{" 3 -4 5 -6 ", nil, "10003 -10004 10005 -10006"},
		{"3 -4 (7 : -8M)", []int{100, 200}, "10103 -10104 (10107 : -10208)"},
		{"1 -2 -14M", []int{50, 0}, "10051 -10052 -10014"},
		{"#(1 2N)", []int{0, 0, 30}, "#(10001 10032)"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := m.Composite(tt.text, tt.offsets...)
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Errorf("Composite = %q, want %q", got, tt.want)
			}
		})
	}
	if _, err := m.Composite("1 2M", 0); err == nil {
		t.Error("missing M offset accepted")
	}
	if _, err := m.Composite("99999"); err == nil {
		t.Error("out-of-block offset accepted")
	}
}

func TestReset(t *testing.T) {
	r := NewSurfaceRegistry()
	r.Reserve("A")
	r.Reset()
	base, err := r.Reserve("A")
	if err != nil || base != BlockSize {
		t.Fatalf("after Reset: base %d, err %v", base, err)
	}
	if len(r.Surfaces()) != 0 {
		t.Error("surfaces survived Reset")
	}
}

func mustPlane(t *testing.T) *surface.Plane {
	t.Helper()
	p, err := surface.NewPlane(geom.Vec{}, geom.XAxis)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestMapAfterReset(t *testing.T) {
	r := NewSurfaceRegistry()
	r.Reserve("A")
	old, err := r.Map("A")
	if err != nil {
		t.Fatal(err)
	}
	r.Reset()
	r.Reserve("B")

	p := mustPlane(t)
	if _, err := old.AddSurface(1, p); err == nil {
		t.Error("AddSurface on a map from before Reset accepted")
	}
	if _, err := old.NextCell(); err == nil {
		t.Error("NextCell on a map from before Reset accepted")
	}
	if _, err := old.Real(1); err == nil {
		t.Error("Real on a map from before Reset accepted")
	}

	// Re-reserving the same name does not revive the old map.
	r.Reset()
	r.Reserve("A")
	var nf *NotFoundError
	if _, err := old.AddSurface(1, p); !errors.As(err, &nf) {
		t.Errorf("err = %v, want NotFoundError", err)
	}

	b, err := r.Map("A")
	if err != nil {
		t.Fatal(err)
	}
	if id, err := b.AddSurface(1, p); err != nil || id != BlockSize+1 {
		t.Errorf("fresh map: id %d, err %v", id, err)
	}
}

// ----------------------------------------------------------------------------
// ObjectRegistry
// ----------------------------------------------------------------------------

type namer interface{ Name() string }

type named string

func (n named) Name() string { return string(n) }

type plain struct{}

func TestObjectRegistry(t *testing.T) {
	r := NewObjectRegistry()
	h, err := r.Add("a", named("alpha"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Add("a", plain{}); err == nil {
		t.Error("duplicate object accepted")
	}
	r.Add("b", plain{})

	n, err := GetAs[namer](r, "a")
	if err != nil || n.Name() != "alpha" {
		t.Fatalf("GetAs = %v, %v", n, err)
	}
	if r.Get(h) != (named("alpha")) {
		t.Error("Get by handle failed")
	}

	_, err = GetAs[namer](r, "b")
	var ce *CapabilityError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want CapabilityError", err)
	}
	if ce.Want != "registry.namer" {
		t.Errorf("CapabilityError.Want = %q", ce.Want)
	}

	_, err = GetAs[namer](r, "zzz")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}

	if _, ok := LookupAs[namer](r, "b"); ok {
		t.Error("LookupAs should report false for wrong capability")
	}
	if got := r.Names(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Names = %v", got)
	}
	r.Reset()
	if r.Len() != 0 {
		t.Error("Reset left objects behind")
	}
}

func TestBlocksNeverOverlapProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := NewSurfaceRegistry()
		n := rapid.IntRange(2, 40).Draw(rt, "n")
		for i := 0; i < n; i++ {
			if _, err := r.Reserve(fmt.Sprintf("comp%d", i)); err != nil {
				rt.Fatal(err)
			}
		}
		entries := r.Entries()
		for i := range entries {
			for j := i + 1; j < len(entries); j++ {
				a, b := entries[i], entries[j]
				if a.SurfaceBase < b.SurfaceBase+b.Count && b.SurfaceBase < a.SurfaceBase+a.Count {
					rt.Fatalf("blocks %q and %q overlap", a.Name, b.Name)
				}
			}
		}
	})
}
