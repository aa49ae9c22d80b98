package kernel

import (
	"errors"
	"fmt"

	"github.com/chazu/cellforge/pkg/rule"
	"github.com/chazu/cellforge/pkg/surface"
)

// ErrEmptyRule is returned when compiling the empty rule.
var ErrEmptyRule = errors.New("kernel: empty rule")

// SurfaceLookup resolves global surface numbers.
// *registry.SurfaceRegistry satisfies it.
type SurfaceLookup interface {
	Surface(id int) (surface.Surface, bool)
}

// UnknownSurfaceError is returned when a rule names an undefined surface.
type UnknownSurfaceError struct {
	ID int
}

func (e *UnknownSurfaceError) Error() string {
	return fmt.Sprintf("kernel: surface %d is not defined", e.ID)
}

// Compile turns a rule into a solid. A positive literal is the region where
// the surface value is positive, a negative literal the region where it is
// negative.
func Compile(k Kernel, r rule.Rule, surfaces SurfaceLookup) (Solid, error) {
	switch r.Kind() {
	case rule.KindEmpty:
		return nil, ErrEmptyRule
	case rule.KindLiteral:
		id := r.ID()
		sense := 1
		if id < 0 {
			id, sense = -id, -1
		}
		s, ok := surfaces.Surface(id)
		if !ok {
			return nil, &UnknownSurfaceError{ID: id}
		}
		return k.HalfSpace(s, sense)
	case rule.KindComplement:
		kids := r.Children()
		inner, err := Compile(k, kids[0], surfaces)
		if err != nil {
			return nil, err
		}
		return k.Complement(inner), nil
	case rule.KindIntersection, rule.KindUnion:
		var acc Solid
		for _, kid := range r.Children() {
			s, err := Compile(k, kid, surfaces)
			if err != nil {
				return nil, err
			}
			switch {
			case acc == nil:
				acc = s
			case r.Kind() == rule.KindIntersection:
				acc = k.Intersection(acc, s)
			default:
				acc = k.Union(acc, s)
			}
		}
		return acc, nil
	}
	return nil, fmt.Errorf("kernel: unknown rule kind %v", r.Kind())
}

// CompileAll compiles a list of rules, stopping at the first error.
func CompileAll(k Kernel, rules []rule.Rule, surfaces SurfaceLookup) ([]Solid, error) {
	out := make([]Solid, 0, len(rules))
	for i, r := range rules {
		s, err := Compile(k, r, surfaces)
		if err != nil {
			return nil, fmt.Errorf("kernel: rule %d (%s): %w", i, r, err)
		}
		out = append(out, s)
	}
	return out, nil
}
