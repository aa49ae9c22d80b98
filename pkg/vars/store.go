// Package vars holds the named variables that drive a build.
//
// Values are reals, strings or booleans. Integers are stored as reals and
// converted back on request, so a variable file may write "8" or "8.0" for
// a bolt count. Stores are filled by the YAML and HCL loaders in this
// package or by the script engine, and are read-only during a build.
package vars

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Value is the set of Go types a variable can be read as.
type Value interface {
	float64 | int | string | bool
}

// MissingVariableError is returned when a required variable is absent.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("vars: missing variable %q", e.Name)
}

// TypeError is returned when a variable exists but cannot be read as the
// requested type.
type TypeError struct {
	Name string
	Want string
	Got  any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("vars: variable %q = %v (%T) is not a %s", e.Name, e.Got, e.Got, e.Want)
}

// Store is a flat name → value table. Names keep their insertion order for
// listing.
type Store struct {
	vals  map[string]any
	order []string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{vals: make(map[string]any)}
}

// Set stores v under name, replacing any previous value. Integer kinds are
// widened to float64; unsupported types are rejected.
func (s *Store) Set(name string, v any) error {
	norm, err := normalize(v)
	if err != nil {
		return fmt.Errorf("vars: set %q: %w", name, err)
	}
	if _, ok := s.vals[name]; !ok {
		s.order = append(s.order, name)
	}
	s.vals[name] = norm
	return nil
}

// MustSet is like Set but panics on error.
func (s *Store) MustSet(name string, v any) {
	if err := s.Set(name, v); err != nil {
		panic(err)
	}
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case float64, string, bool:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

// Has reports whether name is set.
func (s *Store) Has(name string) bool {
	_, ok := s.vals[name]
	return ok
}

// Len returns the number of variables.
func (s *Store) Len() int { return len(s.vals) }

// Names returns the variable names in insertion order.
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// SortedNames returns the variable names sorted.
func (s *Store) SortedNames() []string {
	out := s.Names()
	sort.Strings(out)
	return out
}

// Eval returns the raw value of a required variable.
func (s *Store) Eval(name string) (any, error) {
	v, ok := s.vals[name]
	if !ok {
		return nil, &MissingVariableError{Name: name}
	}
	return v, nil
}

// EvalDefault returns the value of name, or def when it is not set.
func (s *Store) EvalDefault(name string, def any) any {
	if v, ok := s.vals[name]; ok {
		return v
	}
	return def
}

// Each calls fn for every variable in insertion order and stops at the
// first error fn returns.
func (s *Store) Each(fn func(name string, v any) error) error {
	for _, name := range s.order {
		if err := fn(name, s.vals[name]); err != nil {
			return err
		}
	}
	return nil
}

// Merge copies every variable of other into s, overwriting on conflict.
func (s *Store) Merge(other *Store) {
	for _, name := range other.order {
		if _, ok := s.vals[name]; !ok {
			s.order = append(s.order, name)
		}
		s.vals[name] = other.vals[name]
	}
}

// EvalVar reads a required variable as T.
func EvalVar[T Value](s *Store, name string) (T, error) {
	var zero T
	raw, err := s.Eval(name)
	if err != nil {
		return zero, err
	}
	return convert[T](name, raw)
}

// EvalDefVar reads name as T, falling back to def when it is not set. A
// variable that is set but has the wrong type is still an error.
func EvalDefVar[T Value](s *Store, name string, def T) (T, error) {
	raw, ok := s.vals[name]
	if !ok {
		return def, nil
	}
	return convert[T](name, raw)
}

// EvalPair reads name, falling back to fallback when name is not set.
// Components use it to let a specific variable override a shared one.
func EvalPair[T Value](s *Store, name, fallback string) (T, error) {
	if s.Has(name) {
		return EvalVar[T](s, name)
	}
	v, err := EvalVar[T](s, fallback)
	if err != nil {
		var me *MissingVariableError
		if errors.As(err, &me) {
			return v, &MissingVariableError{Name: name}
		}
	}
	return v, err
}

func convert[T Value](name string, raw any) (T, error) {
	var out T
	switch p := any(&out).(type) {
	case *float64:
		f, ok := raw.(float64)
		if !ok {
			return out, &TypeError{Name: name, Want: "real", Got: raw}
		}
		*p = f
	case *int:
		f, ok := raw.(float64)
		if !ok || f != math.Trunc(f) {
			return out, &TypeError{Name: name, Want: "integer", Got: raw}
		}
		*p = int(f)
	case *string:
		str, ok := raw.(string)
		if !ok {
			return out, &TypeError{Name: name, Want: "string", Got: raw}
		}
		*p = str
	case *bool:
		b, ok := raw.(bool)
		if !ok {
			return out, &TypeError{Name: name, Want: "bool", Got: raw}
		}
		*p = b
	default:
		return out, &TypeError{Name: name, Want: fmt.Sprintf("%T", out), Got: raw}
	}
	return out, nil
}
