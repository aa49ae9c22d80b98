// Package components holds concrete builders assembled from the kernel
// primitives: a rectangular Vessel and a bolted Flange that mounts on any
// port with a planar main rule.
//
// Builders read their dimensions from the session variable store under
// their key name, so a Flange keyed "InletFlange" reads
// InletFlangeNBolts, InletFlangePitchRadius and so on.
package components

import (
	"fmt"

	"github.com/chazu/cellforge/pkg/vars"
)

// ParamError reports a variable whose value cannot build the component.
type ParamError struct {
	Component string
	Param     string
	Reason    string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("components: %s: %s: %s", e.Component, e.Param, e.Reason)
}

// reader pulls prefixed variables from a store and keeps the first error.
type reader struct {
	store  *vars.Store
	prefix string
	err    error
}

func newReader(store *vars.Store, prefix string) *reader {
	if store == nil {
		store = vars.NewStore()
	}
	return &reader{store: store, prefix: prefix}
}

func (r *reader) float(name string) float64 {
	return read(r, name, func() (float64, error) { return vars.EvalVar[float64](r.store, r.prefix+name) })
}

func (r *reader) floatDef(name string, def float64) float64 {
	return read(r, name, func() (float64, error) { return vars.EvalDefVar(r.store, r.prefix+name, def) })
}

func (r *reader) count(name string) int {
	return read(r, name, func() (int, error) { return vars.EvalVar[int](r.store, r.prefix+name) })
}

func (r *reader) stringDef(name, def string) string {
	return read(r, name, func() (string, error) { return vars.EvalDefVar(r.store, r.prefix+name, def) })
}

func (r *reader) boolDef(name string, def bool) bool {
	return read(r, name, func() (bool, error) { return vars.EvalDefVar(r.store, r.prefix+name, def) })
}

// temperature reads <prefix>Temperature, then the shared Temperature, then
// falls back to def.
func (r *reader) temperature(def float64) float64 {
	const name = "Temperature"
	if !r.store.Has(r.prefix+name) && !r.store.Has(name) {
		return def
	}
	return read(r, name, func() (float64, error) { return vars.EvalPair[float64](r.store, r.prefix+name, name) })
}

func read[T vars.Value](r *reader, name string, get func() (T, error)) T {
	var zero T
	if r.err != nil {
		return zero
	}
	v, err := get()
	if err != nil {
		r.err = err
		return zero
	}
	return v
}
