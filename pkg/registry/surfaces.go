// Package registry hands out numbering to components. A SurfaceRegistry
// reserves one block of surface (and cell) numbers per component key name,
// strictly in registration order, and stores the concrete surfaces emitted
// into those blocks. An ObjectRegistry maps the same names to components so
// that builders can find each other's link points.
//
// Neither registry is safe for concurrent use; a build runs on one goroutine.
package registry

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/chazu/cellforge/pkg/rule"
	"github.com/chazu/cellforge/pkg/surface"
)

// BlockSize is the number of ids reserved per component.
const BlockSize = 10000

// NoHandle marks an entry with no registered object.
const NoHandle Handle = -1

// Entry is one reserved block.
type Entry struct {
	Name        string
	SurfaceBase int
	Count       int
	CellBase    int
	Handle      Handle
}

// Contains reports whether id (sign ignored) lies in the block.
func (e Entry) Contains(id int) bool {
	if id < 0 {
		id = -id
	}
	return id >= e.SurfaceBase && id < e.SurfaceBase+e.Count
}

// Numbered pairs a surface with its number.
type Numbered struct {
	ID      int
	Surface surface.Surface
}

// SurfaceRegistry reserves number blocks and owns every emitted surface.
type SurfaceRegistry struct {
	entries  []*Entry
	byName   map[string]*Entry
	surfaces map[int]surface.Surface
}

// NewSurfaceRegistry returns an empty registry. The first block starts at
// BlockSize.
func NewSurfaceRegistry() *SurfaceRegistry {
	return &SurfaceRegistry{
		byName:   make(map[string]*Entry),
		surfaces: make(map[int]surface.Surface),
	}
}

// Reserve allocates the next block to name and returns its base.
func (r *SurfaceRegistry) Reserve(name string) (int, error) {
	if _, ok := r.byName[name]; ok {
		return 0, &DuplicateNameError{Name: name, What: "surface block"}
	}
	base := BlockSize * (len(r.entries) + 1)
	e := &Entry{
		Name:        name,
		SurfaceBase: base,
		Count:       BlockSize,
		CellBase:    base,
		Handle:      NoHandle,
	}
	r.entries = append(r.entries, e)
	r.byName[name] = e
	return base, nil
}

// Bind records the object handle for a reserved name.
func (r *SurfaceRegistry) Bind(name string, h Handle) error {
	e, ok := r.byName[name]
	if !ok {
		return &NotFoundError{Name: name, What: "surface block"}
	}
	e.Handle = h
	return nil
}

// Entry returns the block reserved for name.
func (r *SurfaceRegistry) Entry(name string) (Entry, error) {
	e, ok := r.byName[name]
	if !ok {
		return Entry{}, &NotFoundError{Name: name, What: "surface block"}
	}
	return *e, nil
}

// Entries returns all blocks in registration order.
func (r *SurfaceRegistry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = *e
	}
	return out
}

// Owner returns the block containing id.
func (r *SurfaceRegistry) Owner(id int) (Entry, bool) {
	if id < 0 {
		id = -id
	}
	i := id/BlockSize - 1
	if i < 0 || i >= len(r.entries) {
		return Entry{}, false
	}
	return *r.entries[i], true
}

// Surface returns the surface numbered id (sign ignored).
func (r *SurfaceRegistry) Surface(id int) (surface.Surface, bool) {
	if id < 0 {
		id = -id
	}
	s, ok := r.surfaces[id]
	return s, ok
}

// Surfaces returns every defined surface in ascending number order.
func (r *SurfaceRegistry) Surfaces() []Numbered {
	out := make([]Numbered, 0, len(r.surfaces))
	for id, s := range r.surfaces {
		out = append(out, Numbered{ID: id, Surface: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Map returns the per-component view of the block reserved for name.
func (r *SurfaceRegistry) Map(name string) (*SurfaceMap, error) {
	e, ok := r.byName[name]
	if !ok {
		return nil, &NotFoundError{Name: name, What: "surface block"}
	}
	return &SurfaceMap{reg: r, name: name, base: e.SurfaceBase, entry: e}, nil
}

// Reset forgets every reservation and surface. Maps handed out before the
// reset stop working.
func (r *SurfaceRegistry) Reset() {
	r.entries = nil
	r.byName = make(map[string]*Entry)
	r.surfaces = make(map[int]surface.Surface)
}

// ----------------------------------------------------------------------------
// SurfaceMap
// ----------------------------------------------------------------------------

// SurfaceMap translates a component's local offsets into global surface and
// cell numbers. Offsets must lie in [0, BlockSize).
type SurfaceMap struct {
	reg      *SurfaceRegistry
	name     string
	base     int
	entry    *Entry
	lastCell int
}

// live fails once the reservation behind m has been dropped by Reset.
func (m *SurfaceMap) live() error {
	if m.reg.byName[m.name] != m.entry {
		return &NotFoundError{Name: m.name, What: "surface block"}
	}
	return nil
}

// Name returns the owning component's key name.
func (m *SurfaceMap) Name() string { return m.name }

// Base returns the first number of the block.
func (m *SurfaceMap) Base() int { return m.base }

// Real converts a signed local offset into a signed global surface number.
func (m *SurfaceMap) Real(offset int) (int, error) {
	if err := m.live(); err != nil {
		return 0, err
	}
	sign := 1
	if offset < 0 {
		sign, offset = -1, -offset
	}
	if offset >= BlockSize {
		return 0, &RangeError{Name: m.name, Offset: sign * offset}
	}
	return sign * (m.base + offset), nil
}

// AddSurface defines the surface at a local offset and returns its global
// number.
func (m *SurfaceMap) AddSurface(offset int, s surface.Surface) (int, error) {
	if err := m.live(); err != nil {
		return 0, err
	}
	if offset < 0 || offset >= BlockSize {
		return 0, &RangeError{Name: m.name, Offset: offset}
	}
	id := m.base + offset
	if _, ok := m.reg.surfaces[id]; ok {
		return 0, &DuplicateSurfaceError{ID: id}
	}
	m.reg.surfaces[id] = s
	return id, nil
}

// Surface returns the surface at a local offset.
func (m *SurfaceMap) Surface(offset int) (surface.Surface, bool) {
	id, err := m.Real(offset)
	if err != nil {
		return nil, false
	}
	return m.reg.Surface(id)
}

// Literal returns the rule literal for a signed local offset.
func (m *SurfaceMap) Literal(offset int) (rule.Rule, error) {
	id, err := m.Real(offset)
	if err != nil {
		return rule.Rule{}, err
	}
	return rule.Literal(id), nil
}

// NextCell returns the next cell number in the block. Cell numbers start at
// base+1.
func (m *SurfaceMap) NextCell() (int, error) {
	if err := m.live(); err != nil {
		return 0, err
	}
	if m.lastCell+1 >= BlockSize {
		return 0, &RangeError{Name: m.name, Offset: m.lastCell + 1}
	}
	m.lastCell++
	return m.base + m.lastCell, nil
}

var compositeToken = regexp.MustCompile(`(-?)(\d+)([MN]?)`)

// Composite builds a rule from text written in local offsets. Unsuffixed
// numbers are relative to offsets[0] (or 0), numbers ending in M to
// offsets[1] and numbers ending in N to offsets[2]. "3 -4 (7 : -8M)" with
// offsets 100 and 200 is surfaces base+103, -(base+104), base+107 and
// -(base+208).
func (m *SurfaceMap) Composite(text string, offsets ...int) (rule.Rule, error) {
	var convErr error
	expanded := compositeToken.ReplaceAllStringFunc(text, func(tok string) string {
		parts := compositeToken.FindStringSubmatch(tok)
		n, _ := strconv.Atoi(parts[2])
		slot := map[string]int{"": 0, "M": 1, "N": 2}[parts[3]]
		if slot > 0 && slot >= len(offsets) {
			convErr = fmt.Errorf("registry: %q uses %s offset but only %d given", tok, parts[3], len(offsets))
			return tok
		}
		if slot < len(offsets) {
			n += offsets[slot]
		}
		if parts[1] == "-" {
			n = -n
		}
		id, err := m.Real(n)
		if err != nil && convErr == nil {
			convErr = err
		}
		return strconv.Itoa(id)
	})
	if convErr != nil {
		return rule.Rule{}, convErr
	}
	return rule.Parse(expanded)
}

// MustComposite is like Composite but panics on error.
func (m *SurfaceMap) MustComposite(text string, offsets ...int) rule.Rule {
	r, err := m.Composite(text, offsets...)
	if err != nil {
		panic(fmt.Sprintf("registry: %s: %v", m.name, err))
	}
	return r
}
