// Package model ties the kernel pieces into a build session.
//
// A Session is the explicit context every builder receives: the surface
// and object registries, the variable store, a logger and the cells
// produced so far. There is no package-level state; two sessions never
// share numbering.
package model

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chazu/cellforge/pkg/registry"
	"github.com/chazu/cellforge/pkg/rule"
	"github.com/chazu/cellforge/pkg/vars"
)

// Cell is one emitted cell: number, material, temperature and rule.
type Cell struct {
	Number      int
	Material    string
	Temperature float64
	Rule        rule.Rule
	Owner       string // component key name
	Group       string // cell group inside the component
}

// CellRecord is the serialized form of a Cell handed to writers.
type CellRecord struct {
	Number      int     `json:"number"`
	Material    string  `json:"material"`
	Temperature float64 `json:"temperature"`
	Rule        string  `json:"rule"`
	Owner       string  `json:"owner"`
	Group       string  `json:"group"`
}

// SurfaceRecord is the serialized form of a registered surface.
type SurfaceRecord struct {
	ID   int    `json:"id"`
	Kind string `json:"kind"`
	Card string `json:"card"`
}

// Session carries all state of one build.
type Session struct {
	ID       uuid.UUID
	Surfaces *registry.SurfaceRegistry
	Objects  *registry.ObjectRegistry
	Vars     *vars.Store
	Log      *zap.Logger

	cells   []Cell
	numbers map[int]int // cell number -> index in cells
}

// Option configures a new session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.Log = l
		}
	}
}

// WithVars sets the variable store.
func WithVars(v *vars.Store) Option {
	return func(s *Session) {
		if v != nil {
			s.Vars = v
		}
	}
}

// NewSession returns an empty session. The logger defaults to a no-op
// logger and the variable store to an empty store.
func NewSession(opts ...Option) *Session {
	s := &Session{
		ID:       uuid.New(),
		Surfaces: registry.NewSurfaceRegistry(),
		Objects:  registry.NewObjectRegistry(),
		Vars:     vars.NewStore(),
		Log:      zap.NewNop(),
		numbers:  make(map[int]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Log = s.Log.With(zap.String("session", s.ID.String()))
	return s
}

// Reset clears the registries and cells and gives the session a new ID.
// The variable store and logger are kept.
func (s *Session) Reset() {
	s.Surfaces.Reset()
	s.Objects.Reset()
	s.cells = nil
	s.numbers = make(map[int]int)
	s.ID = uuid.New()
}

// addCell records a cell. Cell numbers are unique per session.
func (s *Session) addCell(c Cell) error {
	if i, ok := s.numbers[c.Number]; ok {
		return fmt.Errorf("model: cell %d of %s already used by %s", c.Number, c.Owner, s.cells[i].Owner)
	}
	s.numbers[c.Number] = len(s.cells)
	s.cells = append(s.cells, c)
	return nil
}

// Cells returns the cells in emission order.
func (s *Session) Cells() []Cell {
	out := make([]Cell, len(s.cells))
	copy(out, s.cells)
	return out
}

// Cell returns the cell with the given number.
func (s *Session) Cell(number int) (Cell, bool) {
	i, ok := s.numbers[number]
	if !ok {
		return Cell{}, false
	}
	return s.cells[i], true
}

// CellRecords returns the cells as records with canonical rule text.
func (s *Session) CellRecords() []CellRecord {
	out := make([]CellRecord, 0, len(s.cells))
	for _, c := range s.cells {
		out = append(out, CellRecord{
			Number:      c.Number,
			Material:    c.Material,
			Temperature: c.Temperature,
			Rule:        c.Rule.String(),
			Owner:       c.Owner,
			Group:       c.Group,
		})
	}
	return out
}

// SurfaceRecords returns every registered surface in number order.
func (s *Session) SurfaceRecords() []SurfaceRecord {
	nums := s.Surfaces.Surfaces()
	out := make([]SurfaceRecord, 0, len(nums))
	for _, n := range nums {
		out = append(out, SurfaceRecord{
			ID:   n.ID,
			Kind: n.Surface.Kind().String(),
			Card: n.Surface.Card(),
		})
	}
	return out
}
