package ring

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cellforge/pkg/geom"
	"github.com/chazu/cellforge/pkg/kernel"
	"github.com/chazu/cellforge/pkg/model"
	"github.com/chazu/cellforge/pkg/rule"
)

// SpanTolerance bounds the difference between the summed wedge spans and
// a full turn.
const SpanTolerance = 1e-9

// Verify checks the bookkeeping of a ring: wedge spans add up to 360
// degrees and the cell counts match the bolt count. A welded ring has one
// wall cell and nothing else.
func Verify(res Result, withSeal bool) error {
	sum := 0.0
	for _, w := range res.Wedges {
		sum += w.Span
	}
	if math.Abs(sum-360) > SpanTolerance {
		return fmt.Errorf("ring: wedge spans sum to %.12g degrees", sum)
	}

	wantBolts, wantWalls, wantSeals := res.NBolts, res.NBolts, 0
	if withSeal {
		wantSeals = res.NBolts
	}
	if res.NBolts == 1 {
		wantBolts, wantWalls, wantSeals = 0, 1, 0
	}
	if len(res.Bolts) != wantBolts || len(res.Walls) != wantWalls || len(res.Seals) != wantSeals {
		return fmt.Errorf("ring: %d bolts, %d walls, %d seals; want %d, %d, %d",
			len(res.Bolts), len(res.Walls), len(res.Seals), wantBolts, wantWalls, wantSeals)
	}
	if len(res.Wedges) != wantWalls {
		return fmt.Errorf("ring: %d wedges for %d walls", len(res.Wedges), wantWalls)
	}
	return nil
}

// VerifyVolume samples the ring envelope (front/back ∧ edge) on g and
// checks that the emitted cells partition it: no point in two cells, no
// envelope point in none, no cell point outside the envelope.
func VerifyVolume(k kernel.Kernel, s *model.Session, res Result, p Params, g kernel.Grid) (kernel.PartitionReport, error) {
	env, err := kernel.Compile(k, rule.Intersect(p.FrontBack, p.Edge), s.Surfaces)
	if err != nil {
		return kernel.PartitionReport{}, fmt.Errorf("ring: envelope: %w", err)
	}
	var rules []rule.Rule
	for _, n := range res.Cells() {
		c, ok := s.Cell(n)
		if !ok {
			return kernel.PartitionReport{}, fmt.Errorf("ring: cell %d not in session", n)
		}
		rules = append(rules, c.Rule)
	}
	parts, err := kernel.CompileAll(k, rules, s.Surfaces)
	if err != nil {
		return kernel.PartitionReport{}, fmt.Errorf("ring: %w", err)
	}
	rep, err := kernel.Partition(env, parts, g)
	if err != nil {
		return rep, err
	}
	if !rep.OK() {
		return rep, fmt.Errorf("ring: cells do not partition the envelope: %s", rep)
	}
	return rep, nil
}

// Bounds returns a grid box that encloses a ring of the given outer radius
// and axial half length about centre. The box is axis-aligned and
// generous.
func Bounds(centre geom.Vec, outerRadius, halfLength float64) (min, max geom.Vec) {
	r := outerRadius + halfLength
	d := geom.Vec{X: r, Y: r, Z: r}
	return r3.Sub(centre, d), r3.Add(centre, d)
}
