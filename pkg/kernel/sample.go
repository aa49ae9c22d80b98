package kernel

import (
	"fmt"

	"github.com/chazu/cellforge/pkg/geom"
)

// Grid is a regular N×N×N sampling of a box. Sample points sit at fixed
// irrational fractions inside each grid cell so that they never fall
// exactly on the axis-aligned or symmetric planes models are built from.
type Grid struct {
	Min, Max geom.Vec
	N        int
}

var jitter = geom.Vec{X: 0.3183098861837907, Y: 0.4142135623730950, Z: 0.2718281828459045}

// Step returns the grid spacing along each axis.
func (g Grid) Step() geom.Vec {
	n := float64(g.N)
	return geom.Vec{
		X: (g.Max.X - g.Min.X) / n,
		Y: (g.Max.Y - g.Min.Y) / n,
		Z: (g.Max.Z - g.Min.Z) / n,
	}
}

// SampleVolume is the volume each sample point stands for.
func (g Grid) SampleVolume() float64 {
	h := g.Step()
	return h.X * h.Y * h.Z
}

// Each calls fn for every sample point.
func (g Grid) Each(fn func(p geom.Vec)) {
	h := g.Step()
	for i := 0; i < g.N; i++ {
		for j := 0; j < g.N; j++ {
			for k := 0; k < g.N; k++ {
				fn(geom.Vec{
					X: g.Min.X + (float64(i)+jitter.X)*h.X,
					Y: g.Min.Y + (float64(j)+jitter.Y)*h.Y,
					Z: g.Min.Z + (float64(k)+jitter.Z)*h.Z,
				})
			}
		}
	}
}

// Validate reports grids that cannot be sampled.
func (g Grid) Validate() error {
	if g.N < 1 {
		return fmt.Errorf("kernel: grid needs N >= 1, got %d", g.N)
	}
	if g.Max.X <= g.Min.X || g.Max.Y <= g.Min.Y || g.Max.Z <= g.Min.Z {
		return fmt.Errorf("kernel: empty grid box %v..%v", g.Min, g.Max)
	}
	return nil
}

// PartitionReport counts how a set of parts covers an envelope.
type PartitionReport struct {
	Samples    int       // grid points examined
	InEnvelope int       // points inside the envelope
	Overlaps   int       // envelope points inside more than one part
	Gaps       int       // envelope points inside no part
	Strays     int       // points inside a part but outside the envelope
	Counts     []int     // per part, points inside it
	Volumes    []float64 // per part, estimated volume
}

// OK reports a clean partition.
func (r PartitionReport) OK() bool {
	return r.Overlaps == 0 && r.Gaps == 0 && r.Strays == 0
}

func (r PartitionReport) String() string {
	return fmt.Sprintf("%d samples, %d in envelope, %d overlaps, %d gaps, %d strays",
		r.Samples, r.InEnvelope, r.Overlaps, r.Gaps, r.Strays)
}

// Partition samples g and checks that every envelope point lies in exactly
// one part and no part point lies outside the envelope.
func Partition(envelope Solid, parts []Solid, g Grid) (PartitionReport, error) {
	if err := g.Validate(); err != nil {
		return PartitionReport{}, err
	}
	rep := PartitionReport{Counts: make([]int, len(parts))}
	g.Each(func(p geom.Vec) {
		rep.Samples++
		in := Inside(envelope, p)
		hits := 0
		for i, s := range parts {
			if Inside(s, p) {
				rep.Counts[i]++
				hits++
			}
		}
		switch {
		case in && hits == 0:
			rep.Gaps++
		case in && hits > 1:
			rep.Overlaps++
		case !in && hits > 0:
			rep.Strays++
		}
		if in {
			rep.InEnvelope++
		}
	})
	dv := g.SampleVolume()
	rep.Volumes = make([]float64, len(parts))
	for i, c := range rep.Counts {
		rep.Volumes[i] = float64(c) * dv
	}
	return rep, nil
}

// Volume estimates the volume of s inside the grid box.
func Volume(s Solid, g Grid) (float64, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}
	n := 0
	g.Each(func(p geom.Vec) {
		if Inside(s, p) {
			n++
		}
	})
	return float64(n) * g.SampleVolume(), nil
}
