package stats

import (
	"driftlab/internal/sim"
)

// MeanByGeneration collapses a trajectory matrix into its per-generation
// mean across runs.
func MeanByGeneration(m *sim.Matrix) []float64 {
	out := make([]float64, m.Generations())
	for gen := range out {
		total := 0.0
		for run := 0; run < m.Runs(); run++ {
			total += m.At(gen, run)
		}
		out[gen] = total / float64(m.Runs())
	}
	return out
}

// VarianceByGeneration reports the per-generation population variance of
// the frequency across runs.
func VarianceByGeneration(m *sim.Matrix) []float64 {
	means := MeanByGeneration(m)
	out := make([]float64, m.Generations())
	for gen := range out {
		total := 0.0
		for run := 0; run < m.Runs(); run++ {
			d := m.At(gen, run) - means[gen]
			total += d * d
		}
		out[gen] = total / float64(m.Runs())
	}
	return out
}

// Overlay returns every run's trajectory as a separate series, the shape a
// plotting collaborator needs to draw individual run curves.
func Overlay(m *sim.Matrix) [][]float64 {
	out := make([][]float64, m.Runs())
	for run := range out {
		out[run] = m.Column(run)
	}
	return out
}

// TrajectoryOrder classifies how one trajectory sits relative to another
// across all generations.
type TrajectoryOrder string

const (
	OrderDominates TrajectoryOrder = "dominates"
	OrderDominated TrajectoryOrder = "dominated"
	OrderEqual     TrajectoryOrder = "equal"
	OrderMixed     TrajectoryOrder = "mixed"
)

// CompareTrajectories orders v1 against v2 generation by generation. v1
// dominates when no generation is lower and at least one is strictly
// higher; trajectories that cross are mixed, as are mismatched lengths.
func CompareTrajectories(v1, v2 []float64) TrajectoryOrder {
	if len(v1) == 0 || len(v1) != len(v2) {
		return OrderMixed
	}
	higher, lower := false, false
	for i := range v1 {
		if v1[i] > v2[i] {
			higher = true
		}
		if v1[i] < v2[i] {
			lower = true
		}
	}
	switch {
	case higher && lower:
		return OrderMixed
	case higher:
		return OrderDominates
	case lower:
		return OrderDominated
	default:
		return OrderEqual
	}
}
