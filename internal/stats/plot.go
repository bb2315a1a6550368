package stats

import (
	"driftlab/internal/sim"
)

// PlotPoint is one renderable sample of a summarized trajectory.
// Generation is 1-based, matching the trajectory contract.
type PlotPoint struct {
	Generation int     `json:"generation"`
	Value      float64 `json:"value"`
}

// BuildMeanPlot downsamples the per-generation mean to every step-th
// generation, always including generation 1. External plotting tooling
// consumes these points directly.
func BuildMeanPlot(m *sim.Matrix, step int) []PlotPoint {
	if step <= 0 {
		step = 1
	}
	means := MeanByGeneration(m)
	points := make([]PlotPoint, 0, len(means)/step+1)
	for gen := 0; gen < len(means); gen += step {
		points = append(points, PlotPoint{Generation: gen + 1, Value: means[gen]})
	}
	return points
}

// BuildRunPlot downsamples a single run's trajectory the same way, for
// overlay rendering.
func BuildRunPlot(m *sim.Matrix, run, step int) []PlotPoint {
	if step <= 0 {
		step = 1
	}
	column := m.Column(run)
	points := make([]PlotPoint, 0, len(column)/step+1)
	for gen := 0; gen < len(column); gen += step {
		points = append(points, PlotPoint{Generation: gen + 1, Value: column[gen]})
	}
	return points
}
