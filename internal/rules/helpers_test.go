package rules

import (
	"math/rand"
	"testing"

	"driftlab/internal/culture"
)

// evolve runs a model for tmax generations and returns the focal trait1
// frequency per generation, generation 1 being the initial population.
func evolve(t *testing.T, m Model, n, tmax int, seed int64) []float64 {
	t.Helper()
	if err := m.Validate(); err != nil {
		t.Fatalf("validate %s: %v", m.Name(), err)
	}
	rng := rand.New(rand.NewSource(seed))
	pop, err := m.Init(rng, n)
	if err != nil {
		t.Fatalf("init %s: %v", m.Name(), err)
	}
	freqs := make([]float64, 0, tmax)
	freqs = append(freqs, pop.Freq(culture.TraitA))
	for gen := 2; gen <= tmax; gen++ {
		pop = m.Step(rng, pop)
		freqs = append(freqs, pop.Freq(culture.TraitA))
	}
	return freqs
}

// finalFreqs collects the final-generation frequency of `runs` independent
// replicates, one seed per run.
func finalFreqs(t *testing.T, m Model, n, tmax, runs int, seed int64) []float64 {
	t.Helper()
	out := make([]float64, 0, runs)
	for r := 0; r < runs; r++ {
		traj := evolve(t, m, n, tmax, seed+int64(r))
		out = append(out, traj[len(traj)-1])
	}
	return out
}

func mean(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func variance(values []float64) float64 {
	m := mean(values)
	total := 0.0
	for _, v := range values {
		d := v - m
		total += d * d
	}
	return total / float64(len(values))
}

// firstCrossing returns the 1-based generation at which the trajectory first
// reaches the threshold, or -1 if it never does.
func firstCrossing(traj []float64, threshold float64) int {
	for i, v := range traj {
		if v >= threshold {
			return i + 1
		}
	}
	return -1
}
