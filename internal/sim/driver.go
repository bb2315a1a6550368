package sim

import (
	"context"
	"fmt"
	"math/rand"

	"driftlab/internal/culture"
	"driftlab/internal/rules"
)

// RunConfig describes one independent simulation run.
type RunConfig struct {
	Model rules.Model
	N     int
	TMax  int
	Seed  int64
}

func (c RunConfig) validate() error {
	if c.Model == nil {
		return fmt.Errorf("model is required")
	}
	if err := c.Model.Validate(); err != nil {
		return err
	}
	if c.N < 1 {
		return fmt.Errorf("population size must be >= 1, got %d", c.N)
	}
	if c.TMax < 1 {
		return fmt.Errorf("generations must be >= 1, got %d", c.TMax)
	}
	return nil
}

// Trajectory is one run's recorded frequencies, generations 1..TMax. Freq2
// is nil unless the model tracks a linked second trait.
type Trajectory struct {
	Freq  []float64
	Freq2 []float64
}

// Run executes one run: it initializes the population, applies the model's
// transition rule for generations 2..TMax, and records the focal frequency
// after every generation, starting with the initial population before any
// transition. Generations are strictly sequential; the context is only
// consulted between them, so a cancelled run is abandoned whole.
func Run(ctx context.Context, cfg RunConfig) (Trajectory, error) {
	if err := cfg.validate(); err != nil {
		return Trajectory{}, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	pop, err := cfg.Model.Init(rng, cfg.N)
	if err != nil {
		return Trajectory{}, err
	}

	tracks := cfg.Model.Tracks()
	traj := Trajectory{Freq: make([]float64, 0, cfg.TMax)}
	if tracks == 2 {
		traj.Freq2 = make([]float64, 0, cfg.TMax)
	}

	record := func(p *culture.Population) {
		traj.Freq = append(traj.Freq, p.Freq(culture.TraitA))
		if tracks == 2 {
			traj.Freq2 = append(traj.Freq2, p.Freq2(culture.TraitX))
		}
	}

	record(pop)
	for gen := 2; gen <= cfg.TMax; gen++ {
		if err := ctx.Err(); err != nil {
			return Trajectory{}, err
		}
		pop = cfg.Model.Step(rng, pop)
		record(pop)
	}
	return traj, nil
}
