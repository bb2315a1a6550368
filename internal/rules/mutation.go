package rules

import (
	"math/rand"

	"driftlab/internal/culture"
	"driftlab/internal/model"
)

// TwoTraitMutation copies every agent's own previous trait and then flips it
// to the other trait with probability Mu, independently per agent. No
// demonstrator is consulted.
type TwoTraitMutation struct {
	P0 float64
	Mu float64
}

func (TwoTraitMutation) Name() string {
	return "unbiased_mutation_2"
}

func (TwoTraitMutation) Tracks() int {
	return 1
}

func (r TwoTraitMutation) Params() model.Params {
	return model.Params{P0: r.P0, Mu: r.Mu}
}

func (r TwoTraitMutation) Validate() error {
	if err := culture.CheckProbability("p0", r.P0); err != nil {
		return err
	}
	return culture.CheckProbability("mu", r.Mu)
}

func (r TwoTraitMutation) Init(rng *rand.Rand, n int) (*culture.Population, error) {
	return culture.NewTwoTrait(rng, n, r.P0)
}

func (r TwoTraitMutation) Step(rng *rand.Rand, prev *culture.Population) *culture.Population {
	next := &culture.Population{Traits: make([]culture.Trait, prev.Size())}
	copy(next.Traits, prev.Traits)
	for i := range next.Traits {
		if rng.Float64() < r.Mu {
			if next.Traits[i] == culture.TraitA {
				next.Traits[i] = culture.TraitB
			} else {
				next.Traits[i] = culture.TraitA
			}
		}
	}
	return next
}

// ThreeTraitMutation is unbiased mutation over {A,B,C}. Each agent mutates
// with probability Mu, but the replacement trait is drawn once per source
// trait per generation: every mutating A-holder switches to the same one of
// B or C that generation, and likewise for B and C. This grouped draw
// reproduces the reference model's behavior; it is not an independent
// per-agent choice.
type ThreeTraitMutation struct {
	PA0 float64
	PB0 float64
	Mu  float64
}

func (ThreeTraitMutation) Name() string {
	return "unbiased_mutation_3"
}

func (ThreeTraitMutation) Tracks() int {
	return 1
}

func (r ThreeTraitMutation) Params() model.Params {
	return model.Params{PA0: r.PA0, PB0: r.PB0, Mu: r.Mu}
}

func (r ThreeTraitMutation) Validate() error {
	if err := culture.CheckProbability("pa0", r.PA0); err != nil {
		return err
	}
	if err := culture.CheckProbability("pb0", r.PB0); err != nil {
		return err
	}
	if r.PA0+r.PB0 > 1 {
		return errProportionSum(r.PA0, r.PB0)
	}
	return culture.CheckProbability("mu", r.Mu)
}

func (r ThreeTraitMutation) Init(rng *rand.Rand, n int) (*culture.Population, error) {
	return culture.NewThreeTrait(rng, n, r.PA0, r.PB0)
}

func (r ThreeTraitMutation) Step(rng *rand.Rand, prev *culture.Population) *culture.Population {
	next := &culture.Population{Traits: make([]culture.Trait, prev.Size())}
	copy(next.Traits, prev.Traits)

	traits := []culture.Trait{culture.TraitA, culture.TraitB, culture.TraitC}
	for _, source := range traits {
		replacement := groupReplacement(rng, source, traits)
		for i := range next.Traits {
			if prev.Traits[i] != source {
				continue
			}
			if rng.Float64() < r.Mu {
				next.Traits[i] = replacement
			}
		}
	}
	return next
}

// groupReplacement draws the single replacement trait shared by all of a
// generation's mutators of the given source trait.
func groupReplacement(rng *rand.Rand, source culture.Trait, traits []culture.Trait) culture.Trait {
	others := make([]culture.Trait, 0, len(traits)-1)
	for _, t := range traits {
		if t != source {
			others = append(others, t)
		}
	}
	return others[rng.Intn(len(others))]
}

// BiasedMutation mutates in a single direction only: each B-holder switches
// to A with probability MuB, and A-holders never mutate back.
type BiasedMutation struct {
	P0  float64
	MuB float64
}

func (BiasedMutation) Name() string {
	return "biased_mutation"
}

func (BiasedMutation) Tracks() int {
	return 1
}

func (r BiasedMutation) Params() model.Params {
	return model.Params{P0: r.P0, MuB: r.MuB}
}

func (r BiasedMutation) Validate() error {
	if err := culture.CheckProbability("p0", r.P0); err != nil {
		return err
	}
	return culture.CheckProbability("mu_b", r.MuB)
}

func (r BiasedMutation) Init(rng *rand.Rand, n int) (*culture.Population, error) {
	return culture.NewTwoTrait(rng, n, r.P0)
}

func (r BiasedMutation) Step(rng *rand.Rand, prev *culture.Population) *culture.Population {
	next := &culture.Population{Traits: make([]culture.Trait, prev.Size())}
	copy(next.Traits, prev.Traits)
	for i := range next.Traits {
		if next.Traits[i] != culture.TraitB {
			continue
		}
		if rng.Float64() < r.MuB {
			next.Traits[i] = culture.TraitA
		}
	}
	return next
}
