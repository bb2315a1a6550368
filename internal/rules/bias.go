package rules

import (
	"math/rand"

	"driftlab/internal/culture"
	"driftlab/internal/model"
)

// DirectBias is content-biased copying. Each new agent draws one uniform
// demonstrator; only when that demonstrator holds the favored trait does
// the agent adopt it, with probability S. In every other case the agent
// keeps its own previous trait. The update only ever overwrites toward the
// favored trait, so its count never decreases within a run.
type DirectBias struct {
	P0 float64
	S  float64
}

func (DirectBias) Name() string {
	return "direct_bias"
}

func (DirectBias) Tracks() int {
	return 1
}

func (r DirectBias) Params() model.Params {
	return model.Params{P0: r.P0, S: r.S}
}

func (r DirectBias) Validate() error {
	if err := culture.CheckProbability("p0", r.P0); err != nil {
		return err
	}
	return culture.CheckProbability("s", r.S)
}

func (r DirectBias) Init(rng *rand.Rand, n int) (*culture.Population, error) {
	return culture.NewTwoTrait(rng, n, r.P0)
}

func (r DirectBias) Step(rng *rand.Rand, prev *culture.Population) *culture.Population {
	n := prev.Size()
	next := &culture.Population{Traits: make([]culture.Trait, n)}
	copy(next.Traits, prev.Traits)
	for i := range next.Traits {
		demonstrator := prev.Traits[pickDemonstrator(rng, n)]
		if demonstrator != culture.TraitA {
			continue
		}
		if rng.Float64() < r.S {
			next.Traits[i] = culture.TraitA
		}
	}
	return next
}

// IndirectBias is payoff-biased (success-biased) copying. Demonstrators are
// drawn with probability proportional to payoff, and the new agent adopts
// the chosen demonstrator's trait outright, unlike DirectBias's conditional
// partial copy. Payoffs derive from the primary trait: A pays 1+S, B pays 1.
// At S=0 the draw is uniform and the rule reduces to unbiased transmission.
type IndirectBias struct {
	P0 float64
	S  float64
}

func (IndirectBias) Name() string {
	return "indirect_bias"
}

func (IndirectBias) Tracks() int {
	return 1
}

func (r IndirectBias) Params() model.Params {
	return model.Params{P0: r.P0, S: r.S}
}

func (r IndirectBias) Validate() error {
	if err := culture.CheckProbability("p0", r.P0); err != nil {
		return err
	}
	return culture.CheckProbability("s", r.S)
}

func (r IndirectBias) payoffs() culture.PayoffMap {
	return culture.PayoffMap{Focal: culture.TraitA, Advantage: r.S}
}

func (r IndirectBias) Init(rng *rand.Rand, n int) (*culture.Population, error) {
	pop, err := culture.NewTwoTrait(rng, n, r.P0)
	if err != nil {
		return nil, err
	}
	pop.RecomputePayoffs(r.payoffs())
	return pop, nil
}

func (r IndirectBias) Step(rng *rand.Rand, prev *culture.Population) *culture.Population {
	n := prev.Size()
	cum := payoffCumulative(prev.Payoffs)
	next := &culture.Population{Traits: make([]culture.Trait, n)}
	for i := range next.Traits {
		next.Traits[i] = prev.Traits[pickWeightedDemonstrator(rng, cum)]
	}
	next.RecomputePayoffs(r.payoffs())
	return next
}

// LinkedIndirectBias is IndirectBias with a second, functionally neutral
// trait that rides along: the same payoff-weighted demonstrator draw
// determines both traits, so the demonstrator's second trait is inherited
// jointly rather than drawn independently. Associations established at
// initialization (linkage L, background frequency Q0) persist or decay only
// through this joint inheritance.
type LinkedIndirectBias struct {
	P0      float64
	Q0      float64
	Linkage float64
	S       float64
}

func (LinkedIndirectBias) Name() string {
	return "indirect_bias_linked"
}

func (LinkedIndirectBias) Tracks() int {
	return 2
}

func (r LinkedIndirectBias) Params() model.Params {
	return model.Params{P0: r.P0, Q0: r.Q0, Linkage: r.Linkage, S: r.S}
}

func (r LinkedIndirectBias) Validate() error {
	if err := culture.CheckProbability("p0", r.P0); err != nil {
		return err
	}
	if err := culture.CheckProbability("q0", r.Q0); err != nil {
		return err
	}
	if err := culture.CheckProbability("linkage", r.Linkage); err != nil {
		return err
	}
	return culture.CheckProbability("s", r.S)
}

func (r LinkedIndirectBias) payoffs() culture.PayoffMap {
	return culture.PayoffMap{Focal: culture.TraitA, Advantage: r.S}
}

func (r LinkedIndirectBias) Init(rng *rand.Rand, n int) (*culture.Population, error) {
	pop, err := culture.NewLinked(rng, n, r.P0, r.Linkage, r.Q0)
	if err != nil {
		return nil, err
	}
	pop.RecomputePayoffs(r.payoffs())
	return pop, nil
}

func (r LinkedIndirectBias) Step(rng *rand.Rand, prev *culture.Population) *culture.Population {
	n := prev.Size()
	cum := payoffCumulative(prev.Payoffs)
	next := &culture.Population{
		Traits:  make([]culture.Trait, n),
		Traits2: make([]culture.Trait, n),
	}
	for i := range next.Traits {
		j := pickWeightedDemonstrator(rng, cum)
		next.Traits[i] = prev.Traits[j]
		next.Traits2[i] = prev.Traits2[j]
	}
	next.RecomputePayoffs(r.payoffs())
	return next
}
