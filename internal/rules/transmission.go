package rules

import (
	"math/rand"

	"driftlab/internal/culture"
	"driftlab/internal/model"
)

// UnbiasedTransmission is pure random copying: every new agent adopts the
// primary trait of one demonstrator drawn uniformly, with replacement, from
// the previous generation. Frequency change is drift only.
type UnbiasedTransmission struct {
	P0 float64
}

func (UnbiasedTransmission) Name() string {
	return "unbiased_transmission"
}

func (UnbiasedTransmission) Tracks() int {
	return 1
}

func (r UnbiasedTransmission) Params() model.Params {
	return model.Params{P0: r.P0}
}

func (r UnbiasedTransmission) Validate() error {
	return culture.CheckProbability("p0", r.P0)
}

func (r UnbiasedTransmission) Init(rng *rand.Rand, n int) (*culture.Population, error) {
	return culture.NewTwoTrait(rng, n, r.P0)
}

func (r UnbiasedTransmission) Step(rng *rand.Rand, prev *culture.Population) *culture.Population {
	n := prev.Size()
	next := &culture.Population{Traits: make([]culture.Trait, n)}
	for i := range next.Traits {
		next.Traits[i] = prev.Traits[pickDemonstrator(rng, n)]
	}
	return next
}
