package rules

import (
	"fmt"
	"math/rand"
	"sort"

	"driftlab/internal/culture"
	"driftlab/internal/model"
)

// Model is one cultural transmission rule together with its parameters.
// Init draws the generation-1 population; Step maps one generation to the
// next, reading only the previous generation and producing a fresh
// population of the same size. Step must be called only after Validate has
// accepted the parameters, and models must stay immutable so a single value
// can serve concurrent replicate runs.
type Model interface {
	Name() string
	// Tracks reports how many frequency values the model records per
	// generation: 1, or 2 when a linked second trait is tracked.
	Tracks() int
	Params() model.Params
	Validate() error
	Init(rng *rand.Rand, n int) (*culture.Population, error)
	Step(rng *rand.Rand, prev *culture.Population) *culture.Population
}

func errProportionSum(pa, pb float64) error {
	return fmt.Errorf("initial proportions exceed 1: pa0=%v pb0=%v", pa, pb)
}

// pickDemonstrator draws one previous-generation index uniformly.
func pickDemonstrator(rng *rand.Rand, n int) int {
	return rng.Intn(n)
}

// payoffCumulative builds the running payoff totals used for
// payoff-proportional demonstrator draws.
func payoffCumulative(payoffs []float64) []float64 {
	cum := make([]float64, len(payoffs))
	total := 0.0
	for i, w := range payoffs {
		total += w
		cum[i] = total
	}
	return cum
}

// pickWeightedDemonstrator draws one index with probability proportional to
// its payoff. cum is the running total from payoffCumulative.
func pickWeightedDemonstrator(rng *rand.Rand, cum []float64) int {
	total := cum[len(cum)-1]
	u := rng.Float64() * total
	idx := sort.SearchFloat64s(cum, u)
	if idx == len(cum) {
		idx = len(cum) - 1
	}
	// SearchFloat64s lands on the first entry >= u; equal boundaries belong
	// to the next agent.
	for idx < len(cum)-1 && cum[idx] == u {
		idx++
	}
	return idx
}
