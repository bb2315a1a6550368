package culture

import (
	"fmt"
	"math/rand"
)

// Trait is one value from the small fixed trait set. Traits are unordered
// categories; only the payoff mapping gives them numeric meaning.
type Trait uint8

const (
	TraitA Trait = iota
	TraitB
	TraitC
)

// The linked-trait model labels the second trait's values X and Y.
const (
	TraitX = TraitA
	TraitY = TraitB
)

func (t Trait) String() string {
	switch t {
	case TraitA:
		return "A"
	case TraitB:
		return "B"
	case TraitC:
		return "C"
	default:
		return fmt.Sprintf("trait(%d)", uint8(t))
	}
}

// Population is one generation of agents. Each generation is a fresh draw of
// N agents; slot order carries no identity across generations.
type Population struct {
	Traits  []Trait
	Traits2 []Trait   // second, neutral trait; nil unless the model tracks it
	Payoffs []float64 // trait1-derived payoffs; nil unless the model is payoff-weighted
}

func (p *Population) Size() int {
	return len(p.Traits)
}

// Freq returns the proportion of agents whose primary trait equals t.
func (p *Population) Freq(t Trait) float64 {
	if len(p.Traits) == 0 {
		return 0
	}
	count := 0
	for _, v := range p.Traits {
		if v == t {
			count++
		}
	}
	return float64(count) / float64(len(p.Traits))
}

// Freq2 returns the proportion of agents whose second trait equals t, or 0
// when the population does not carry a second trait.
func (p *Population) Freq2(t Trait) float64 {
	if len(p.Traits2) == 0 {
		return 0
	}
	count := 0
	for _, v := range p.Traits2 {
		if v == t {
			count++
		}
	}
	return float64(count) / float64(len(p.Traits2))
}

func (p *Population) HasSecondTrait() bool {
	return p.Traits2 != nil
}

// PayoffMap derives an agent's payoff from its primary trait: the focal
// trait pays 1+Advantage, every other trait pays 1. Payoff is never an
// independent variable; it is recomputed from the trait after each update.
type PayoffMap struct {
	Focal     Trait
	Advantage float64
}

func (m PayoffMap) Of(t Trait) float64 {
	if t == m.Focal {
		return 1 + m.Advantage
	}
	return 1
}

// RecomputePayoffs rewrites the payoff of every agent from its current
// primary trait, allocating the payoff slice on first use.
func (p *Population) RecomputePayoffs(m PayoffMap) {
	if p.Payoffs == nil {
		p.Payoffs = make([]float64, len(p.Traits))
	}
	for i, t := range p.Traits {
		p.Payoffs[i] = m.Of(t)
	}
}

// NewTwoTrait draws N agents i.i.d. with P(TraitA) = p0, P(TraitB) = 1-p0.
func NewTwoTrait(rng *rand.Rand, n int, p0 float64) (*Population, error) {
	if err := checkSize(n); err != nil {
		return nil, err
	}
	if err := CheckProbability("p0", p0); err != nil {
		return nil, err
	}
	pop := &Population{Traits: make([]Trait, n)}
	for i := range pop.Traits {
		if rng.Float64() < p0 {
			pop.Traits[i] = TraitA
		} else {
			pop.Traits[i] = TraitB
		}
	}
	return pop, nil
}

// NewThreeTrait draws N agents i.i.d. with P(A)=pA0, P(B)=pB0, P(C)=1-pA0-pB0.
func NewThreeTrait(rng *rand.Rand, n int, pA0, pB0 float64) (*Population, error) {
	if err := checkSize(n); err != nil {
		return nil, err
	}
	if err := CheckProbability("pa0", pA0); err != nil {
		return nil, err
	}
	if err := CheckProbability("pb0", pB0); err != nil {
		return nil, err
	}
	if pA0+pB0 > 1 {
		return nil, fmt.Errorf("initial proportions exceed 1: pa0=%v pb0=%v", pA0, pB0)
	}
	pop := &Population{Traits: make([]Trait, n)}
	for i := range pop.Traits {
		u := rng.Float64()
		switch {
		case u < pA0:
			pop.Traits[i] = TraitA
		case u < pA0+pB0:
			pop.Traits[i] = TraitB
		default:
			pop.Traits[i] = TraitC
		}
	}
	return pop, nil
}

// NewLinked draws a two-trait population plus a second neutral trait. With
// probability linkage an agent's second trait is tied to its first (A carries
// X, B carries Y); otherwise it is drawn independently with P(X) = q0.
func NewLinked(rng *rand.Rand, n int, p0, linkage, q0 float64) (*Population, error) {
	pop, err := NewTwoTrait(rng, n, p0)
	if err != nil {
		return nil, err
	}
	if err := CheckProbability("linkage", linkage); err != nil {
		return nil, err
	}
	if err := CheckProbability("q0", q0); err != nil {
		return nil, err
	}
	pop.Traits2 = make([]Trait, n)
	for i := range pop.Traits2 {
		if rng.Float64() < linkage {
			if pop.Traits[i] == TraitA {
				pop.Traits2[i] = TraitX
			} else {
				pop.Traits2[i] = TraitY
			}
			continue
		}
		if rng.Float64() < q0 {
			pop.Traits2[i] = TraitX
		} else {
			pop.Traits2[i] = TraitY
		}
	}
	return pop, nil
}

// CheckProbability rejects parameter values outside [0,1].
func CheckProbability(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be in [0,1], got %v", name, v)
	}
	return nil
}

func checkSize(n int) error {
	if n < 1 {
		return fmt.Errorf("population size must be >= 1, got %d", n)
	}
	return nil
}
