package rules

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"driftlab/internal/model"
)

var (
	ErrModelExists   = errors.New("model already registered")
	ErrModelNotFound = errors.New("model not found")
)

// Factory builds a model from the flat parameter record. The returned model
// has not been validated yet.
type Factory func(p model.Params) Model

var modelRegistry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: make(map[string]Factory),
}

func Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("model name is required")
	}
	if factory == nil {
		return fmt.Errorf("model factory is required")
	}

	modelRegistry.mu.Lock()
	defer modelRegistry.mu.Unlock()
	if _, exists := modelRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrModelExists, name)
	}
	modelRegistry.m[name] = factory
	return nil
}

// New builds and validates the named model from params.
func New(name string, p model.Params) (Model, error) {
	modelRegistry.mu.RLock()
	factory, ok := modelRegistry.m[name]
	modelRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}

	m := factory(p)
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}
	return m, nil
}

// Names lists the registered model identifiers in sorted order.
func Names() []string {
	modelRegistry.mu.RLock()
	defer modelRegistry.mu.RUnlock()

	names := make([]string, 0, len(modelRegistry.m))
	for name := range modelRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mustRegister(name string, factory Factory) {
	if err := Register(name, factory); err != nil {
		panic(err)
	}
}

func init() {
	mustRegister("unbiased_transmission", func(p model.Params) Model {
		return UnbiasedTransmission{P0: p.P0}
	})
	mustRegister("unbiased_mutation_2", func(p model.Params) Model {
		return TwoTraitMutation{P0: p.P0, Mu: p.Mu}
	})
	mustRegister("unbiased_mutation_3", func(p model.Params) Model {
		return ThreeTraitMutation{PA0: p.PA0, PB0: p.PB0, Mu: p.Mu}
	})
	mustRegister("biased_mutation", func(p model.Params) Model {
		return BiasedMutation{P0: p.P0, MuB: p.MuB}
	})
	mustRegister("direct_bias", func(p model.Params) Model {
		return DirectBias{P0: p.P0, S: p.S}
	})
	mustRegister("indirect_bias", func(p model.Params) Model {
		return IndirectBias{P0: p.P0, S: p.S}
	})
	mustRegister("indirect_bias_linked", func(p model.Params) Model {
		return LinkedIndirectBias{P0: p.P0, Q0: p.Q0, Linkage: p.Linkage, S: p.S}
	})
}
