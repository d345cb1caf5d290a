package enrichment

import (
	"fmt"
	"slices"
	"sync"
)

// Registry maps calculation names to prototypes. Lookups return the
// registered value; callers clone before configuring.
type Registry struct {
	mu    sync.RWMutex
	calcs map[string]Calculation
}

func NewRegistry() *Registry {
	return &Registry{calcs: map[string]Calculation{}}
}

// DefaultRegistry returns a registry holding every builtin calculation.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, t := range []Type{TypeTermForTerm, TypeParentChildUnion, TypeParentChildIntersection, TypeProbabilistic, TypeMGSA} {
		c, err := Create(t, nil)
		if err != nil {
			panic(err)
		}
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds c under its name.
func (r *Registry) Register(c Calculation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.calcs[c.Name()]; exists {
		return fmt.Errorf("calculation %q is already registered", c.Name())
	}
	r.calcs[c.Name()] = c
	return nil
}

// Lookup returns the calculation registered as name.
func (r *Registry) Lookup(name string) (Calculation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.calcs[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownCalculation, name)
	}
	return c, nil
}

// Names returns the registered names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.calcs))
	for n := range r.calcs {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
