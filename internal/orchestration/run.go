package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ontobench/ontobench/internal/association"
	"github.com/ontobench/ontobench/internal/enrichment"
	"github.com/ontobench/ontobench/internal/itemset"
	"github.com/ontobench/ontobench/internal/noise"
	"github.com/ontobench/ontobench/internal/ontology"
	"github.com/ontobench/ontobench/internal/reporting"
	"github.com/ontobench/ontobench/internal/sampling"
)

// ErrPopulationMismatch is returned by CheckPopulation when the population
// and the ontology root disagree on the number of annotated items.
var ErrPopulationMismatch = errors.New("population size does not match the items annotated to the root")

// Environment holds the inputs shared read-only by all runs.
type Environment struct {
	Ontology     *ontology.Ontology
	Associations *association.Container
	Population   *itemset.Enumerator

	// ValuedThreshold derives the binary study set of a valued run.
	ValuedThreshold float64

	populationSize int
	noise          *noise.Model
	aggregator     *reporting.Aggregator
}

// NewEnvironment enumerates population over o and prepares the noise model.
func NewEnvironment(o *ontology.Ontology, assoc *association.Container, population *itemset.StudySet, valuedThreshold float64) (*Environment, error) {
	if o == nil || assoc == nil || population == nil {
		return nil, errors.New("ontology, associations and population are required")
	}
	if valuedThreshold <= 0 {
		valuedThreshold = noise.DefaultValuedThreshold
	}
	enum := itemset.Enumerate(o, assoc, population)
	return &Environment{
		Ontology:        o,
		Associations:    assoc,
		Population:      enum,
		ValuedThreshold: valuedThreshold,
		populationSize:  population.Len(),
		noise:           noise.NewModel(enum),
		aggregator:      reporting.NewAggregator(o, enum),
	}, nil
}

// CheckPopulation verifies every population item is annotated to the
// root, which fails when annotations refer to terms missing from the
// ontology.
func (e *Environment) CheckPopulation() error {
	root := e.Ontology.Root()
	annotated := e.Population.TotalCount(root)
	if e.populationSize != annotated {
		return fmt.Errorf("%w: %d items, %d annotated to %s", ErrPopulationMismatch, e.populationSize, annotated, root)
	}
	return nil
}

// execute generates the study set of rc, applies every method and merges
// the results. All randomness comes from the run seed: per-target betas
// first, then the noise, then the method seeds.
func (s *Scheduler) execute(ctx context.Context, rc RunContext) (*reporting.RunRecord, error) {
	env := s.env
	rnd := sampling.NewRand(rc.Seed)
	targets := noise.Targets(rc.Combination.Terms, rc.Combination.VaryingBeta, rnd)

	trial := Trial{
		Alpha:     rc.Alpha,
		Beta:      rc.Beta,
		TermCount: rc.Combination.Len(),
	}

	var gen *noise.Generated
	if rc.Valued() {
		gen = env.noise.Valued(rnd, rc.Combination.Terms)
		trial.Valued = gen.Set
		trial.Input.Study = noise.Threshold(gen.Set, env.ValuedThreshold)
	} else {
		gen = env.noise.Binary(rnd, targets, rc.Alpha, rc.Beta)
		trial.Input.Study = gen.Set
		trial.Realized = &gen.Realized
	}
	trial.Input.Ontology = env.Ontology
	trial.Input.Associations = env.Associations
	trial.Input.Population = env.Population

	s.logger.Debug("study set generated",
		"run", rc.Index,
		"items", trial.Input.Study.Len(),
		"truth", len(gen.Truth),
		"realized_alpha", gen.Realized.Alpha,
		"realized_beta", gen.Realized.Beta,
	)

	out, err := s.adapter.Run(ctx, rnd, trial)
	if err != nil {
		return nil, err
	}

	results := make([]*enrichment.Result, len(out))
	times := make([]time.Duration, len(out))
	for i, r := range out {
		if r.Result == nil {
			return nil, fmt.Errorf("method %s returned no result", s.adapter.methods[i].Abbrev)
		}
		results[i] = r.Result
		times[i] = r.Elapsed
	}

	study := itemset.Enumerate(env.Ontology, env.Associations, trial.Input.Study)
	info := reporting.RunInfo{
		Run:         rc.Index,
		Combination: rc.Combination,
		Alpha:       rc.Alpha,
		Beta:        rc.Beta,
		Realized:    gen.Realized,
		StudySize:   trial.Input.Study.Len(),
	}
	return env.aggregator.Aggregate(info, study, results, times), nil
}
