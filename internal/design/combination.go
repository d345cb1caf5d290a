// Package design decides which target category combinations a benchmark
// simulates.
package design

import (
	"math/rand/v2"
	"strings"

	"github.com/ontobench/ontobench/internal/itemset"
	"github.com/ontobench/ontobench/internal/ontology"
	"github.com/ontobench/ontobench/internal/sampling"
)

// Combination is one set of target categories. It is not modified after
// Build returns it.
type Combination struct {
	Terms       []ontology.TermID
	Senseful    bool
	VaryingBeta bool
}

// Len returns the number of target terms.
func (c Combination) Len() int {
	return len(c.Terms)
}

// Strings returns the term IDs in their textual form.
func (c Combination) Strings() []string {
	out := make([]string, len(c.Terms))
	for i, t := range c.Terms {
		out[i] = t.String()
	}
	return out
}

func (c Combination) String() string {
	return strings.Join(c.Strings(), ",")
}

// Options controls how many combinations Build draws.
type Options struct {
	MinTerms int
	MaxTerms int

	// PerSize combinations are drawn from all terms for every size.
	PerSize int

	// SensefulPerSize combinations are drawn from the senseful terms for
	// every size.
	SensefulPerSize int

	// VaryingBetaCount combinations of VaryingBetaTerms terms are drawn
	// whose targets each get their own false negative rate.
	VaryingBetaCount int
	VaryingBetaTerms int
}

// Build draws the combination list. Sizes run from MinTerms to MaxTerms;
// size zero yields PerSize empty combinations. The plain block comes first,
// then the varying beta block, then the senseful block.
func Build(all, senseful []ontology.TermID, opts Options, rnd *rand.Rand) []Combination {
	var out []Combination
	out = appendSized(out, all, opts.MinTerms, opts.MaxTerms, opts.PerSize, rnd, Combination{})

	if opts.VaryingBetaCount > 0 && opts.VaryingBetaTerms > 0 {
		s := sampling.NewKSubsetSampler(all, rnd)
		for _, terms := range s.SampleManyOrderedWithoutReplacement(opts.VaryingBetaTerms, opts.VaryingBetaCount) {
			out = append(out, Combination{Terms: terms, VaryingBeta: true})
		}
	}

	return appendSized(out, senseful, opts.MinTerms, opts.MaxTerms, opts.SensefulPerSize, rnd, Combination{Senseful: true})
}

func appendSized(out []Combination, pop []ontology.TermID, minTerms, maxTerms, perSize int, rnd *rand.Rand, proto Combination) []Combination {
	if perSize <= 0 || len(pop) == 0 {
		return out
	}

	s := sampling.NewKSubsetSampler(pop, rnd)
	for k := minTerms; k <= maxTerms; k++ {
		if k == 0 {
			for range perSize {
				c := proto
				c.Terms = []ontology.TermID{}
				out = append(out, c)
			}
			continue
		}
		for _, terms := range s.SampleManyOrderedWithoutReplacement(k, perSize) {
			c := proto
			c.Terms = terms
			out = append(out, c)
		}
	}
	return out
}

// SensefulTerms returns the terms of enum that are neither too specific nor
// too general: annotated to more than minItems items and to less than
// maxProportion of rootCount.
func SensefulTerms(enum *itemset.Enumerator, rootCount, minItems int, maxProportion float64) []ontology.TermID {
	if rootCount <= 0 {
		return nil
	}

	var out []ontology.TermID
	for _, t := range enum.Terms() {
		n := enum.TotalCount(t)
		if n > minItems && float64(n)/float64(rootCount) < maxProportion {
			out = append(out, t)
		}
	}
	return out
}
