// Package noise turns a set of target categories into an observed study set
// with known ground truth.
package noise

import (
	"math/rand/v2"

	"github.com/ontobench/ontobench/internal/itemset"
	"github.com/ontobench/ontobench/internal/ontology"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultValuedThreshold separates relevant from irrelevant items of a
// valued study set.
const DefaultValuedThreshold = 0.05

// VaryingBetas are the false negative rates drawn for targets of a varying
// beta combination.
var VaryingBetas = []float64{0.2, 0.4, 0.6, 0.8}

// Target is one category whose items make up part of the ground truth. Beta
// overrides the shared false negative rate when set.
type Target struct {
	Term ontology.TermID
	Beta *float64
}

// Realized holds the noise rates actually applied to a generated set.
type Realized struct {
	Alpha float64
	Beta  float64
}

// Generated is an observed study set together with its ground truth.
type Generated struct {
	Set      *itemset.StudySet
	Truth    []string
	Realized Realized
}

// Model generates study sets over one population.
type Model struct {
	population []string
	enum       *itemset.Enumerator
}

// NewModel uses the annotated items of the population enumeration.
func NewModel(population *itemset.Enumerator) *Model {
	return &Model{population: population.Items(), enum: population}
}

// Targets wraps terms as targets. With varying set every target draws its
// own false negative rate from VaryingBetas.
func Targets(terms []ontology.TermID, varying bool, rnd *rand.Rand) []Target {
	out := make([]Target, len(terms))
	for i, t := range terms {
		out[i] = Target{Term: t}
		if varying {
			b := VaryingBetas[rnd.IntN(len(VaryingBetas))]
			out[i].Beta = &b
		}
	}
	return out
}

// termItems returns the deduplicated items annotated to t after
// propagation. Unannotated categories contribute nothing.
func (m *Model) termItems(t ontology.TermID) []string {
	return m.enum.Annotated(t).Total
}

// truth returns the ordered union of the target item sets.
func (m *Model) truth(terms []ontology.TermID) ([]string, map[string]struct{}) {
	set := map[string]struct{}{}
	var items []string
	for _, t := range terms {
		for _, it := range m.termItems(t) {
			if _, ok := set[it]; ok {
				continue
			}
			set[it] = struct{}{}
			items = append(items, it)
		}
	}
	return items, set
}

// Binary builds the observed set (truth plus false positives minus false
// negatives). Every item outside the truth becomes a false positive with
// probability alpha. Truth items are dropped with probability beta, or,
// when any target carries its own beta, with that target's rate over the
// target's items.
func (m *Model) Binary(rnd *rand.Rand, targets []Target, alpha, beta float64) *Generated {
	terms := make([]ontology.TermID, len(targets))
	perTarget := false
	for i, t := range targets {
		terms[i] = t.Term
		if t.Beta != nil {
			perTarget = true
		}
	}
	truth, inTruth := m.truth(terms)

	tp := len(truth)
	tn := len(m.population) - tp

	fp := map[string]struct{}{}
	for _, it := range m.population {
		if _, ok := inTruth[it]; ok {
			continue
		}
		if rnd.Float64() < alpha {
			fp[it] = struct{}{}
		}
	}

	fn := map[string]struct{}{}
	if !perTarget {
		for _, it := range truth {
			if rnd.Float64() < beta {
				fn[it] = struct{}{}
			}
		}
	} else {
		for _, t := range targets {
			b := beta
			if t.Beta != nil {
				b = *t.Beta
			}
			for _, it := range m.termItems(t.Term) {
				if rnd.Float64() < b {
					fn[it] = struct{}{}
				}
			}
		}
	}

	set := itemset.New("study")
	for _, it := range m.population {
		if _, ok := inTruth[it]; ok {
			if _, dropped := fn[it]; !dropped {
				set.Add(it)
			}
			continue
		}
		if _, ok := fp[it]; ok {
			set.Add(it)
		}
	}

	r := Realized{Beta: beta}
	if tn > 0 {
		r.Alpha = float64(len(fp)) / float64(tn)
	}
	if tp > 0 {
		r.Beta = float64(len(fn)) / float64(tp)
	}
	return &Generated{Set: set, Truth: truth, Realized: r}
}

// Valued builds a set containing every population item with a value. Items
// outside the targets get a value from U[0,1), target items one from
// U[0,0.1), so relevant items tend to rank first.
func (m *Model) Valued(rnd *rand.Rand, terms []ontology.TermID) *Generated {
	truth, inTruth := m.truth(terms)

	irrelevant := distuv.Uniform{Min: 0, Max: 1, Src: rnd}
	relevant := distuv.Uniform{Min: 0, Max: 0.1, Src: rnd}

	set := itemset.New("generated")
	for _, it := range m.population {
		if _, ok := inTruth[it]; ok {
			continue
		}
		set.AddValued(it, irrelevant.Rand())
	}
	for _, it := range truth {
		set.AddValued(it, relevant.Rand())
	}
	return &Generated{Set: set, Truth: truth, Realized: Realized{Alpha: -1, Beta: -1}}
}

// Threshold returns the items of a valued set whose value is strictly below
// cutoff.
func Threshold(valued *itemset.StudySet, cutoff float64) *itemset.StudySet {
	out := itemset.New("study")
	for _, it := range valued.Items() {
		attr, _ := valued.Attribute(it)
		if attr.Valued && attr.Value < cutoff {
			out.AddWithAttribute(it, itemset.Attribute{Description: attr.Description})
		}
	}
	return out
}
