package itemset

import (
	"slices"

	"github.com/ontobench/ontobench/internal/association"
	"github.com/ontobench/ontobench/internal/ontology"
)

// AnnotatedItems lists the items annotated to a term, directly and after
// propagation to ancestors.
type AnnotatedItems struct {
	Direct []string
	Total  []string
}

// Enumerator maps every term to the items of one study set annotated to it.
type Enumerator struct {
	ont       *ontology.Ontology
	terms     map[ontology.TermID]*AnnotatedItems
	itemTerms map[string][]ontology.TermID
	order     []ontology.TermID
	items     []string
}

// Enumerate annotates the items of set with their direct terms and every
// ancestor of those terms. Items without annotations are ignored.
func Enumerate(o *ontology.Ontology, assoc *association.Container, set *StudySet) *Enumerator {
	e := &Enumerator{
		ont:       o,
		terms:     map[ontology.TermID]*AnnotatedItems{},
		itemTerms: map[string][]ontology.TermID{},
	}

	for _, item := range set.items {
		direct := assoc.Annotations(item)
		if len(direct) == 0 {
			continue
		}

		closure := map[ontology.TermID]struct{}{}
		for _, d := range direct {
			if !o.Has(d) {
				continue
			}
			e.entry(d).Direct = appendOnce(e.entry(d).Direct, item)
			closure[d] = struct{}{}
			for _, a := range o.Ancestors(d) {
				closure[a] = struct{}{}
			}
		}
		if len(closure) == 0 {
			continue
		}

		e.items = append(e.items, item)
		all := make([]ontology.TermID, 0, len(closure))
		for t := range closure {
			all = append(all, t)
		}
		slices.SortFunc(all, func(a, b ontology.TermID) int { return o.Order(a) - o.Order(b) })
		for _, t := range all {
			entry := e.entry(t)
			entry.Total = append(entry.Total, item)
		}
		e.itemTerms[item] = all
	}

	e.order = make([]ontology.TermID, 0, len(e.terms))
	for t := range e.terms {
		e.order = append(e.order, t)
	}
	slices.SortFunc(e.order, func(a, b ontology.TermID) int { return o.Order(a) - o.Order(b) })
	return e
}

func (e *Enumerator) entry(t ontology.TermID) *AnnotatedItems {
	a, ok := e.terms[t]
	if !ok {
		a = &AnnotatedItems{}
		e.terms[t] = a
	}
	return a
}

func appendOnce(items []string, item string) []string {
	if len(items) > 0 && items[len(items)-1] == item {
		return items
	}
	return append(items, item)
}

// Terms returns the terms with at least one annotated item in ontology
// order.
func (e *Enumerator) Terms() []ontology.TermID {
	return slices.Clone(e.order)
}

// Annotated returns the items annotated to t. The result must not be
// modified.
func (e *Enumerator) Annotated(t ontology.TermID) AnnotatedItems {
	if a, ok := e.terms[t]; ok {
		return *a
	}
	return AnnotatedItems{}
}

// TotalCount returns the number of items annotated to t after propagation.
func (e *Enumerator) TotalCount(t ontology.TermID) int {
	if a, ok := e.terms[t]; ok {
		return len(a.Total)
	}
	return 0
}

// ItemTerms returns every term item is annotated to after propagation.
func (e *Enumerator) ItemTerms(item string) []ontology.TermID {
	return e.itemTerms[item]
}

// Items returns the annotated items of the enumerated set in set order.
func (e *Enumerator) Items() []string {
	return slices.Clone(e.items)
}

// ItemCount returns the number of annotated items.
func (e *Enumerator) ItemCount() int {
	return len(e.items)
}

// Ontology returns the ontology the enumeration was computed over.
func (e *Enumerator) Ontology() *ontology.Ontology {
	return e.ont
}
