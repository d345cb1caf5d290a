package enrichment

import (
	"context"

	"github.com/ontobench/ontobench/internal/itemset"
	"github.com/ontobench/ontobench/internal/ontology"
)

// ParentChild tests each category against the items annotated to its
// parents instead of the whole population. With Intersection set the
// reference is the items annotated to all parents, otherwise to any.
// Categories without parents get p = 1.
type ParentChild struct {
	Intersection bool
}

func (pc *ParentChild) Name() string {
	if pc.Intersection {
		return string(TypeParentChildIntersection)
	}
	return string(TypeParentChildUnion)
}

func (pc *ParentChild) Calculate(ctx context.Context, in Input) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	study := itemset.Enumerate(in.Ontology, in.Associations, in.Study)
	res := &Result{Calculation: pc.Name(), PopulationSize: in.Population.ItemCount(), StudySize: study.ItemCount()}

	for _, t := range in.Population.Terms() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tr := TermResult{
			Term:            t,
			P:               1,
			PopulationCount: in.Population.TotalCount(t),
			StudyCount:      study.TotalCount(t),
		}

		parents := in.Ontology.Parents(t)
		if len(parents) > 0 && tr.StudyCount > 0 {
			N := pc.parentCount(in.Population, parents)
			n := pc.parentCount(study, parents)
			tr.P = hypergeometricUpperTail(N, tr.PopulationCount, n, tr.StudyCount)
		}
		res.Terms = append(res.Terms, tr)
	}
	adjust(res.Terms, in.correction())
	return res, nil
}

// parentCount counts the items annotated to any (union) or every
// (intersection) parent.
func (pc *ParentChild) parentCount(e *itemset.Enumerator, parents []ontology.TermID) int {
	if len(parents) == 1 {
		return e.TotalCount(parents[0])
	}

	seen := map[string]int{}
	for _, p := range parents {
		for _, it := range e.Annotated(p).Total {
			seen[it]++
		}
	}
	if !pc.Intersection {
		return len(seen)
	}

	n := 0
	for _, c := range seen {
		if c == len(parents) {
			n++
		}
	}
	return n
}
