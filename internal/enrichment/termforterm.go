package enrichment

import (
	"context"

	"github.com/ontobench/ontobench/internal/itemset"
)

// TermForTerm tests every category independently with a one-sided
// hypergeometric test.
type TermForTerm struct{}

func (*TermForTerm) Name() string { return string(TypeTermForTerm) }

func (*TermForTerm) Calculate(ctx context.Context, in Input) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	study := itemset.Enumerate(in.Ontology, in.Associations, in.Study)
	N := in.Population.ItemCount()
	n := study.ItemCount()

	res := &Result{Calculation: string(TypeTermForTerm), PopulationSize: N, StudySize: n}
	for _, t := range in.Population.Terms() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		K := in.Population.TotalCount(t)
		k := study.TotalCount(t)
		res.Terms = append(res.Terms, TermResult{
			Term:            t,
			P:               hypergeometricUpperTail(N, K, n, k),
			PopulationCount: K,
			StudyCount:      k,
		})
	}
	adjust(res.Terms, in.correction())
	return res, nil
}
