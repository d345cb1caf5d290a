package enrichment

import (
	"context"
	"math"

	"github.com/ontobench/ontobench/internal/itemset"
)

const (
	DefaultP = 0.75
	DefaultQ = 0.1

	probEpsilon = 1e-9
)

// Probabilistic scores each category by the likelihood ratio of the
// observed study membership of its items under "category active" (items
// observed with probability P) versus "inactive" (probability Q). The
// score is 1/(1+LR), so strongly supported categories approach 0.
type Probabilistic struct {
	P float64 `mapstructure:"p"`
	Q float64 `mapstructure:"q"`
}

func NewProbabilistic() *Probabilistic {
	return &Probabilistic{P: DefaultP, Q: DefaultQ}
}

func (*Probabilistic) Name() string { return string(TypeProbabilistic) }

func (p *Probabilistic) Clone() Calculation {
	c := *p
	return &c
}

// SetDefaultP sets the probability that an item of an active category is
// observed.
func (p *Probabilistic) SetDefaultP(v float64) { p.P = v }

// SetDefaultQ sets the probability that an item of an inactive category is
// observed.
func (p *Probabilistic) SetDefaultQ(v float64) { p.Q = v }

func (p *Probabilistic) Calculate(ctx context.Context, in Input) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	study := itemset.Enumerate(in.Ontology, in.Associations, in.Study)
	res := &Result{Calculation: p.Name(), PopulationSize: in.Population.ItemCount(), StudySize: study.ItemCount()}

	pp := clamp(p.P, probEpsilon, 1-probEpsilon)
	qq := clamp(p.Q, probEpsilon, 1-probEpsilon)
	on := math.Log(pp) - math.Log(qq)
	off := math.Log1p(-pp) - math.Log1p(-qq)

	for _, t := range in.Population.Terms() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := in.Population.TotalCount(t)
		s := study.TotalCount(t)

		logLR := float64(s)*on + float64(m-s)*off
		score := 1 / (1 + math.Exp(logLR))
		res.Terms = append(res.Terms, TermResult{
			Term:            t,
			P:               score,
			PAdjusted:       score,
			PopulationCount: m,
			StudyCount:      s,
		})
	}
	return res, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
