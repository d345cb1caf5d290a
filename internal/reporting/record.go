package reporting

import (
	"slices"
	"time"

	"github.com/ontobench/ontobench/internal/design"
	"github.com/ontobench/ontobench/internal/enrichment"
	"github.com/ontobench/ontobench/internal/itemset"
	"github.com/ontobench/ontobench/internal/noise"
	"github.com/ontobench/ontobench/internal/ontology"
)

// NoEvidence is the score of a category a method did not report.
const NoEvidence = 1.0

// RunInfo identifies a run and its noise conditions.
type RunInfo struct {
	Run         int
	Combination design.Combination
	// Requested rates; -1 marks a valued run.
	Alpha, Beta float64
	Realized    noise.Realized
	StudySize   int
}

// Row is one category of a run.
type Row struct {
	Term  ontology.TermID
	Label bool
	// Scores holds one adjusted p-value per method, in column order.
	Scores       []float64
	MoreGeneral  bool
	MoreSpecific bool

	PopulationCount int
	StudyCount      int
}

// RunRecord is the complete output of a run.
type RunRecord struct {
	RunInfo
	Rows  []Row
	Times []time.Duration
}

// Aggregator merges method results into rows.
type Aggregator struct {
	ontology   *ontology.Ontology
	population *itemset.Enumerator
}

func NewAggregator(o *ontology.Ontology, population *itemset.Enumerator) *Aggregator {
	return &Aggregator{ontology: o, population: population}
}

// Aggregate builds one row per category reported by any method, in order
// of first appearance across methods. study is the enumeration of the
// binary study set.
func (a *Aggregator) Aggregate(info RunInfo, study *itemset.Enumerator, results []*enrichment.Result, times []time.Duration) *RunRecord {
	rec := &RunRecord{RunInfo: info, Times: times}

	index := map[ontology.TermID]int{}
	for m, res := range results {
		if res == nil {
			continue
		}
		for _, tr := range res.Terms {
			i, ok := index[tr.Term]
			if !ok {
				i = len(rec.Rows)
				index[tr.Term] = i
				rec.Rows = append(rec.Rows, a.newRow(tr.Term, info.Combination.Terms, len(results), study))
			}
			rec.Rows[i].Scores[m] = tr.PAdjusted
		}
	}
	return rec
}

func (a *Aggregator) newRow(t ontology.TermID, targets []ontology.TermID, methods int, study *itemset.Enumerator) Row {
	row := Row{
		Term:            t,
		Label:           slices.Contains(targets, t),
		Scores:          make([]float64, methods),
		PopulationCount: a.population.TotalCount(t),
		StudyCount:      study.TotalCount(t),
	}
	for i := range row.Scores {
		row.Scores[i] = NoEvidence
	}
	for _, target := range targets {
		if !row.MoreGeneral && a.ontology.ExistsPath(t, target) {
			row.MoreGeneral = true
		}
		if !row.MoreSpecific && a.ontology.ExistsPath(target, t) {
			row.MoreSpecific = true
		}
	}
	return row
}
