package enrichment

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/ontobench/ontobench/internal/itemset"
	"github.com/ontobench/ontobench/internal/noise"
	"github.com/ontobench/ontobench/internal/ontology"
	"github.com/ontobench/ontobench/internal/sampling"
	"gonum.org/v1/gonum/floats"
)

// ParamMode selects how MGSA treats the noise rates and the prior.
type ParamMode string

const (
	// ModeFixed uses Alpha, Beta and ExpectedTerms as given.
	ModeFixed ParamMode = "fixed"
	// ModeMCMC samples the parameters from grids alongside the term states.
	ModeMCMC ParamMode = "mcmc"
	// ModeEM re-estimates the parameters from the chain after every round.
	ModeEM ParamMode = "em"
)

const (
	DefaultMCMCSteps = 1020000

	DefaultAlpha = 0.1
	DefaultBeta  = 0.25

	emRounds          = 10
	burnInFraction    = 10
	paramMoveRate     = 0.1
	thresholdMoveRate = 0.001
	ctxCheckInterval  = 4096
	rateFloor         = 1e-6
)

var (
	// ThresholdGrid holds the candidate cut-offs for value-aware sampling.
	ThresholdGrid = []float64{0.01, 0.025, 0.05, 0.1, 0.2}

	rateGrid      = []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.15, 0.2, 0.25, 0.3, 0.35, 0.4, 0.45, 0.5, 0.55, 0.6, 0.65, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95}
	expectedCount = []float64{1, 2, 3, 4, 5, 6, 8, 10, 15, 20}
)

// MGSA is model-based gene set analysis: categories are switched on or off
// so that the items of active categories explain the observed study set up
// to false positive rate alpha and false negative rate beta. The marginal
// posterior of each category is estimated by Metropolis-Hastings sampling
// and reported as P = 1 - posterior.
type MGSA struct {
	Seed  uint64 `mapstructure:"seed"`
	Steps int    `mapstructure:"steps"`

	UsePrior bool `mapstructure:"use_prior"`

	// PopulationAsReference keeps every population item in the model.
	// Otherwise items annotated to no category below the root are ignored.
	PopulationAsReference bool `mapstructure:"population_as_reference"`

	RandomStart bool `mapstructure:"random_start"`

	// IntegrateParams marginalizes alpha and beta over their grids instead
	// of sampling them.
	IntegrateParams bool `mapstructure:"integrate_params"`

	Mode  ParamMode `mapstructure:"mode"`
	Alpha float64   `mapstructure:"alpha"`
	Beta  float64   `mapstructure:"beta"`

	// ExpectedTerms fixes the prior to ExpectedTerms/|categories| when
	// positive.
	ExpectedTerms float64 `mapstructure:"expected_terms"`

	// MaxBeta restricts beta to (0, MaxBeta) when positive.
	MaxBeta float64 `mapstructure:"max_beta"`

	// ValueAware samples the study set cut-off from ThresholdGrid when the
	// study set carries values.
	ValueAware bool `mapstructure:"value_aware"`
}

func NewMGSA() *MGSA {
	return &MGSA{
		Steps:    DefaultMCMCSteps,
		UsePrior: true,
		Mode:     ModeMCMC,
		Alpha:    DefaultAlpha,
		Beta:     DefaultBeta,
	}
}

func (*MGSA) Name() string { return string(TypeMGSA) }

func (m *MGSA) Clone() Calculation {
	c := *m
	return &c
}

func (m *MGSA) Calculate(ctx context.Context, in Input) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	switch m.Mode {
	case ModeFixed, ModeMCMC, ModeEM:
	default:
		return nil, fmt.Errorf("mgsa: unknown parameter mode %q", m.Mode)
	}

	model := m.buildModel(in)
	c := m.newChain(model, sampling.NewRand(m.Seed))

	active, samples, err := c.run(ctx, max(m.Steps, 0))
	if err != nil {
		return nil, err
	}

	study := itemset.Enumerate(in.Ontology, in.Associations, in.Study)
	res := &Result{Calculation: m.Name(), PopulationSize: in.Population.ItemCount(), StudySize: study.ItemCount()}
	for _, t := range in.Population.Terms() {
		tr := TermResult{
			Term:            t,
			P:               1,
			PopulationCount: in.Population.TotalCount(t),
			StudyCount:      study.TotalCount(t),
		}
		if i, ok := model.termIndex[t]; ok {
			var marginal float64
			if samples > 0 {
				marginal = float64(active[i]) / float64(samples)
			} else if c.active[i] {
				marginal = 1
			}
			tr.P = 1 - marginal
		}
		tr.PAdjusted = tr.P
		res.Terms = append(res.Terms, tr)
	}
	return res, nil
}

type mgsaModel struct {
	terms     []ontology.TermID
	termIndex map[ontology.TermID]int
	termItems [][]int32

	nItems int

	// values is set for value-aware runs, observed otherwise.
	values   []float64
	observed []bool
}

func (m *MGSA) buildModel(in Input) *mgsaModel {
	root := in.Ontology.Root()
	model := &mgsaModel{termIndex: map[ontology.TermID]int{}}

	var terms []ontology.TermID
	for _, t := range in.Population.Terms() {
		if t != root && in.Population.TotalCount(t) > 0 {
			terms = append(terms, t)
		}
	}

	itemIndex := map[string]int32{}
	var items []string
	addItem := func(it string) int32 {
		if i, ok := itemIndex[it]; ok {
			return i
		}
		i := int32(len(items))
		itemIndex[it] = i
		items = append(items, it)
		return i
	}
	if m.PopulationAsReference {
		for _, it := range in.Population.Items() {
			addItem(it)
		}
	}

	model.terms = terms
	model.termItems = make([][]int32, len(terms))
	for i, t := range terms {
		model.termIndex[t] = i
		total := in.Population.Annotated(t).Total
		idx := make([]int32, len(total))
		for j, it := range total {
			idx[j] = addItem(it)
		}
		model.termItems[i] = idx
	}
	model.nItems = len(items)

	valued := in.Study.Valued()
	if valued && m.ValueAware {
		model.values = make([]float64, len(items))
		for i, it := range items {
			model.values[i] = math.Inf(1)
			if a, ok := in.Study.Attribute(it); ok && a.Valued {
				model.values[i] = a.Value
			}
		}
		return model
	}

	model.observed = make([]bool, len(items))
	for i, it := range items {
		a, ok := in.Study.Attribute(it)
		switch {
		case !ok:
		case valued:
			model.observed[i] = a.Valued && a.Value < noise.DefaultValuedThreshold
		default:
			model.observed[i] = true
		}
	}
	return model
}

// chain is the sampler state. n[h][o] counts items by hidden state h and
// observed state o.
type chain struct {
	cfg   *MGSA
	model *mgsaModel
	rnd   *rand.Rand

	active     []bool
	activeList []int
	pos        []int
	hidden     []int32
	obs        []bool
	n          [2][2]int

	alpha, beta, p float64
	tau            int

	betaGrid []float64
	pGrid    []float64

	sampleAlphaBeta bool
	sampleP         bool
}

func (m *MGSA) newChain(model *mgsaModel, rnd *rand.Rand) *chain {
	nTerms := len(model.terms)
	c := &chain{
		cfg:    m,
		model:  model,
		rnd:    rnd,
		active: make([]bool, nTerms),
		pos:    make([]int, nTerms),
		hidden: make([]int32, model.nItems),
		alpha:  clamp(m.Alpha, rateFloor, 1-rateFloor),
		beta:   clamp(m.Beta, rateFloor, 1-rateFloor),
		tau:    slices.Index(ThresholdGrid, noise.DefaultValuedThreshold),
	}

	for _, b := range rateGrid {
		if m.MaxBeta <= 0 || b < m.MaxBeta {
			c.betaGrid = append(c.betaGrid, b)
		}
	}
	for _, k := range expectedCount {
		if k < float64(nTerms) {
			c.pGrid = append(c.pGrid, k/float64(nTerms))
		}
	}
	if len(c.pGrid) == 0 {
		c.pGrid = []float64{0.5}
	}

	switch {
	case m.ExpectedTerms > 0 && nTerms > 0:
		c.p = clamp(m.ExpectedTerms/float64(nTerms), rateFloor, 1-rateFloor)
	case m.Mode == ModeFixed:
		c.p = c.pGrid[0]
	default:
		c.p = c.pGrid[len(c.pGrid)/2]
		c.sampleP = m.UsePrior
	}
	if m.Mode != ModeFixed {
		c.alpha = rateGrid[len(rateGrid)/2]
		c.beta = c.betaGrid[len(c.betaGrid)/2]
		c.sampleAlphaBeta = m.Mode == ModeMCMC && !m.IntegrateParams
	}
	if m.Mode == ModeEM {
		c.sampleP = false
	}

	c.obs = make([]bool, model.nItems)
	c.refreshObserved()

	if m.RandomStart {
		for t := range nTerms {
			if c.rnd.Float64() < c.p {
				c.toggle(t)
			}
		}
	}
	return c
}

func (c *chain) valueAware() bool {
	return c.model.values != nil
}

func (c *chain) refreshObserved() {
	if c.valueAware() {
		cut := ThresholdGrid[c.tau]
		for i, v := range c.model.values {
			c.obs[i] = v < cut
		}
	} else {
		copy(c.obs, c.model.observed)
	}

	c.n = [2][2]int{}
	for i, o := range c.obs {
		h := 0
		if c.hidden[i] > 0 {
			h = 1
		}
		c.n[h][b2i(o)]++
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (c *chain) toggle(t int) {
	on := !c.active[t]
	c.active[t] = on
	if on {
		c.pos[t] = len(c.activeList)
		c.activeList = append(c.activeList, t)
	} else {
		last := c.activeList[len(c.activeList)-1]
		c.activeList[c.pos[t]] = last
		c.pos[last] = c.pos[t]
		c.activeList = c.activeList[:len(c.activeList)-1]
	}

	for _, g := range c.model.termItems[t] {
		o := b2i(c.obs[g])
		if on {
			c.hidden[g]++
			if c.hidden[g] == 1 {
				c.n[0][o]--
				c.n[1][o]++
			}
		} else {
			c.hidden[g]--
			if c.hidden[g] == 0 {
				c.n[1][o]--
				c.n[0][o]++
			}
		}
	}
}

func (c *chain) score() float64 {
	return c.logLikelihood() + c.logPrior()
}

func (c *chain) logLikelihood() float64 {
	if c.cfg.IntegrateParams && c.cfg.Mode != ModeFixed {
		return marginal(rateGrid, c.n[0][1], c.n[0][0]) + marginal(c.betaGrid, c.n[1][0], c.n[1][1])
	}
	return bernoulli(c.alpha, c.n[0][1], c.n[0][0]) + bernoulli(c.beta, c.n[1][0], c.n[1][1])
}

func (c *chain) logPrior() float64 {
	if !c.cfg.UsePrior {
		return 0
	}
	return bernoulli(c.p, len(c.activeList), len(c.active)-len(c.activeList))
}

// bernoulli is the log likelihood of hits successes and misses failures.
func bernoulli(rate float64, hits, misses int) float64 {
	return float64(hits)*math.Log(rate) + float64(misses)*math.Log1p(-rate)
}

// marginal averages the bernoulli likelihood over a uniform grid.
func marginal(grid []float64, hits, misses int) float64 {
	l := make([]float64, len(grid))
	for i, r := range grid {
		l[i] = bernoulli(r, hits, misses)
	}
	return floats.LogSumExp(l) - math.Log(float64(len(grid)))
}

func (c *chain) accept(before, after float64) bool {
	if after >= before {
		return true
	}
	return c.rnd.Float64() < math.Exp(after-before)
}

// run performs steps Metropolis-Hastings steps and returns how often each
// term was active after burn-in together with the number of samples.
func (c *chain) run(ctx context.Context, steps int) ([]int, int, error) {
	counts := make([]int, len(c.active))
	if len(c.active) == 0 {
		return counts, 0, nil
	}
	samples := 0
	burnIn := steps / burnInFraction

	roundLen := steps
	if c.cfg.Mode == ModeEM {
		roundLen = max(steps/emRounds, 1)
	}
	var est emEstimate

	for step := range steps {
		if step%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}

		u := c.rnd.Float64()
		switch {
		case c.valueAware() && u < thresholdMoveRate:
			c.proposeThreshold()
		case (c.sampleAlphaBeta || c.sampleP) && u < paramMoveRate:
			c.proposeParam()
		default:
			c.proposeTerms()
		}

		if step >= burnIn {
			for _, t := range c.activeList {
				counts[t]++
			}
			samples++
		}

		if c.cfg.Mode == ModeEM {
			est.add(c)
			if (step+1)%roundLen == 0 {
				est.apply(c)
				est = emEstimate{}
			}
		}
	}
	return counts, samples, nil
}

func (c *chain) proposeTerms() {
	nTerms := len(c.active)
	if nTerms == 0 {
		return
	}
	before := c.score()

	if len(c.activeList) > 0 && len(c.activeList) < nTerms && c.rnd.IntN(2) == 0 {
		a := c.activeList[c.rnd.IntN(len(c.activeList))]
		b := c.rnd.IntN(nTerms)
		for c.active[b] {
			b = c.rnd.IntN(nTerms)
		}
		c.toggle(a)
		c.toggle(b)
		if !c.accept(before, c.score()) {
			c.toggle(b)
			c.toggle(a)
		}
		return
	}

	t := c.rnd.IntN(nTerms)
	c.toggle(t)
	if !c.accept(before, c.score()) {
		c.toggle(t)
	}
}

func (c *chain) proposeParam() {
	before := c.score()
	var (
		target *float64
		grid   []float64
	)
	switch which := c.rnd.IntN(3); {
	case c.sampleAlphaBeta && which == 0:
		target, grid = &c.alpha, rateGrid
	case c.sampleAlphaBeta && which == 1:
		target, grid = &c.beta, c.betaGrid
	case c.sampleP:
		target, grid = &c.p, c.pGrid
	default:
		return
	}

	old := *target
	*target = grid[c.rnd.IntN(len(grid))]
	if !c.accept(before, c.score()) {
		*target = old
	}
}

func (c *chain) proposeThreshold() {
	if len(ThresholdGrid) < 2 {
		return
	}
	before := c.score()
	old := c.tau
	next := c.rnd.IntN(len(ThresholdGrid) - 1)
	if next >= old {
		next++
	}
	c.tau = next
	c.refreshObserved()
	if !c.accept(before, c.score()) {
		c.tau = old
		c.refreshObserved()
	}
}

// emEstimate accumulates the parameter estimates of one EM round.
type emEstimate struct {
	alpha, beta, p float64
	n              int
}

func (e *emEstimate) add(c *chain) {
	e.alpha += ratio(c.n[0][1], c.n[0][0])
	e.beta += ratio(c.n[1][0], c.n[1][1])
	if len(c.active) > 0 {
		e.p += float64(len(c.activeList)) / float64(len(c.active))
	}
	e.n++
}

func (e *emEstimate) apply(c *chain) {
	if e.n == 0 {
		return
	}
	n := float64(e.n)
	c.alpha = clamp(e.alpha/n, rateFloor, 1-rateFloor)
	maxBeta := 1 - rateFloor
	if c.cfg.MaxBeta > 0 {
		maxBeta = c.cfg.MaxBeta - rateFloor
	}
	c.beta = clamp(e.beta/n, rateFloor, maxBeta)
	if c.cfg.ExpectedTerms <= 0 {
		c.p = clamp(e.p/n, rateFloor, 1-rateFloor)
	}
}

func ratio(hits, misses int) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
