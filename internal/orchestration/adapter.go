package orchestration

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/ontobench/ontobench/internal/enrichment"
	"github.com/ontobench/ontobench/internal/itemset"
	"github.com/ontobench/ontobench/internal/models"
	"github.com/ontobench/ontobench/internal/noise"
	"github.com/ontobench/ontobench/internal/statistics"
)

//go:generate mockgen -destination=mock_calculation_test.go -package=orchestration github.com/ontobench/ontobench/internal/enrichment Calculation

// defaultMaxBeta bounds beta for methods with the MaxBeta flag.
const defaultMaxBeta = 0.8

// Trial is what a single run hands to the methods.
type Trial struct {
	// Input carries the shared data and the binary study set.
	Input enrichment.Input

	// Valued is the valued study set of a valued run, nil otherwise.
	Valued *itemset.StudySet

	// Realized is nil on valued runs.
	Realized *noise.Realized

	// Requested noise rates; negative on valued runs.
	Alpha, Beta float64

	// TermCount is the number of target categories.
	TermCount int
}

// rates returns the rates a method should assume. Realized rates win over
// requested ones; negative rates are replaced by the fallbacks.
func (t Trial) rates(fallbackAlpha, fallbackBeta float64) (float64, float64) {
	alpha, beta := t.Alpha, t.Beta
	if t.Realized != nil {
		alpha, beta = t.Realized.Alpha, t.Realized.Beta
	}
	if alpha < 0 {
		alpha = fallbackAlpha
	}
	if beta < 0 {
		beta = fallbackBeta
	}
	return alpha, beta
}

// MethodResult is one method's output for a trial.
type MethodResult struct {
	Result  *enrichment.Result
	Elapsed time.Duration
}

// Adapter turns the shared method descriptors into freshly configured
// calculations for each run. Descriptors and prototypes are never mutated.
type Adapter struct {
	methods     []models.Method
	prototypes  []enrichment.Calculation
	corrections []statistics.TestCorrection

	mcmcSteps     int
	maxBeta       float64
	fallbackAlpha float64
	fallbackBeta  float64
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithMCMCSteps sets the step budget of MGSA methods without their own.
func WithMCMCSteps(n int) AdapterOption {
	return func(a *Adapter) {
		a.mcmcSteps = n
	}
}

// WithMaxBeta sets the beta bound used by max-beta methods.
func WithMaxBeta(b float64) AdapterOption {
	return func(a *Adapter) {
		a.maxBeta = b
	}
}

// WithFallbackRates sets the rates fixed-parameter methods assume on
// valued runs.
func WithFallbackRates(alpha, beta float64) AdapterOption {
	return func(a *Adapter) {
		a.fallbackAlpha = alpha
		a.fallbackBeta = beta
	}
}

// NewAdapter resolves every method against the registry. Unknown
// calculations and corrections are reported here, before any run starts.
func NewAdapter(reg *enrichment.Registry, methods []models.Method, defaultCorrection statistics.TestCorrection, opts ...AdapterOption) (*Adapter, error) {
	if defaultCorrection == nil {
		defaultCorrection = statistics.None{}
	}

	a := &Adapter{
		methods:       methods,
		prototypes:    make([]enrichment.Calculation, len(methods)),
		corrections:   make([]statistics.TestCorrection, len(methods)),
		mcmcSteps:     enrichment.DefaultMCMCSteps,
		maxBeta:       defaultMaxBeta,
		fallbackAlpha: enrichment.DefaultAlpha,
		fallbackBeta:  enrichment.DefaultBeta,
	}
	for _, o := range opts {
		o(a)
	}

	for i, m := range methods {
		proto, err := reg.Lookup(m.Calculation)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", m.Abbrev, err)
		}
		a.prototypes[i] = proto

		a.corrections[i] = defaultCorrection
		if m.Correction != "" {
			c, err := statistics.CorrectionByName(m.Correction)
			if err != nil {
				return nil, fmt.Errorf("method %s: %w", m.Abbrev, err)
			}
			a.corrections[i] = c
		}
	}
	return a, nil
}

// Methods returns the descriptors in column order.
func (a *Adapter) Methods() []models.Method {
	return a.methods
}

// Abbrevs returns the method abbreviations in column order.
func (a *Adapter) Abbrevs() []string {
	return models.Abbrevs(a.methods)
}

// configure returns a private calculation for method i. Seeds for MGSA are
// drawn from rnd in method order.
func (a *Adapter) configure(i int, rnd *rand.Rand, t Trial) enrichment.Calculation {
	m := a.methods[i]

	switch proto := a.prototypes[i].(type) {
	case *enrichment.Probabilistic:
		p := proto.Clone().(*enrichment.Probabilistic)
		alpha, beta := t.rates(a.fallbackAlpha, a.fallbackBeta)
		p.SetDefaultP(1 - beta)
		p.SetDefaultQ(alpha)
		return p

	case *enrichment.MGSA:
		g := proto.Clone().(*enrichment.MGSA)
		g.Seed = rnd.Uint64()
		g.UsePrior = m.UsePrior
		g.PopulationAsReference = m.PopulationAsReference
		g.RandomStart = m.RandomStart
		g.IntegrateParams = m.IntegrateParams
		g.ValueAware = m.DealWithValues
		g.Steps = a.mcmcSteps
		if m.MCMCSteps > 0 {
			g.Steps = m.MCMCSteps
		}
		g.MaxBeta = 0
		g.ExpectedTerms = 0

		switch {
		case m.EM:
			g.Mode = enrichment.ModeEM
		case m.MCMC:
			g.Mode = enrichment.ModeMCMC
			if m.MaxBeta {
				g.MaxBeta = a.maxBeta
			}
			if m.CorrectExpectedTerms {
				g.ExpectedTerms = float64(t.TermCount)
			}
		default:
			g.Mode = enrichment.ModeFixed
			if m.DesiredTerms == 0 {
				fa, fb := a.fallbackAlpha, a.fallbackBeta
				if m.Alpha > 0 {
					fa = m.Alpha
				}
				if m.Beta > 0 {
					fb = m.Beta
				}
				g.Alpha, g.Beta = t.rates(fa, fb)
				g.ExpectedTerms = float64(t.TermCount)
			} else {
				g.Alpha = m.Alpha
				g.Beta = m.Beta
				g.ExpectedTerms = float64(m.DesiredTerms)
			}
		}
		return g

	case enrichment.Cloner:
		return proto.Clone()

	default:
		return proto
	}
}

// Run applies every method to the trial in column order. The first failing
// method aborts the trial.
func (a *Adapter) Run(ctx context.Context, rnd *rand.Rand, t Trial) ([]MethodResult, error) {
	out := make([]MethodResult, len(a.methods))
	for i, m := range a.methods {
		start := time.Now()

		calc := a.configure(i, rnd, t)
		in := t.Input
		if m.DealWithValues && t.Valued != nil {
			in.Study = t.Valued
		}
		in.Correction = a.corrections[i]

		res, err := calc.Calculate(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", m.Abbrev, err)
		}
		out[i] = MethodResult{Result: res, Elapsed: time.Since(start)}
	}
	return out, nil
}
