package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrUnknownMethod = errors.New("unknown method")

// Method describes one benchmarked configuration of an enrichment
// calculation. Methods are shared by all runs and never modified after
// the catalog is built.
type Method struct {
	// Calculation is the registered name of the calculation to run.
	Calculation string `yaml:"calculation" mapstructure:"calculation"`
	// Abbrev names the method's column in the result files.
	Abbrev string `yaml:"abbrev" mapstructure:"abbrev"`

	// Static noise rates and desired term count. A zero DesiredTerms means
	// the fixed-parameter variant takes the run's realized rates instead.
	Alpha        float64 `yaml:"alpha,omitempty" mapstructure:"alpha"`
	Beta         float64 `yaml:"beta,omitempty" mapstructure:"beta"`
	DesiredTerms int     `yaml:"desired_terms,omitempty" mapstructure:"desired_terms"`

	UsePrior              bool `yaml:"use_prior" mapstructure:"use_prior"`
	PopulationAsReference bool `yaml:"population_as_reference,omitempty" mapstructure:"population_as_reference"`
	RandomStart           bool `yaml:"random_start,omitempty" mapstructure:"random_start"`
	IntegrateParams       bool `yaml:"integrate_params,omitempty" mapstructure:"integrate_params"`

	EM                   bool `yaml:"em,omitempty" mapstructure:"em"`
	MCMC                 bool `yaml:"mcmc,omitempty" mapstructure:"mcmc"`
	MaxBeta              bool `yaml:"max_beta,omitempty" mapstructure:"max_beta"`
	CorrectExpectedTerms bool `yaml:"correct_expected_terms,omitempty" mapstructure:"correct_expected_terms"`

	// DealWithValues hands the valued study set to the method when the run
	// has one.
	DealWithValues bool `yaml:"deal_with_values,omitempty" mapstructure:"deal_with_values"`

	// Correction overrides the harness test correction when set.
	Correction string `yaml:"correction,omitempty" mapstructure:"correction"`

	// MCMCSteps overrides the harness step budget when positive.
	MCMCSteps int `yaml:"mcmc_steps,omitempty" mapstructure:"mcmc_steps"`
}

// Validate checks the descriptor is usable.
func (m Method) Validate() error {
	if m.Abbrev == "" {
		return errors.New("method abbreviation must not be empty")
	}
	if strings.ContainsAny(m.Abbrev, " \t\n") {
		return fmt.Errorf("method abbreviation %q must not contain whitespace", m.Abbrev)
	}
	if m.Calculation == "" {
		return fmt.Errorf("method %s: calculation must not be empty", m.Abbrev)
	}
	if m.EM && m.MCMC {
		return fmt.Errorf("method %s: em and mcmc are mutually exclusive", m.Abbrev)
	}
	if m.Alpha < 0 || m.Alpha >= 1 || m.Beta < 0 || m.Beta >= 1 {
		return fmt.Errorf("method %s: alpha and beta must be in [0,1)", m.Abbrev)
	}
	if m.DesiredTerms < 0 || m.MCMCSteps < 0 {
		return fmt.Errorf("method %s: desired_terms and mcmc_steps must not be negative", m.Abbrev)
	}
	return nil
}

const (
	calcMGSA          = "MGSA"
	calcTermForTerm   = "Term-For-Term"
	calcParentChildU  = "Parent-Child-Union"
	calcParentChildI  = "Parent-Child-Intersection"
	calcProbabilistic = "Probabilistic"
)

// DefaultMethods are benchmarked when no methods are selected.
var DefaultMethods = []string{"b2g.mcmc.pop", "b2g.values.pop"}

// Catalog returns the builtin methods sorted by abbreviation.
func Catalog() []Method {
	mgsa := func(abbrev string, f func(*Method)) Method {
		m := Method{Calculation: calcMGSA, Abbrev: abbrev, UsePrior: true}
		if f != nil {
			f(&m)
		}
		return m
	}

	methods := []Method{
		mgsa("b2g.ideal", nil),
		mgsa("b2g.ideal.pop", func(m *Method) { m.PopulationAsReference = true }),
		mgsa("b2g.ideal.pop.random", func(m *Method) {
			m.PopulationAsReference = true
			m.RandomStart = true
		}),
		{Calculation: calcTermForTerm, Abbrev: "tft", UsePrior: true},
		{Calculation: calcTermForTerm, Abbrev: "tft.bf", UsePrior: true, Correction: "Bonferroni"},
		{Calculation: calcParentChildU, Abbrev: "pcu", UsePrior: true},
		{Calculation: calcParentChildI, Abbrev: "pci", UsePrior: true},
		{Calculation: calcProbabilistic, Abbrev: "prob", UsePrior: true},
		mgsa("b2g.em.pop", func(m *Method) {
			m.PopulationAsReference = true
			m.EM = true
		}),
		mgsa("b2g.mcmc", func(m *Method) { m.MCMC = true }),
		mgsa("b2g.mcmc.pop", func(m *Method) {
			m.PopulationAsReference = true
			m.MCMC = true
		}),
		mgsa("b2g.mcmc.cexpt", func(m *Method) {
			m.MCMC = true
			m.CorrectExpectedTerms = true
		}),
		mgsa("b2g.ideal.nop", func(m *Method) { m.UsePrior = false }),
		mgsa("b2g.mcmc.nop", func(m *Method) {
			m.UsePrior = false
			m.MCMC = true
		}),
		mgsa("b2g.mcmc.pop.nop", func(m *Method) {
			m.UsePrior = false
			m.MCMC = true
			m.PopulationAsReference = true
		}),
		mgsa("b2g.mcmc.pop.maxbeta", func(m *Method) {
			m.PopulationAsReference = true
			m.MCMC = true
			m.MaxBeta = true
		}),
		mgsa("b2g.ideal.pop.nop", func(m *Method) {
			m.UsePrior = false
			m.PopulationAsReference = true
		}),
		mgsa("b2g.values.pop", func(m *Method) {
			m.PopulationAsReference = true
			m.MCMC = true
			m.DealWithValues = true
		}),
	}

	slices.SortFunc(methods, func(a, b Method) int { return strings.Compare(a.Abbrev, b.Abbrev) })
	return methods
}

// Select resolves abbreviations against available, keeping the requested
// order. An empty request selects DefaultMethods.
func Select(available []Method, abbrevs []string) ([]Method, error) {
	if len(abbrevs) == 0 {
		abbrevs = DefaultMethods
	}

	byAbbrev := make(map[string]Method, len(available))
	for _, m := range available {
		byAbbrev[m.Abbrev] = m
	}

	selected := make([]Method, 0, len(abbrevs))
	seen := map[string]bool{}
	for _, a := range abbrevs {
		m, ok := byAbbrev[a]
		if !ok {
			return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownMethod, a, strings.Join(Abbrevs(available), ", "))
		}
		if seen[a] {
			return nil, fmt.Errorf("method %q selected twice", a)
		}
		seen[a] = true
		selected = append(selected, m)
	}
	return selected, nil
}

// Abbrevs returns the abbreviations of methods in order.
func Abbrevs(methods []Method) []string {
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = m.Abbrev
	}
	return out
}

// Merge returns base extended by extra. Methods in extra replace base
// methods with the same abbreviation. The result is sorted by abbreviation.
func Merge(base, extra []Method) []Method {
	out := slices.Clone(base)
	for _, m := range extra {
		if i := slices.IndexFunc(out, func(b Method) bool { return b.Abbrev == m.Abbrev }); i >= 0 {
			out[i] = m
			continue
		}
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b Method) int { return strings.Compare(a.Abbrev, b.Abbrev) })
	return out
}
