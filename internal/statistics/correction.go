package statistics

import (
	"fmt"
	"slices"
	"strings"
)

// TestCorrection adjusts raw p-values for multiple testing. Adjust returns
// a new slice in the order of the input.
type TestCorrection interface {
	Name() string
	Adjust(p []float64) []float64
}

// Correction names accepted by CorrectionByName.
const (
	CorrectionNone              = "None"
	CorrectionBonferroni        = "Bonferroni"
	CorrectionBonferroniHolm    = "Bonferroni-Holm"
	CorrectionBenjaminiHochberg = "Benjamini-Hochberg"
)

// CorrectionNames lists the supported corrections.
func CorrectionNames() []string {
	return []string{CorrectionNone, CorrectionBonferroni, CorrectionBonferroniHolm, CorrectionBenjaminiHochberg}
}

// CorrectionByName resolves a correction case-insensitively. The empty name
// means None.
func CorrectionByName(name string) (TestCorrection, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return None{}, nil
	case "bonferroni":
		return Bonferroni{}, nil
	case "bonferroni-holm", "holm":
		return BonferroniHolm{}, nil
	case "benjamini-hochberg", "bh", "fdr":
		return BenjaminiHochberg{}, nil
	default:
		return nil, fmt.Errorf("unknown test correction %q (supported: %s)", name, strings.Join(CorrectionNames(), ", "))
	}
}

// None leaves p-values unchanged.
type None struct{}

func (None) Name() string { return CorrectionNone }

func (None) Adjust(p []float64) []float64 {
	return slices.Clone(p)
}

type Bonferroni struct{}

func (Bonferroni) Name() string { return CorrectionBonferroni }

func (Bonferroni) Adjust(p []float64) []float64 {
	m := float64(len(p))
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = min(1, v*m)
	}
	return out
}

// BonferroniHolm is the step-down variant of Bonferroni.
type BonferroniHolm struct{}

func (BonferroniHolm) Name() string { return CorrectionBonferroniHolm }

func (BonferroniHolm) Adjust(p []float64) []float64 {
	m := len(p)
	order := ascending(p)
	out := make([]float64, m)
	running := 0.0
	for rank, i := range order {
		adj := min(1, float64(m-rank)*p[i])
		running = max(running, adj)
		out[i] = running
	}
	return out
}

// BenjaminiHochberg controls the false discovery rate.
type BenjaminiHochberg struct{}

func (BenjaminiHochberg) Name() string { return CorrectionBenjaminiHochberg }

func (BenjaminiHochberg) Adjust(p []float64) []float64 {
	m := len(p)
	order := ascending(p)
	out := make([]float64, m)
	running := 1.0
	for rank := m - 1; rank >= 0; rank-- {
		i := order[rank]
		adj := min(1, p[i]*float64(m)/float64(rank+1))
		running = min(running, adj)
		out[i] = running
	}
	return out
}

// ascending returns the indexes of p sorted by value, ties by index.
func ascending(p []float64) []int {
	idx := make([]int, len(p))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		switch {
		case p[a] < p[b]:
			return -1
		case p[a] > p[b]:
			return 1
		}
		return 0
	})
	return idx
}
