package enrichment

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/combin"
)

// hypergeometricUpperTail returns P(X >= k) for X the number of marked
// items in a sample of n drawn without replacement from N items of which K
// are marked.
func hypergeometricUpperTail(N, K, n, k int) float64 {
	if k <= 0 {
		return 1
	}
	if n > N || K > N {
		return 1
	}
	if N <= 0 || K <= 0 || n <= 0 || k > K || k > n {
		return 0
	}

	lo := max(k, n-(N-K))
	hi := min(n, K)
	if lo > hi {
		return 0
	}

	logTotal := combin.LogGeneralizedBinomial(float64(N), float64(n))
	terms := make([]float64, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		terms = append(terms,
			combin.LogGeneralizedBinomial(float64(K), float64(i))+
				combin.LogGeneralizedBinomial(float64(N-K), float64(n-i))-
				logTotal)
	}
	return math.Min(1, math.Exp(floats.LogSumExp(terms)))
}

// adjust fills PAdjusted of every result using c.
func adjust(terms []TermResult, c interface{ Adjust([]float64) []float64 }) {
	p := make([]float64, len(terms))
	for i, t := range terms {
		p[i] = t.P
	}
	for i, v := range c.Adjust(p) {
		terms[i].PAdjusted = v
	}
}
