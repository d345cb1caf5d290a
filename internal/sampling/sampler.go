// Package sampling draws ordered k-subsets of a population.
package sampling

import (
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat/combin"
	"gonum.org/v1/gonum/stat/sampleuv"
)

const streamMix = 0x9e3779b97f4a7c15

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^streamMix))
}

// KSubsetSampler draws subsets of a fixed population. Subsets preserve the
// population order of their members. It is not safe for concurrent use.
type KSubsetSampler[T any] struct {
	population []T
	rnd        *rand.Rand
}

func NewKSubsetSampler[T any](population []T, rnd *rand.Rand) *KSubsetSampler[T] {
	return &KSubsetSampler[T]{population: population, rnd: rnd}
}

// SampleOrdered draws one subset of k distinct elements. It returns nil if
// k exceeds the population size.
func (s *KSubsetSampler[T]) SampleOrdered(k int) []T {
	n := len(s.population)
	if k > n || k < 0 {
		return nil
	}
	if k == 0 {
		return []T{}
	}
	return s.pick(s.drawIndexes(k))
}

// SampleManyOrderedWithoutReplacement draws count pairwise distinct subsets
// of k elements. When count is at least the number of possible subsets all
// of them are returned in lexicographic order.
func (s *KSubsetSampler[T]) SampleManyOrderedWithoutReplacement(k, count int) [][]T {
	n := len(s.population)
	if k > n || k < 0 || count <= 0 {
		return nil
	}

	if fitsAll(n, k, count) {
		all := combin.Combinations(n, k)
		out := make([][]T, len(all))
		for i, idx := range all {
			out[i] = s.pick(idx)
		}
		return out
	}

	seen := make(map[string]struct{}, count)
	out := make([][]T, 0, count)
	for len(out) < count {
		idx := s.drawIndexes(k)
		key := indexKey(idx)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s.pick(idx))
	}
	return out
}

// fitsAll reports whether C(n,k) <= count without overflowing.
func fitsAll(n, k, count int) bool {
	if k == 0 || k == n {
		return true
	}
	if combin.LogGeneralizedBinomial(float64(n), float64(k)) > math.Log(float64(count))+1e-9 {
		return false
	}
	return combin.Binomial(n, k) <= count
}

func (s *KSubsetSampler[T]) drawIndexes(k int) []int {
	idx := make([]int, k)
	sampleuv.WithoutReplacement(idx, len(s.population), s.rnd)
	slices.Sort(idx)
	return idx
}

func (s *KSubsetSampler[T]) pick(idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = s.population[j]
	}
	return out
}

func indexKey(idx []int) string {
	var sb strings.Builder
	for _, i := range idx {
		sb.WriteString(strconv.Itoa(i))
		sb.WriteByte(',')
	}
	return sb.String()
}
