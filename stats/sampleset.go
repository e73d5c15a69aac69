// Package stats reduces raw timing samples to a trustworthy mean and
// deviation. Samples are sorted once, noisy extremes are fenced off using
// smoothed 5th/95th quantiles, and the survivors are summarised as RunStats.
package stats

import (
	"math"
	"sort"
	"time"
)

// minNormal is the smallest positive normal float64.
const minNormal = 0x1p-1022

// SampleSet holds sorted timing observations along with a few precomputed
// totals. It is a scratchpad: built once, pruned once, then thrown away.
type SampleSet struct {
	set    []float64
	unique int
	total  float64
}

// NewSampleSet builds a SampleSet from raw values (seconds). Negative,
// NaN, infinite and subnormal values are dropped; zero is kept.
func NewSampleSet(raw []float64) *SampleSet {
	set := make([]float64, 0, len(raw))
	for _, v := range raw {
		if keep(v) {
			// Normalise -0 so it sorts and compares like 0.
			set = append(set, v+0)
		}
	}

	sort.Float64s(set)

	s := &SampleSet{set: set}
	s.recount()
	return s
}

// FromDurations builds a SampleSet from elapsed durations.
func FromDurations(src []time.Duration) *SampleSet {
	raw := make([]float64, len(src))
	for i, d := range src {
		raw[i] = d.Seconds()
	}
	return NewSampleSet(raw)
}

func keep(v float64) bool {
	if v == 0 {
		return true
	}
	return v >= minNormal && !math.IsInf(v, 1)
}

// recount refreshes the unique count and sum after the set changed.
func (s *SampleSet) recount() {
	s.unique = countUnique(s.set)
	s.total = 0
	for _, v := range s.set {
		s.total += v
	}
}

// Len returns the number of samples in the set.
func (s *SampleSet) Len() int { return len(s.set) }

// Unique returns the number of distinct values in the set.
func (s *SampleSet) Unique() int { return s.unique }

// Sum returns the total of all samples.
func (s *SampleSet) Sum() float64 { return s.total }

// Values returns a copy of the sorted samples.
func (s *SampleSet) Values() []float64 {
	out := make([]float64, len(s.set))
	copy(out, s.set)
	return out
}

func (s *SampleSet) empty() bool { return len(s.set) == 0 }

// Min returns the smallest sample, or 0 if the set is empty.
func (s *SampleSet) Min() float64 {
	if s.empty() {
		return 0
	}
	return s.set[0]
}

// Max returns the largest sample, or 0 if the set is empty.
func (s *SampleSet) Max() float64 {
	if s.empty() {
		return 0
	}
	return s.set[len(s.set)-1]
}

// Mean returns the arithmetic mean.
//
// When every sample is identical the value itself is returned, so that
// sum/count rounding can never make it disagree with the samples.
func (s *SampleSet) Mean() float64 {
	switch {
	case s.empty():
		return 0
	case s.unique == 1:
		return s.set[0]
	default:
		return s.total / float64(len(s.set))
	}
}

// Deviation returns the population standard deviation (divides by n, not
// n-1).
func (s *SampleSet) Deviation() float64 {
	if s.empty() || s.unique == 1 {
		return 0
	}

	mean := s.Mean()
	var sum float64
	for _, v := range s.set {
		d := mean - v
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(s.set)))
}

// countUnique counts runs of equal values in a sorted slice.
func countUnique(sorted []float64) int {
	if len(sorted) == 0 {
		return 0
	}
	n := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			n++
		}
	}
	return n
}
