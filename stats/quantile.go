package stats

import (
	"math"
	"sort"
)

// Quantile returns the member of the set that best represents the phi
// quantile (0 <= phi <= 1).
//
// Timing data is usually duplicate-heavy, so a plain index lookup is
// unstable. Instead the value at rank round(phi*n) is used as a starting
// point, and neighbouring distinct values are tried in each direction for
// as long as they leave the below/above counts closer to the ideal split
// for that rank.
func (s *SampleSet) Quantile(phi float64) float64 {
	switch {
	case s.empty():
		return 0
	case phi <= 0:
		return s.Min()
	case phi >= 1:
		return s.Max()
	case s.unique == 1:
		return s.set[0]
	}

	n := len(s.set)
	target := int(math.Round(phi * float64(n)))
	if target == 0 {
		return s.Min()
	}
	if target >= n-1 {
		return s.Max()
	}

	wantBelow := target
	wantAbove := n - (target + 1)
	score := func(v float64) float64 {
		return quantileDiff(s.countBelow(v), s.countAbove(v), wantBelow, wantAbove)
	}

	best := s.set[target]
	bestScore := score(best)

	// Walk down.
	last := s.set[target]
	for {
		next, ok := s.stepDown(last)
		if !ok {
			break
		}
		nextScore := score(next)
		if nextScore >= bestScore {
			break
		}
		last, best, bestScore = next, next, nextScore
	}

	// Walk up, starting over from the original rank.
	last = s.set[target]
	for {
		next, ok := s.stepUp(last)
		if !ok {
			break
		}
		nextScore := score(next)
		if nextScore >= bestScore {
			break
		}
		last, best, bestScore = next, next, nextScore
	}

	return best
}

// IdealQuantile is like Quantile, but the result may fall between set
// members. When the data on one side of the raw quantile is markedly
// sparser than on the other, the estimate is pulled halfway towards that
// side.
func (s *SampleSet) IdealQuantile(phi float64) float64 {
	switch {
	case s.empty():
		return 0
	case phi <= 0:
		return s.Min()
	case phi >= 1:
		return s.Max()
	case s.unique == 1:
		return s.set[0]
	}

	epsilon := 1 / (2 * float64(len(s.set)))
	q := s.Quantile(phi)
	if q == 0 || phi <= 1.5*epsilon || phi >= math.FMA(epsilon, -1.5, 1) {
		return q
	}

	lo := s.Quantile(phi - epsilon)
	hi := s.Quantile(phi + epsilon)
	return smooth(lo, q, hi)
}

// smooth picks the idealized value given a quantile and its neighbours.
//
// A locally balanced neighbourhood yields 0, not q. Pruning relies on the
// exact branching here; see TestSmoothBalancedNeighbourhood.
func smooth(lo, q, hi float64) float64 {
	loDiff := q - lo
	hiDiff := hi - q

	switch {
	case loDiff >= hiDiff*2:
		return (lo + q) / 2
	case hiDiff >= loDiff*2:
		return (hi + q) / 2
	default:
		return 0
	}
}

// countBelow returns the number of samples strictly less than v.
func (s *SampleSet) countBelow(v float64) int {
	return sort.SearchFloat64s(s.set, v)
}

// countAbove returns the number of samples strictly greater than v.
func (s *SampleSet) countAbove(v float64) int {
	return len(s.set) - s.upperBound(v)
}

// upperBound returns the index of the first sample greater than v.
func (s *SampleSet) upperBound(v float64) int {
	return sort.Search(len(s.set), func(i int) bool { return s.set[i] > v })
}

// stepDown returns the largest sample smaller than v, where v is a member
// of the set.
func (s *SampleSet) stepDown(v float64) (float64, bool) {
	pos := sort.SearchFloat64s(s.set, v)
	if pos == len(s.set) || s.set[pos] != v || pos == 0 {
		return 0, false
	}
	return s.set[pos-1], true
}

// stepUp returns the smallest sample larger than v, where v is a member of
// the set.
func (s *SampleSet) stepUp(v float64) (float64, bool) {
	pos := s.upperBound(v)
	if pos == 0 || s.set[pos-1] != v || pos == len(s.set) {
		return 0, false
	}
	return s.set[pos], true
}

// quantileDiff scores how far the observed below/above counts are from the
// reference counts. 0 is a perfect split.
func quantileDiff(below, above, wantBelow, wantAbove int) float64 {
	return float64(absDiff(below, wantBelow)+absDiff(above, wantAbove)) / 2
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
