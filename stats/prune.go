package stats

import "math"

// outlierFactor is the IQR multiplier used to build the fences.
const outlierFactor = 1.5

// Fences returns the inclusive bounds PruneOutliers applies: 1.5*IQR beyond
// the idealized 5th and 95th quantiles. ok is false when the set has fewer
// than two distinct values or no deviation, in which case nothing is pruned.
func (s *SampleSet) Fences() (lo, hi float64, ok bool) {
	if s.unique < 2 || s.Deviation() <= 0 {
		return 0, 0, false
	}

	q1 := s.IdealQuantile(0.05)
	q3 := s.IdealQuantile(0.95)
	iqr := q3 - q1

	return math.FMA(iqr, -outlierFactor, q1), math.FMA(iqr, outlierFactor, q3), true
}

// PruneOutliers drops every sample outside Fences.
func (s *SampleSet) PruneOutliers() {
	lo, hi, ok := s.Fences()
	if !ok {
		return
	}

	// Filtering a sorted slice keeps it sorted.
	kept := s.set[:0]
	for _, v := range s.set {
		if lo <= v && v <= hi {
			kept = append(kept, v)
		}
	}

	if len(kept) != s.Len() {
		s.set = kept
		s.recount()
	}
}
