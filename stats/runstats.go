package stats

import (
	"encoding/json"
	"math"
	"time"
)

// MinSamples is the default floor for both collected and retained samples.
const MinSamples = 100

// RunStats is the finalized summary of one benchmark run. Values are only
// produced by Crunch or Record.Stats, so a RunStats always satisfies
// IsValid for the floor it was built with.
type RunStats struct {
	total     int
	valid     int
	deviation float64
	mean      float64
}

// Crunch reduces raw samples (seconds) to RunStats using the default floor.
func Crunch(samples []float64) (RunStats, error) {
	return CrunchWithFloor(samples, MinSamples)
}

// CrunchDurations is Crunch for elapsed durations.
func CrunchDurations(samples []time.Duration) (RunStats, error) {
	raw := make([]float64, len(samples))
	for i, d := range samples {
		raw[i] = d.Seconds()
	}
	return CrunchWithFloor(raw, MinSamples)
}

// CrunchWithFloor reduces raw samples to RunStats, requiring at least floor
// samples both before and after outlier pruning.
func CrunchWithFloor(samples []float64, floor int) (RunStats, error) {
	total := len(samples)
	if total == 0 || total < floor {
		return RunStats{}, &TooSmallError{Count: total}
	}

	set := NewSampleSet(samples)
	set.PruneOutliers()

	valid := set.Len()
	if valid == 0 || valid < floor {
		return RunStats{}, ErrTooWild
	}

	out := RunStats{
		total:     total,
		valid:     valid,
		deviation: set.Deviation(),
		mean:      set.Mean(),
	}
	if !out.IsValid(floor) {
		return RunStats{}, ErrOverflow
	}
	return out, nil
}

// Total returns the number of samples collected.
func (s RunStats) Total() int { return s.total }

// Valid returns the number of samples left after pruning.
func (s RunStats) Valid() int { return s.valid }

// Mean returns the mean of the pruned samples, in seconds.
func (s RunStats) Mean() float64 { return s.mean }

// Deviation returns the population standard deviation of the pruned
// samples, in seconds.
func (s RunStats) Deviation() float64 { return s.deviation }

// Samples returns the valid and total sample counts.
func (s RunStats) Samples() (valid, total int) { return s.valid, s.total }

// IsValid reports whether the stats satisfy every invariant for the given
// sample floor.
func (s RunStats) IsValid(floor int) bool {
	return s.valid > 0 &&
		floor <= s.valid &&
		s.valid <= s.total &&
		isFinite(s.deviation) && s.deviation >= 0 &&
		isFinite(s.mean) && s.mean >= 0
}

// Deviance compares a previous run against this one. If the previous mean
// falls outside this run's mean ± 2 standard deviations, the signed relative
// change (mean - previous) / previous is returned with ok set; negative
// means this run is faster.
func (s RunStats) Deviance(previous RunStats) (change float64, ok bool) {
	lo := math.FMA(s.deviation, -2, s.mean)
	hi := math.FMA(s.deviation, 2, s.mean)

	if previous.mean >= lo && previous.mean <= hi {
		return 0, false
	}
	if s.mean == previous.mean || previous.mean <= 0 {
		return 0, false
	}
	return (s.mean - previous.mean) / previous.mean, true
}

// Record returns the plain four-field form of the stats.
func (s RunStats) Record() Record {
	return Record{
		Total:     s.total,
		Valid:     s.valid,
		Deviation: s.deviation,
		Mean:      s.mean,
	}
}

// MarshalJSON encodes the stats as their Record.
func (s RunStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Record())
}

// Record is the persisted shape of RunStats.
type Record struct {
	Total     int     `json:"total"`
	Valid     int     `json:"valid"`
	Deviation float64 `json:"deviation"`
	Mean      float64 `json:"mean"`
}

// Stats validates the record against floor and converts it to RunStats.
func (r Record) Stats(floor int) (RunStats, error) {
	out := RunStats{
		total:     r.Total,
		valid:     r.Valid,
		deviation: r.Deviation,
		mean:      r.Mean,
	}
	if !out.IsValid(floor) {
		return RunStats{}, ErrOverflow
	}
	return out, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
