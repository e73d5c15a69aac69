package stats

import (
	"math"
	"testing"
	"time"

	moremath "github.com/aclements/go-moremath/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// basicSet is a small duplicate-heavy set that prunes to itself.
func basicSet() []float64 {
	return []float64{
		1.0, 1.0, 1.0,
		1.8, 1.8,
		1.9, 1.9, 1.9, 1.9,
		2.0, 2.0, 2.0, 2.0,
		2.1, 2.1,
		2.2, 2.2,
		2.3, 2.3,
		2.4, 2.4,
		3.0, 3.0, 3.0,
	}
}

// populationStdDev derives the n-denominator deviation from moremath's
// sample variance.
func populationStdDev(xs []float64) float64 {
	n := float64(len(xs))
	return math.Sqrt(moremath.Variance(xs) * (n - 1) / n)
}

func TestNewSampleSet(t *testing.T) {
	t.Run("filters invalid values", func(t *testing.T) {
		set := NewSampleSet([]float64{
			3, -1, math.NaN(), math.Inf(1), 0, 1, 2, math.Inf(-1), 5e-324, math.Copysign(0, -1),
		})

		assert.Equal(t, []float64{0, 0, 1, 2, 3}, set.Values())
		assert.Equal(t, 5, set.Len())
		assert.Equal(t, 4, set.Unique())
		assert.Equal(t, 6.0, set.Sum())
		assert.False(t, math.Signbit(set.Min()), "negative zero should be normalised")
	})

	t.Run("sorts", func(t *testing.T) {
		set := NewSampleSet([]float64{5, 1, 4, 2, 3})
		assert.Equal(t, []float64{1, 2, 3, 4, 5}, set.Values())
	})

	t.Run("does not alias input", func(t *testing.T) {
		raw := []float64{3, 2, 1}
		NewSampleSet(raw)
		assert.Equal(t, []float64{3, 2, 1}, raw)
	})

	t.Run("from durations", func(t *testing.T) {
		set := FromDurations([]time.Duration{2 * time.Second, 500 * time.Millisecond})
		assert.Equal(t, []float64{0.5, 2}, set.Values())
	})
}

func TestSampleSetEmpty(t *testing.T) {
	set := NewSampleSet(nil)

	assert.Zero(t, set.Len())
	assert.Zero(t, set.Unique())
	assert.Zero(t, set.Min())
	assert.Zero(t, set.Max())
	assert.Zero(t, set.Mean())
	assert.Zero(t, set.Deviation())
	assert.Zero(t, set.Quantile(0.5))
	assert.Zero(t, set.IdealQuantile(0.5))
}

func TestSampleSetIdentical(t *testing.T) {
	for _, v := range []float64{0, 0.1, 0.000_002_2, 1.0 / 3.0, 12345.678} {
		raw := make([]float64, 137)
		for i := range raw {
			raw[i] = v
		}
		set := NewSampleSet(raw)

		assert.Equal(t, 1, set.Unique())
		assert.Equal(t, v, set.Mean(), "mean of identical %v", v)
		assert.Equal(t, 0.0, set.Deviation(), "deviation of identical %v", v)
		assert.Equal(t, v, set.Quantile(0.3))
		assert.Equal(t, v, set.IdealQuantile(0.7))
	}
}

func TestSampleSetReference(t *testing.T) {
	raw := basicSet()
	set := NewSampleSet(raw)

	require.Equal(t, 24, set.Len())
	assert.Equal(t, 9, set.Unique())
	assert.Equal(t, 1.0, set.Min())
	assert.Equal(t, 3.0, set.Max())
	assert.InDelta(t, moremath.Mean(raw), set.Mean(), 1e-12)
	assert.InDelta(t, populationStdDev(raw), set.Deviation(), 1e-12)
	assert.Equal(t, 2.0, set.Quantile(0.5))
	assert.Equal(t, 1.0, set.IdealQuantile(0.05))
	assert.Equal(t, 3.0, set.IdealQuantile(0.95))

	// Nothing here is an outlier.
	mean := set.Mean()
	set.PruneOutliers()
	assert.Equal(t, 24, set.Len())
	assert.Equal(t, mean, set.Mean())
}
