package stats

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func mustStats(t *testing.T, r Record) RunStats {
	t.Helper()
	s, err := r.Stats(MinSamples)
	require.NoError(t, err)
	return s
}

func TestCrunch(t *testing.T) {
	t.Run("too small", func(t *testing.T) {
		_, err := Crunch(repeat(0.5, MinSamples-1))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTooSmall))

		var small *TooSmallError
		require.True(t, errors.As(err, &small))
		assert.Equal(t, MinSamples-1, small.Count)
		assert.Contains(t, err.Error(), "(99)")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := CrunchWithFloor(nil, 0)
		var small *TooSmallError
		require.True(t, errors.As(err, &small))
		assert.Zero(t, small.Count)
	})

	t.Run("uniform", func(t *testing.T) {
		for _, n := range []int{MinSamples, MinSamples + 1, 2500} {
			s, err := Crunch(repeat(0.000_002_2, n))
			require.NoError(t, err)
			assert.Equal(t, 0.0, s.Deviation())
			assert.Equal(t, 0.000_002_2, s.Mean())
			valid, total := s.Samples()
			assert.Equal(t, n, valid)
			assert.Equal(t, n, total)
		}
	})

	t.Run("prunes", func(t *testing.T) {
		s, err := Crunch(spreadSet())
		require.NoError(t, err)
		assert.Equal(t, 201, s.Total())
		assert.Equal(t, 200, s.Valid())
		assert.InDelta(t, 100.5, s.Mean(), 1e-9)
		assert.InDelta(t, math.Sqrt((200*200-1)/12.0), s.Deviation(), 1e-9)
	})

	t.Run("too wild", func(t *testing.T) {
		_, err := CrunchWithFloor(spreadSet(), 201)
		assert.ErrorIs(t, err, ErrTooWild)
	})

	t.Run("nothing usable", func(t *testing.T) {
		_, err := Crunch(repeat(math.NaN(), 150))
		assert.ErrorIs(t, err, ErrTooWild)
	})

	t.Run("durations", func(t *testing.T) {
		d := make([]time.Duration, 120)
		for i := range d {
			d[i] = 3 * time.Millisecond
		}
		s, err := CrunchDurations(d)
		require.NoError(t, err)
		assert.Equal(t, 0.003, s.Mean())
	})
}

func TestRunStatsIsValid(t *testing.T) {
	r := Record{Total: 2500, Valid: 2496, Deviation: 0.000_000_123, Mean: 0.000_002_2}

	tests := []struct {
		name   string
		mutate func(*Record)
		want   bool
	}{
		{"baseline", func(*Record) {}, true},
		{"valid above total", func(r *Record) { r.Total = 100 }, false},
		{"valid equals total", func(r *Record) { r.Total, r.Valid = 100, 100 }, true},
		{"below floor", func(r *Record) { r.Valid = 30 }, false},
		{"zero valid", func(r *Record) { r.Valid = 0 }, false},
		{"nan deviation", func(r *Record) { r.Deviation = math.NaN() }, false},
		{"negative deviation", func(r *Record) { r.Deviation = -0.003 }, false},
		{"infinite deviation", func(r *Record) { r.Deviation = math.Inf(1) }, false},
		{"nan mean", func(r *Record) { r.Mean = math.NaN() }, false},
		{"negative mean", func(r *Record) { r.Mean = -0.003 }, false},
		{"zero mean", func(r *Record) { r.Mean = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := r
			tt.mutate(&rec)
			_, err := rec.Stats(MinSamples)
			if tt.want {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrOverflow)
			}
		})
	}
}

func TestRunStatsDeviance(t *testing.T) {
	current := mustStats(t, Record{Total: 100, Valid: 100, Deviation: 1, Mean: 100})
	prev := func(mean float64) RunStats {
		return mustStats(t, Record{Total: 100, Valid: 100, Deviation: 1, Mean: mean})
	}

	t.Run("slower before", func(t *testing.T) {
		change, ok := current.Deviance(prev(103))
		require.True(t, ok)
		assert.InDelta(t, (100.0-103.0)/103.0, change, 1e-12)
		assert.Negative(t, change)
	})

	t.Run("faster before", func(t *testing.T) {
		change, ok := current.Deviance(prev(97))
		require.True(t, ok)
		assert.InDelta(t, 3.0/97.0, change, 1e-12)
	})

	t.Run("inside envelope", func(t *testing.T) {
		for _, m := range []float64{98, 99.5, 100, 101, 102} {
			_, ok := current.Deviance(prev(m))
			assert.False(t, ok, "previous mean %v", m)
		}
	})

	t.Run("zero deviation equal means", func(t *testing.T) {
		flat := mustStats(t, Record{Total: 100, Valid: 100, Mean: 5})
		_, ok := flat.Deviance(flat)
		assert.False(t, ok)
	})

	t.Run("zero previous mean", func(t *testing.T) {
		_, ok := current.Deviance(prev(0))
		assert.False(t, ok)
	})
}

func TestRunStatsJSON(t *testing.T) {
	s := mustStats(t, Record{Total: 300, Valid: 222, Deviation: 0.000_400_123, Mean: 0.000_012_2})

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var rec Record
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Equal(t, s.Record(), rec)
	assert.JSONEq(t, `{"total":300,"valid":222,"deviation":0.000400123,"mean":0.0000122}`, string(raw))
}
