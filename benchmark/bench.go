// Package benchmark times callbacks, reduces their samples to stats and
// reports them against the previous run.
package benchmark

import (
	"runtime"
	"strings"
	"time"

	"github.com/attunehq/microbench/stats"
)

const (
	// DefaultSamples is the sample limit for a new Bench.
	DefaultSamples = 2500

	// DefaultTimeout is the time limit for a new Bench.
	DefaultTimeout = 10 * time.Second

	// MinTimeout is the smallest time limit WithTimeout accepts.
	MinTimeout = 500 * time.Millisecond
)

// Bench is a single named benchmark. A Bench collects samples until it
// reaches its sample limit or its time limit, whichever comes first.
type Bench struct {
	name    string
	samples int
	timeout time.Duration

	ran     bool
	started time.Time
	stats   stats.RunStats
	err     error
}

// New returns a Bench with the default limits. Names serve as history keys
// and should be unique. New panics if name is blank.
func New(name string) *Bench {
	name = strings.TrimSpace(name)
	if name == "" {
		panic("benchmark: name is required")
	}
	return &Bench{
		name:    name,
		samples: DefaultSamples,
		timeout: DefaultTimeout,
	}
}

// Spacer returns a placeholder that renders as a separator line.
func Spacer() *Bench {
	return &Bench{samples: DefaultSamples, timeout: DefaultTimeout}
}

// Name returns the benchmark name, or "" for a spacer.
func (b *Bench) Name() string { return b.name }

// IsSpacer reports whether b is a separator.
func (b *Bench) IsSpacer() bool { return b.name == "" }

// Samples returns the sample limit.
func (b *Bench) Samples() int { return b.samples }

// Timeout returns the time limit.
func (b *Bench) Timeout() time.Duration { return b.timeout }

// WithSamples sets the sample limit, raised to stats.MinSamples if lower.
// The floor applies after pruning too, so aim well above it.
func (b *Bench) WithSamples(n int) *Bench {
	if n < stats.MinSamples {
		n = stats.MinSamples
	}
	b.samples = n
	return b
}

// WithTimeout sets the time limit, raised to MinTimeout if lower.
func (b *Bench) WithTimeout(d time.Duration) *Bench {
	if d < MinTimeout {
		d = MinTimeout
	}
	b.timeout = d
	return b
}

// Result returns the crunched stats, or the error that prevented them.
// A Bench that never ran reports ErrNoRun.
func (b *Bench) Result() (stats.RunStats, error) {
	if !b.ran {
		return stats.RunStats{}, ErrNoRun
	}
	return b.stats, b.err
}

// Run times fn.
func (b *Bench) Run(fn func()) *Bench {
	return b.run(func() (time.Duration, error) {
		start := time.Now()
		fn()
		return time.Since(start), nil
	})
}

// RunE times fn. The first error stops collection and becomes the result.
func (b *Bench) RunE(fn func() error) *Bench {
	return b.run(func() (time.Duration, error) {
		start := time.Now()
		err := fn()
		return time.Since(start), err
	})
}

// RunSeeded times fn called with a copy of seed.
func RunSeeded[T any](b *Bench, seed T, fn func(T)) *Bench {
	return b.run(func() (time.Duration, error) {
		v := seed
		start := time.Now()
		fn(v)
		return time.Since(start), nil
	})
}

// RunSeededWith times fn called with a fresh value from seed. Producing the
// seed is not timed.
func RunSeededWith[T any](b *Bench, seed func() T, fn func(T)) *Bench {
	return b.run(func() (time.Duration, error) {
		v := seed()
		start := time.Now()
		fn(v)
		return time.Since(start), nil
	})
}

// Keep stops the compiler from discarding v as unused.
func Keep[T any](v T) {
	runtime.KeepAlive(v)
}
