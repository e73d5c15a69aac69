// Package suite reads TOML files describing shell commands to benchmark.
//
//	[[bench]]
//	name = "git status"
//	command = "git status --short"
//	samples = 200
//	timeout = "5s"
package suite

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/attunehq/microbench/benchmark"
)

// Duration is a time.Duration read from a Go duration string like "5s".
type Duration time.Duration

func (d *Duration) UnmarshalText(input []byte) error {
	dur, err := time.ParseDuration(string(input))
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Entry is one benchmark in a suite. Zero Samples or Timeout keep the
// benchmark defaults.
type Entry struct {
	Name    string   `toml:"name"`
	Command string   `toml:"command"`
	Samples int      `toml:"samples"`
	Timeout Duration `toml:"timeout"`

	// Spacer inserts a separator line before this entry.
	Spacer bool `toml:"spacer"`
}

// Suite is an ordered list of benchmarks.
type Suite struct {
	Path    string  `toml:"-"`
	Benches []Entry `toml:"bench"`
}

// Load reads and validates the suite at path.
func Load(path string) (*Suite, error) {
	var s Suite
	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		return nil, err
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	return &s, nil
}

// Parse decodes and validates a suite from TOML text.
func Parse(data string) (*Suite, error) {
	var s Suite
	md, err := toml.Decode(data, &s)
	if err != nil {
		return nil, err
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// don't allow keys we haven't heard of
func checkUndecoded(md toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keyNames := make([]string, len(undecoded))
	for idx, key := range undecoded {
		keyNames[idx] = key.String()
	}
	return fmt.Errorf("undecoded keys: %s", strings.Join(keyNames, ", "))
}

// Validate trims names and commands and checks that every entry is usable.
func (s *Suite) Validate() error {
	if len(s.Benches) == 0 {
		return fmt.Errorf("suite has no [[bench]] entries")
	}

	seen := make(map[string]bool, len(s.Benches))
	for i := range s.Benches {
		e := &s.Benches[i]
		e.Name = strings.TrimSpace(e.Name)
		e.Command = strings.TrimSpace(e.Command)

		switch {
		case e.Name == "":
			return fmt.Errorf("bench %d: name is required", i+1)
		case seen[e.Name]:
			return fmt.Errorf("bench %d: duplicate name %q", i+1, e.Name)
		case e.Command == "":
			return fmt.Errorf("bench %q: command is required", e.Name)
		case e.Samples < 0:
			return fmt.Errorf("bench %q: samples must not be negative", e.Name)
		case e.Timeout < 0:
			return fmt.Errorf("bench %q: timeout must not be negative", e.Name)
		}
		seen[e.Name] = true
	}
	return nil
}

// Bench builds the benchmark for e without running it.
func (e Entry) Bench() *benchmark.Bench {
	b := benchmark.New(e.Name)
	if e.Samples > 0 {
		b.WithSamples(e.Samples)
	}
	if e.Timeout > 0 {
		b.WithTimeout(time.Duration(e.Timeout))
	}
	return b
}

// Run benchmarks every entry in order and returns the populated batch.
func (s *Suite) Run(logger *slog.Logger) *benchmark.Benches {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var out benchmark.Benches
	for _, e := range s.Benches {
		if e.Spacer && out.Len() > 0 {
			out.Push(benchmark.Spacer())
		}

		b := e.Bench()
		logger.Debug("running bench", "name", e.Name, "command", e.Command,
			"samples", b.Samples(), "timeout", b.Timeout())

		b.RunE(benchmark.Command(e.Command))
		if _, err := b.Result(); err != nil {
			logger.Warn("bench failed", "name", e.Name, "error", err)
		}
		out.Push(b)
	}
	return &out
}
