package matrix

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/attunehq/microbench/stats"
)

// ResourceConfig represents a single CPU/RAM configuration
type ResourceConfig struct {
	CPUs   int // Number of CPUs
	Memory int // RAM in GB
}

// String returns a human-readable representation of the config
func (r ResourceConfig) String() string {
	return fmt.Sprintf("%d CPU, %d GB", r.CPUs, r.Memory)
}

// DirName returns a directory-safe name for the config
func (r ResourceConfig) DirName() string {
	return fmt.Sprintf("%dcpu_%dgb", r.CPUs, r.Memory)
}

// Config holds the matrix benchmark configuration
type Config struct {
	Image     string           // Docker image name
	SuitePath string           // Suite file on the host
	OutputDir string           // Directory to save output files
	Name      string           // Matrix name for reports
	Configs   []ResourceConfig // CPU/RAM configurations to test
	Samples   int              // Overrides the suite's sample limits when > 0
	Timeout   time.Duration    // Overrides the suite's time limits when > 0
	Logger    *slog.Logger
}

// BenchResult is one benchmark's outcome inside a configuration
type BenchResult struct {
	Name  string
	Stats *stats.Record
	Error string
}

// ConfigResult holds the result for a single configuration
type ConfigResult struct {
	Config     ResourceConfig
	Success    bool
	Error      string
	Duration   time.Duration
	Benchmarks []BenchResult
}

// Bench returns the named benchmark's result in this configuration.
func (r ConfigResult) Bench(name string) (BenchResult, bool) {
	for _, b := range r.Benchmarks {
		if b.Name == name {
			return b, true
		}
	}
	return BenchResult{}, false
}

// MatrixResult holds the complete matrix benchmark results
type MatrixResult struct {
	Config  Config
	Results []ConfigResult
}

// BenchNames returns every benchmark name seen, in first-seen order.
func (m *MatrixResult) BenchNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, r := range m.Results {
		for _, b := range r.Benchmarks {
			if !seen[b.Name] {
				seen[b.Name] = true
				names = append(names, b.Name)
			}
		}
	}
	return names
}

// Failed reports whether any configuration or benchmark failed.
func (m *MatrixResult) Failed() bool {
	for _, r := range m.Results {
		if !r.Success {
			return true
		}
		for _, b := range r.Benchmarks {
			if b.Error != "" {
				return true
			}
		}
	}
	return false
}

// ParseConfigs parses a config string like "2:8,4:16,8:32" into ResourceConfig slice
func ParseConfigs(configStr string) ([]ResourceConfig, error) {
	if configStr == "" {
		return nil, fmt.Errorf("config string cannot be empty")
	}

	pairs := strings.Split(configStr, ",")
	configs := make([]ResourceConfig, 0, len(pairs))

	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		parts := strings.Split(pair, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config format '%s': expected 'CPU:RAM' (e.g., '2:8')", pair)
		}

		cpus, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || cpus <= 0 {
			return nil, fmt.Errorf("invalid CPU value '%s': must be a positive integer", parts[0])
		}

		memory, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || memory <= 0 {
			return nil, fmt.Errorf("invalid memory value '%s': must be a positive integer (GB)", parts[1])
		}

		configs = append(configs, ResourceConfig{
			CPUs:   cpus,
			Memory: memory,
		})
	}

	return configs, nil
}

// ParseIntList parses "2,4,8" into sorted, de-duplicated positive integers
func ParseIntList(list string) ([]int, error) {
	if strings.TrimSpace(list) == "" {
		return nil, fmt.Errorf("list cannot be empty")
	}

	seen := make(map[int]bool)
	var out []int
	for _, part := range strings.Split(list, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid value '%s': must be a positive integer", strings.TrimSpace(part))
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out, nil
}

// GenerateSweepCPUConfigs varies the CPU count with fixed RAM
func GenerateSweepCPUConfigs(cpus []int, memory int) []ResourceConfig {
	configs := make([]ResourceConfig, 0, len(cpus))
	for _, c := range cpus {
		configs = append(configs, ResourceConfig{CPUs: c, Memory: memory})
	}
	return configs
}

// GenerateSweepRAMConfigs varies RAM with a fixed CPU count
func GenerateSweepRAMConfigs(memory []int, cpus int) []ResourceConfig {
	configs := make([]ResourceConfig, 0, len(memory))
	for _, m := range memory {
		configs = append(configs, ResourceConfig{CPUs: cpus, Memory: m})
	}
	return configs
}

// GenerateGridConfigs returns every CPU/RAM combination, CPU-major
func GenerateGridConfigs(cpus, memory []int) []ResourceConfig {
	configs := make([]ResourceConfig, 0, len(cpus)*len(memory))
	for _, c := range cpus {
		for _, m := range memory {
			configs = append(configs, ResourceConfig{CPUs: c, Memory: m})
		}
	}
	return configs
}
