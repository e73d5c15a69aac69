package benchmark

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attunehq/microbench/stats"
)

func sampleReport(t *testing.T) *Report {
	t.Helper()
	fast, err := stats.Record{Total: 2500, Valid: 2431, Deviation: 1e-8, Mean: 2.2e-7}.Stats(stats.MinSamples)
	require.NoError(t, err)
	slow, err := stats.Record{Total: 300, Valid: 298, Deviation: 0.001, Mean: 0.0123}.Stats(stats.MinSamples)
	require.NoError(t, err)

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Report{
		ID:       uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e"),
		Started:  started,
		Finished: started.Add(1500 * time.Millisecond),
		Rows: []Row{
			{Name: "sort::ints(100)", Stats: fast, Change: -0.031, Changed: true},
			{Spacer: true},
			{Name: "git status", Stats: slow},
			{Name: "missing", Err: ErrNoRun},
		},
	}
}

func TestRenderPlain(t *testing.T) {
	out := Render(sampleReport(t), false)
	assert.NotContains(t, out, "\x1b[")

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 6)

	assert.Contains(t, lines[0], "Method")
	assert.Contains(t, lines[2], "220.00 ns")
	assert.Contains(t, lines[2], "-3.10%")
	assert.Contains(t, lines[2], "2,431/2,500")
	assert.Contains(t, lines[4], "12.30 ms")
	assert.Contains(t, lines[4], noChange)
	assert.Contains(t, lines[5], ErrNoRun.Error())

	width := lipgloss.Width(lines[0])
	for _, i := range []int{1, 2, 3, 4} {
		assert.Equal(t, width, lipgloss.Width(lines[i]), "line %d", i)
	}
	assert.Equal(t, strings.Repeat("-", width), lines[1])
}

func TestRenderColor(t *testing.T) {
	out := Render(sampleReport(t), true)
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "Method")
}

func TestColorEnabledNonTerminal(t *testing.T) {
	var sb strings.Builder
	assert.False(t, ColorEnabled(&sb))

	t.Setenv("NO_COLOR", "1")
	assert.False(t, ColorEnabled(os.Stdout))
}

func TestNiceMean(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0.00 ns"},
		{5e-10, "0.50 ns"},
		{2.2e-6, "2.20 µs"},
		{0.0123, "12.30 ms"},
		{2, "2.00 s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NiceMean(tt.seconds))
	}
}

func TestNicePercentAndCount(t *testing.T) {
	assert.Equal(t, "-50.00%", nicePercent(-0.5))
	assert.Equal(t, "+3.10%", nicePercent(0.031))

	for n, want := range map[int]string{0: "0", 999: "999", 1000: "1,000", 2500: "2,500", 1234567: "1,234,567"} {
		assert.Equal(t, want, niceCount(n))
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name, namespace, leaf string
	}{
		{"sort::ints(100)", "sort::", "ints(100)"},
		{"strings.Repeat(x)", "strings.Repeat", "(x)"},
		{"f(a::b)", "f", "(a::b)"},
		{"codec/encode/small", "codec/encode/", "small"},
		{"a::b", "a::", "b"},
		{"plain", "plain", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns, leaf := splitName(tt.name)
			assert.Equal(t, tt.namespace, ns)
			assert.Equal(t, tt.leaf, leaf)
		})
	}
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, SaveJSON(sampleReport(t), path))

	got, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "0f8fad5b-d9cb-469f-a165-70867728950e", got.ID)
	require.Len(t, got.Benchmarks, 3)

	first := got.Benchmarks[0]
	require.NotNil(t, first.Stats)
	assert.Equal(t, 2431, first.Stats.Valid)
	require.NotNil(t, first.Change)
	assert.Equal(t, -0.031, *first.Change)

	assert.Nil(t, got.Benchmarks[1].Change)
	assert.Nil(t, got.Benchmarks[2].Stats)
	assert.Equal(t, ErrNoRun.Error(), got.Benchmarks[2].Error)
}

func TestLoadJSONInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := LoadJSON(path)
	assert.Error(t, err)
}

func TestSaveCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, SaveCSV(sampleReport(t), path))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "Name", records[0][0])
	assert.Equal(t, []string{"sort::ints(100)", "0.000000220", "0.000000010", "2431", "2500", "-3.10", ""}, records[1])
	assert.Equal(t, "", records[2][5])
	assert.Equal(t, ErrNoRun.Error(), records[3][6])
}

func TestSaveMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, SaveMarkdown(sampleReport(t), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	md := string(data)

	assert.Contains(t, md, "# Benchmark Report")
	assert.Contains(t, md, "| `sort::ints(100)` | 220.00 ns | 10.00 ns | -3.10% | 2,431/2,500 |")
	assert.Contains(t, md, "**Duration:** 1.5s")
	assert.Contains(t, md, "## Failures")
	assert.Contains(t, md, "- `missing`: "+ErrNoRun.Error())
}

func TestMetrics(t *testing.T) {
	r := sampleReport(t)
	r.Rows = append(r.Rows, Row{Name: "broken", Err: errors.New("boom")})

	reg := newMetricsRegistry(r)
	n, err := testutil.GatherAndCount(reg, "microbench_samples")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = testutil.GatherAndCount(reg, "microbench_change_ratio")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	path := filepath.Join(t.TempDir(), "microbench.prom")
	require.NoError(t, WriteMetrics(r, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `microbench_mean_seconds{bench="git status"} 0.0123`)
	assert.Contains(t, string(data), `microbench_failed{bench="broken"} 1`)
}
