package suite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attunehq/microbench/benchmark"
)

const sample = `
[[bench]]
name = "  true  "
command = "true"
samples = 150
timeout = "2s"

[[bench]]
name = "echo"
command = "echo hi > /dev/null"
spacer = true
`

func TestParse(t *testing.T) {
	s, err := Parse(sample)
	require.NoError(t, err)
	require.Len(t, s.Benches, 2)

	first := s.Benches[0]
	assert.Equal(t, "true", first.Name)
	assert.Equal(t, 150, first.Samples)
	assert.Equal(t, Duration(2*time.Second), first.Timeout)

	b := first.Bench()
	assert.Equal(t, 150, b.Samples())
	assert.Equal(t, 2*time.Second, b.Timeout())

	b = s.Benches[1].Bench()
	assert.Equal(t, benchmark.DefaultSamples, b.Samples())
	assert.Equal(t, benchmark.DefaultTimeout, b.Timeout())
	assert.True(t, s.Benches[1].Spacer)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"empty":     ``,
		"no name":   "[[bench]]\ncommand = \"true\"\n",
		"no cmd":    "[[bench]]\nname = \"x\"\n",
		"duplicate": "[[bench]]\nname = \"x\"\ncommand = \"true\"\n[[bench]]\nname = \" x\"\ncommand = \"false\"\n",
		"negative":  "[[bench]]\nname = \"x\"\ncommand = \"true\"\nsamples = -1\n",
		"duration":  "[[bench]]\nname = \"x\"\ncommand = \"true\"\ntimeout = \"soon\"\n",
		"unknown":   "[[bench]]\nname = \"x\"\ncommand = \"true\"\nruns = 3\n",
		"syntax":    "[[bench]\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(data)
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path)
	assert.Len(t, s.Benches, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestDurationText(t *testing.T) {
	text, err := Duration(1500 * time.Millisecond).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", string(text))
}

func TestRun(t *testing.T) {
	s, err := Parse(`
[[bench]]
name = "ok"
command = "true"
samples = 100

[[bench]]
name = "fails"
command = "exit 2"
spacer = true
`)
	require.NoError(t, err)

	benches := s.Run(nil)
	assert.Equal(t, 3, benches.Len())

	report, err := benches.Report(nil)
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)
	assert.Equal(t, "ok", report.Rows[0].Name)
	assert.True(t, report.Rows[1].Spacer)
	assert.Error(t, report.Rows[2].Err)
	assert.Contains(t, report.Rows[2].Err.Error(), "exit status 2")
}
