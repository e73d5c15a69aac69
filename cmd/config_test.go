package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFlags struct {
	config    string
	samples   int
	timeout   time.Duration
	noHistory bool
	commands  []string
}

func newTestFlags(t *testing.T, args ...string) (*pflag.FlagSet, *testFlags) {
	t.Helper()
	tf := &testFlags{}
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringVar(&tf.config, "config", "", "")
	flags.IntVarP(&tf.samples, "samples", "n", 0, "")
	flags.DurationVar(&tf.timeout, "timeout", 0, "")
	flags.BoolVar(&tf.noHistory, "no-history", false, "")
	flags.StringArrayVarP(&tf.commands, "command", "c", nil, "")
	require.NoError(t, flags.Parse(args))
	return flags, tf
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "microbench.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSetAllConfigDefaults(t *testing.T) {
	flags, tf := newTestFlags(t)
	require.NoError(t, setAllConfig(viper.New(), flags, "MBTEST"))

	assert.Equal(t, 0, tf.samples)
	assert.Equal(t, time.Duration(0), tf.timeout)
	assert.False(t, tf.noHistory)
	assert.Empty(t, tf.commands)
}

func TestSetAllConfigEnv(t *testing.T) {
	t.Setenv("MBTEST_SAMPLES", "300")
	t.Setenv("MBTEST_TIMEOUT", "2s")
	t.Setenv("MBTEST_NO_HISTORY", "true")
	t.Setenv("MBTEST_COMMAND", "sleep 0.001 && echo done")

	flags, tf := newTestFlags(t)
	require.NoError(t, setAllConfig(viper.New(), flags, "MBTEST"))

	assert.Equal(t, 300, tf.samples)
	assert.Equal(t, 2*time.Second, tf.timeout)
	assert.True(t, tf.noHistory)
	assert.Equal(t, []string{"sleep 0.001 && echo done"}, tf.commands)
}

func TestSetAllConfigFlagWins(t *testing.T) {
	t.Setenv("MBTEST_SAMPLES", "300")
	t.Setenv("MBTEST_COMMAND", "from env")

	flags, tf := newTestFlags(t, "--samples", "700", "-c", "a", "-c", "b")
	require.NoError(t, setAllConfig(viper.New(), flags, "MBTEST"))

	assert.Equal(t, 700, tf.samples)
	assert.Equal(t, []string{"a", "b"}, tf.commands)
}

func TestSetAllConfigFile(t *testing.T) {
	path := writeConfig(t, `
samples = 400
timeout = "750ms"
command = ["true", "ls /"]
`)
	t.Setenv("MBTEST_SAMPLES", "900")

	flags, tf := newTestFlags(t, "--config", path)
	require.NoError(t, setAllConfig(viper.New(), flags, "MBTEST"))

	// The environment beats the file.
	assert.Equal(t, 900, tf.samples)
	assert.Equal(t, 750*time.Millisecond, tf.timeout)
	assert.Equal(t, []string{"true", "ls /"}, tf.commands)
}

func TestSetAllConfigUnknownKey(t *testing.T) {
	path := writeConfig(t, "sampels = 400\n")

	flags, _ := newTestFlags(t, "--config", path)
	err := setAllConfig(viper.New(), flags, "MBTEST")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sampels")
}

func TestSetAllConfigMissingFile(t *testing.T) {
	flags, _ := newTestFlags(t, "--config", filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, setAllConfig(viper.New(), flags, "MBTEST"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, false)
	logger.Debug("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	newLogger(&buf, true).Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
