package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attunehq/microbench/stats"
)

func openMemoryBadger(t *testing.T) *BadgerBackend {
	t.Helper()
	b, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBadgerRoundTrip(t *testing.T) {
	b := openMemoryBadger(t)
	assert.Equal(t, "badger:memory", b.String())

	entries := map[string]stats.RunStats{
		"a": mustStats(t, 100, 100, 0, 1),
		"b": mustStats(t, 2500, 2400, 1e-7, 3e-6),
	}
	require.NoError(t, b.Store(entries))

	got, err := b.Load(stats.MinSamples)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestBadgerDeletesStale(t *testing.T) {
	b := openMemoryBadger(t)

	require.NoError(t, b.Store(map[string]stats.RunStats{
		"a": mustStats(t, 100, 100, 0, 1),
		"b": mustStats(t, 100, 100, 0, 2),
	}))
	require.NoError(t, b.Store(map[string]stats.RunStats{
		"b": mustStats(t, 100, 100, 0, 3),
	}))

	got, err := b.Load(stats.MinSamples)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3.0, got["b"].Mean())
}

func TestBadgerThroughHistory(t *testing.T) {
	b := openMemoryBadger(t)

	h := Open(b)
	h.Insert("x", mustStats(t, 150, 120, 0.1, 4))
	h.Save()

	again := Open(b)
	got, ok := again.Get("x")
	require.True(t, ok)
	assert.Equal(t, 120, got.Valid())
}

func TestOpenBadgerRequiresPath(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	assert.Error(t, err)
}

func TestOpenBadgerOnDisk(t *testing.T) {
	dir := t.TempDir()

	b, err := OpenBadger(BadgerConfig{Path: dir})
	require.NoError(t, err)
	require.NoError(t, b.Store(map[string]stats.RunStats{"a": mustStats(t, 100, 100, 0, 1)}))
	require.NoError(t, b.Close())

	b, err = OpenBadger(BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer b.Close()

	got, err := b.Load(stats.MinSamples)
	require.NoError(t, err)
	assert.Contains(t, got, "a")
}
