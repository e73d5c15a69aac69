package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attunehq/microbench/history"
	"github.com/attunehq/microbench/stats"
)

func seedHistory(t *testing.T, names ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "last")
	s, err := stats.Record{Total: 250, Valid: 240, Mean: 0.0015, Deviation: 0.0001}.Stats(stats.MinSamples)
	require.NoError(t, err)

	h := history.Open(history.NewFileBackend(nil, path))
	for _, name := range names {
		h.Insert(name, s)
	}
	h.Save()
	return path
}

func TestHistoryList(t *testing.T) {
	path := seedHistory(t, "parse::small", "parse::large")

	out, err := execute(t, "history", "list", "--history", path)
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "parse::large")
	assert.Contains(t, out, "parse::small")
	assert.Contains(t, out, "1.50 ms")
	assert.Contains(t, out, "240/250")
}

func TestHistoryListEmpty(t *testing.T) {
	out, err := execute(t, "history", "list", "--history", filepath.Join(t.TempDir(), "last"))
	require.NoError(t, err)
	assert.Contains(t, out, "No stored benchmarks.")
}

func TestHistoryShow(t *testing.T) {
	path := seedHistory(t, "render")

	out, err := execute(t, "history", "show", "render", "--history", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1.50 ms")
	assert.Contains(t, out, "240 valid of 250")

	_, err = execute(t, "history", "show", "missing", "--history", path)
	assert.Error(t, err)
}

func TestHistoryRm(t *testing.T) {
	path := seedHistory(t, "a", "b")

	out, err := execute(t, "history", "rm", "a", "--history", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 benchmark(s)")

	h := history.Open(history.NewFileBackend(nil, path))
	assert.Equal(t, []string{"b"}, h.Names())

	_, err = execute(t, "history", "rm", "a", "--history", path)
	assert.Error(t, err)
}

func TestHistoryClear(t *testing.T) {
	path := seedHistory(t, "a")

	_, err := execute(t, "history", "clear", "--history", path)
	require.NoError(t, err)
	assert.NoFileExists(t, path)
}

func TestHistoryClearBadger(t *testing.T) {
	dir := t.TempDir()
	s, err := stats.Record{Total: 250, Valid: 240, Mean: 0.0015}.Stats(stats.MinSamples)
	require.NoError(t, err)

	backend, err := history.OpenBadger(history.BadgerConfig{Path: dir})
	require.NoError(t, err)
	h := history.Open(backend)
	h.Insert("a", s)
	h.Save()
	require.NoError(t, h.Close())

	out, err := execute(t, "history", "clear", "--badger", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 benchmark(s)")

	out, err = execute(t, "history", "list", "--badger", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No stored benchmarks.")
}
