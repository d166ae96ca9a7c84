package embedcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsEmptyCache(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestLoad_CorruptFileReturnsEmptyCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not valid"), 0o644))

	c := Load(path)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestSetGet_RoundTrips(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "cache.json"))
	c.Set("hash1", []float32{0.1, 0.2, 0.3}, 1000)

	vec, ok := c.Get("hash1")
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.True(t, c.Has("hash1"))
	assert.False(t, c.Has("hash2"))
}

func TestSaveLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := Load(path)
	c.Set("hash1", []float32{1, 2, 3}, 500)
	require.NoError(t, c.Save())
	assert.False(t, c.Dirty())

	reloaded := Load(path)
	vec, ok := reloaded.Get("hash1")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, vec)
}

func TestPrune_RemovesOlderThanCutoff(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "cache.json"))
	c.Set("old", []float32{1}, 100)
	c.Set("new", []float32{2}, 2000)

	removed := c.Prune(1000)
	assert.Equal(t, 1, removed)
	assert.False(t, c.Has("old"))
	assert.True(t, c.Has("new"))
}

func TestClear_EmptiesCache(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "cache.json"))
	c.Set("hash1", []float32{1}, 100)
	c.Clear()
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestStats_ReportsOldestAndNewest(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "cache.json"))
	c.Set("a", []float32{1}, 100)
	c.Set("b", []float32{2}, 500)
	c.Set("c", []float32{3}, 300)

	stats := c.Stats()
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, int64(100), stats.Oldest)
	assert.Equal(t, int64(500), stats.Newest)
}

func TestDirty_TracksUnsavedChanges(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "cache.json"))
	assert.False(t, c.Dirty())
	c.Set("hash1", []float32{1}, 100)
	assert.True(t, c.Dirty())
}

func TestSave_NoopWhenClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := Load(path)
	c.Set("hash1", []float32{1, 2, 3}, 500)
	require.NoError(t, c.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	writeTime := info.ModTime()

	require.NoError(t, c.Save())
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, writeTime, info.ModTime(), "Save should not rewrite the file when nothing changed")
}

func TestSave_WritesWhenFileMissingEvenIfClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := Load(path)

	require.NoError(t, c.Save())
	_, err := os.Stat(path)
	require.NoError(t, err, "Save should write the file on first call even with no entries, since it doesn't exist yet")
}
