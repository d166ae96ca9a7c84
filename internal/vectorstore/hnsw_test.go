package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHNSWStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore("")
	require.NoError(t, s.EnsureCollection(ctx, 3, "cos"))

	require.NoError(t, s.Upsert(ctx, []Record{
		{ID: "a", Vector: []float32{1, 0, 0}, Payload: Payload{Path: "a.go", ContentHash: "h1"}},
		{ID: "b", Vector: []float32{0, 1, 0}, Payload: Payload{Path: "b.go", ContentHash: "h2"}},
	}))

	results, err := s.Search(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "a.go", results[0].Payload.Path)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestHNSWStore_DeleteByPath_RemovesAllRecordsForPath(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore("")
	require.NoError(t, s.EnsureCollection(ctx, 2, "cos"))

	require.NoError(t, s.Upsert(ctx, []Record{
		{ID: "a1", Vector: []float32{1, 0}, Payload: Payload{Path: "file.go"}},
		{ID: "a2", Vector: []float32{0, 1}, Payload: Payload{Path: "file.go"}},
		{ID: "b1", Vector: []float32{1, 1}, Payload: Payload{Path: "other.go"}},
	}))

	require.NoError(t, s.DeleteByPath(ctx, "file.go"))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := s.Search(ctx, []float32{1, 1}, 5)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "file.go", r.Payload.Path)
	}
}

func TestHNSWStore_UpsertReplacesExistingID(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore("")
	require.NoError(t, s.EnsureCollection(ctx, 2, "cos"))

	require.NoError(t, s.Upsert(ctx, []Record{{ID: "a", Vector: []float32{1, 0}, Payload: Payload{Path: "old.go"}}}))
	require.NoError(t, s.Upsert(ctx, []Record{{ID: "a", Vector: []float32{0, 1}, Payload: Payload{Path: "new.go"}}}))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := s.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new.go", results[0].Payload.Path)
}

func TestHNSWStore_Upsert_RejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore("")
	require.NoError(t, s.EnsureCollection(ctx, 3, "cos"))

	err := s.Upsert(ctx, []Record{{ID: "a", Vector: []float32{1, 0}}})
	require.Error(t, err)
	var dimErr ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Got)
}

func TestHNSWStore_SaveLoad_RoundTrips(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.hnsw")

	s := NewHNSWStore(path)
	require.NoError(t, s.EnsureCollection(ctx, 2, "cos"))
	require.NoError(t, s.Upsert(ctx, []Record{
		{ID: "a", Vector: []float32{1, 0}, Payload: Payload{Path: "a.go", ContentHash: "h1"}},
	}))
	require.NoError(t, s.Save())
	require.NoError(t, s.Close())

	reloaded := NewHNSWStore(path)
	require.NoError(t, reloaded.EnsureCollection(ctx, 2, "cos"))

	count, err := reloaded.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := reloaded.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "h1", results[0].Payload.ContentHash)
}

func TestHNSWStore_DropCollection_RemovesSavedFilesAndResetsState(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.hnsw")

	s := NewHNSWStore(path)
	require.NoError(t, s.EnsureCollection(ctx, 2, "cos"))
	require.NoError(t, s.Upsert(ctx, []Record{{ID: "a", Vector: []float32{1, 0}, Payload: Payload{Path: "a.go"}}}))
	require.NoError(t, s.Save())

	require.NoError(t, s.DropCollection(ctx))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path + ".meta")
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, s.DropCollection(ctx))
}

func TestHNSWStore_Search_EmptyGraphReturnsNoResults(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore("")
	require.NoError(t, s.EnsureCollection(ctx, 2, "cos"))

	results, err := s.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
