package retriever

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorgrep/vgrep/internal/embed"
	"github.com/vectorgrep/vgrep/internal/vectorstore"
)

func setupStore(t *testing.T, embedder embed.Embedder, records []vectorstore.Record) vectorstore.Store {
	t.Helper()
	ctx := context.Background()
	store := vectorstore.NewHNSWStore("")
	require.NoError(t, store.EnsureCollection(ctx, embedder.Dimensions(), "cos"))
	require.NoError(t, store.Upsert(ctx, records))
	return store
}

func TestRetriever_Search_ReadsLiveFileContent(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("line1\nline2\nline3\nline4\n"), 0o644))

	embedder := embed.NewStaticEmbedder()
	vec, err := embedder.Embed(ctx, "func main")
	require.NoError(t, err)

	store := setupStore(t, embedder, []vectorstore.Record{
		{ID: vectorstore.DeriveID("h1"), Vector: vec, Payload: vectorstore.Payload{
			Path: "main.go", StartLine: 2, EndLine: 3, ContentHash: "h1", NodeKind: "function_declaration", SymbolName: "main",
		}},
	})

	r := New(root, embedder, store)
	results, err := r.Search(ctx, "func main", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "main.go", results[0].Path)
	assert.Equal(t, "line2\nline3", results[0].Text)
	assert.Equal(t, "main", results[0].SymbolName)
}

func TestRetriever_Search_MissingFileYieldsPlaceholder(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	embedder := embed.NewStaticEmbedder()
	vec, err := embedder.Embed(ctx, "deleted code")
	require.NoError(t, err)

	store := setupStore(t, embedder, []vectorstore.Record{
		{ID: vectorstore.DeriveID("h2"), Vector: vec, Payload: vectorstore.Payload{
			Path: "gone.go", StartLine: 1, EndLine: 1, ContentHash: "h2",
		}},
	})

	r := New(root, embedder, store)
	results, err := r.Search(ctx, "deleted code", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Text, "file not found")
	assert.Contains(t, results[0].Text, "gone.go")
}

func TestRetriever_Search_EmptyStoreReturnsNoResults(t *testing.T) {
	ctx := context.Background()
	embedder := embed.NewStaticEmbedder()
	store := setupStore(t, embedder, nil)

	r := New(t.TempDir(), embedder, store)
	results, err := r.Search(ctx, "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
