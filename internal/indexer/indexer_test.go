package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorgrep/vgrep/internal/chunk"
	"github.com/vectorgrep/vgrep/internal/config"
	"github.com/vectorgrep/vgrep/internal/embed"
	"github.com/vectorgrep/vgrep/internal/scanner"
	"github.com/vectorgrep/vgrep/internal/vectorstore"
)

// mockSink records every notification for assertions, matching the
// pack's table-driven style of hand-rolled interface fakes.
type mockSink struct {
	stages  []string
	skipped []string
	warns   int
}

func (m *mockSink) Stage(name string)            { m.stages = append(m.stages, name) }
func (m *mockSink) FileSkipped(path string, _ error) { m.skipped = append(m.skipped, path) }
func (m *mockSink) Warn(string, error)           { m.warns++ }

func newTestIndexer(t *testing.T, root string) *Indexer {
	t.Helper()
	cfg := config.NewConfig()
	cfg.RootDir = root
	cfg.MaxChunkTokens = 512
	cfg.MinChunkTokens = 30
	cfg.CachePath = ".vgrep/embedcache.json"

	sc, err := scanner.New()
	require.NoError(t, err)

	idx, err := New(Dependencies{
		Config:    cfg,
		Scanner:   sc,
		Segmenter: chunk.NewSegmenter(cfg.MaxChunkTokens, cfg.MinChunkTokens),
		Embedder:  embed.NewStaticEmbedder(),
		Store:     vectorstore.NewHNSWStore(""),
	})
	require.NoError(t, err)
	require.NoError(t, idx.Init(context.Background()))
	return idx
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIndexer_Index_FirstRunChunksAndEmbedsEveryFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n")

	idx := newTestIndexer(t, root)
	sink := &mockSink{}
	stats, err := idx.Index(context.Background(), sink)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalFiles)
	assert.Greater(t, stats.TotalChunks, 0)
	assert.Equal(t, stats.TotalChunks, stats.NewChunks)
	assert.Equal(t, 0, stats.CachedChunks)
	assert.Contains(t, sink.stages, "scan")
	assert.Contains(t, sink.stages, "embed")
	assert.Contains(t, sink.stages, "upsert")

	count, err := idx.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stats.TotalChunks, count.TotalChunks)
}

func TestIndexer_Index_SecondRunWithNoChangesShortCircuits(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")

	idx := newTestIndexer(t, root)
	ctx := context.Background()
	_, err := idx.Index(ctx, nil)
	require.NoError(t, err)

	sink := &mockSink{}
	stats, err := idx.Index(ctx, sink)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalChunks)
	assert.Contains(t, sink.stages, "unchanged")
}

func TestIndexer_Index_AddedFileIsEmbeddedWithoutReprocessingUnchanged(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")

	idx := newTestIndexer(t, root)
	ctx := context.Background()
	first, err := idx.Index(ctx, nil)
	require.NoError(t, err)
	require.Greater(t, first.TotalChunks, 0)

	writeFile(t, root, "extra.go", "package main\n\nfunc Helper() int { return 1 }\n")
	second, err := idx.Index(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.CachedChunks, "unchanged main.go isn't reprocessed at all, so it contributes neither new nor cached chunks")
	assert.Greater(t, second.NewChunks, 0)

	count, err := idx.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.TotalChunks+second.NewChunks, count.TotalChunks)
}

func TestIndexer_Reset_ClearsStoreCacheAndMerkleSummary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")

	idx := newTestIndexer(t, root)
	ctx := context.Background()
	_, err := idx.Index(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, idx.Reset(ctx))

	count, err := idx.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count.TotalChunks)

	_, err = os.Stat(idx.merklePath)
	assert.True(t, os.IsNotExist(err))

	second, err := idx.Index(ctx, nil)
	require.NoError(t, err)
	assert.Greater(t, second.TotalChunks, 0)
	assert.Equal(t, second.TotalChunks, second.NewChunks, "reset cache means nothing is cached on the next run")
}

func TestIndexer_HashFiles_MissingFileIsSkippedNotFatal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")

	idx := newTestIndexer(t, root)
	sink := &mockSink{}
	// missing.go was never written: hashing it must fail with ENOENT
	// regardless of the running user's privileges, unlike a chmod'd file.
	hashes, err := idx.hashFiles(context.Background(), []string{"main.go", "missing.go"}, sink)
	require.NoError(t, err)
	require.Len(t, hashes, 1)
	assert.Equal(t, "main.go", hashes[0].Path)
	assert.Contains(t, sink.skipped, "missing.go")
}
