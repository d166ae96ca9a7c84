// Package indexer orchestrates the incremental index pipeline: scan the
// project root, hash every file, diff against the previous Merkle
// summary, chunk and embed what changed, and upsert the result into the
// vector store.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vectorgrep/vgrep/internal/chunk"
	"github.com/vectorgrep/vgrep/internal/config"
	"github.com/vectorgrep/vgrep/internal/embed"
	"github.com/vectorgrep/vgrep/internal/embedcache"
	"github.com/vectorgrep/vgrep/internal/hashutil"
	"github.com/vectorgrep/vgrep/internal/merkle"
	"github.com/vectorgrep/vgrep/internal/retriever"
	"github.com/vectorgrep/vgrep/internal/scanner"
	"github.com/vectorgrep/vgrep/internal/vectorstore"
)

// ProgressSink receives notifications as Index moves through its stages.
// A nil sink is never passed to user code; callers that don't care about
// progress use NopProgressSink.
type ProgressSink interface {
	// Stage announces the pipeline has entered a new named stage
	// ("scan", "hash", "chunk", "embed", "upsert", ...).
	Stage(name string)

	// FileSkipped reports a single file that was read, hashed, or
	// chunked unsuccessfully and is being treated as absent for this run.
	FileSkipped(path string, err error)

	// Warn reports a non-fatal failure that isn't tied to one file.
	Warn(message string, err error)
}

// NopProgressSink discards every notification.
type NopProgressSink struct{}

func (NopProgressSink) Stage(string)              {}
func (NopProgressSink) FileSkipped(string, error)  {}
func (NopProgressSink) Warn(string, error)         {}

// Stats summarizes one Index run.
type Stats struct {
	TotalFiles   int
	TotalChunks  int
	NewChunks    int
	CachedChunks int
	ElapsedMS    int64
}

// Dependencies are the collaborators Indexer needs injected. Every field
// is required; New returns an error naming the first missing one.
type Dependencies struct {
	Config    *config.Config
	Scanner   *scanner.Scanner
	Segmenter *chunk.Segmenter
	Embedder  embed.Embedder
	Store     vectorstore.Store
}

func (d Dependencies) validate() error {
	if d.Config == nil {
		return fmt.Errorf("config is required")
	}
	if d.Scanner == nil {
		return fmt.Errorf("scanner is required")
	}
	if d.Segmenter == nil {
		return fmt.Errorf("segmenter is required")
	}
	if d.Embedder == nil {
		return fmt.Errorf("embedder is required")
	}
	if d.Store == nil {
		return fmt.Errorf("vector store is required")
	}
	return nil
}

// Indexer runs the incremental index pipeline against one project root
// and exposes search over what it has indexed.
type Indexer struct {
	deps       Dependencies
	cache      *embedcache.Cache
	merklePath string
	registry   *chunk.LanguageRegistry
}

// New validates deps and returns an Indexer bound to them. Call Init
// before Index or Search.
func New(deps Dependencies) (*Indexer, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("invalid indexer dependencies: %w", err)
	}
	return &Indexer{
		deps:       deps,
		merklePath: filepath.Join(deps.Config.RootDir, ".cache", "merkle-state.json"),
		registry:   chunk.DefaultRegistry(),
	}, nil
}

// Init loads the on-disk embedding cache and ensures the vector store's
// collection exists for the embedder's declared dimension. It must be
// called once before Index, Search, GetStats, or Reset.
func (idx *Indexer) Init(ctx context.Context) error {
	idx.cache = embedcache.Load(idx.deps.Config.AbsCachePath())
	if err := idx.deps.Store.EnsureCollection(ctx, idx.deps.Embedder.Dimensions(), "cos"); err != nil {
		return ErrVectorStore("ensure collection", err)
	}
	return nil
}

// Close releases the segmenter's parser and embedder resources. The
// vector store's lifetime is owned by whoever constructed it, not by
// Indexer, since callers may share one store across several indexers.
func (idx *Indexer) Close() error {
	idx.deps.Segmenter.Close()
	return idx.deps.Embedder.Close()
}

// Index runs one full incremental pass: scan, hash, diff, invalidate
// stale records, chunk and embed what changed, upsert, and persist the
// new Merkle summary and cache. progress may be nil.
func (idx *Indexer) Index(ctx context.Context, progress ProgressSink) (Stats, error) {
	if progress == nil {
		progress = NopProgressSink{}
	}
	start := time.Now()
	cfg := idx.deps.Config

	// 1. scan
	progress.Stage("scan")
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	paths, err := idx.deps.Scanner.Scan(ctx, cfg.RootDir, cfg.Extensions)
	if err != nil {
		return Stats{}, ErrScanFailure(err)
	}

	// 2. hash every readable file, in parallel
	progress.Stage("hash")
	liveHashes, err := idx.hashFiles(ctx, paths, progress)
	if err != nil {
		return Stats{}, err
	}

	// 3. build this run's Merkle summary
	newNodes := merkle.Build(liveHashes)

	// 4. load the previous summary and diff
	oldNodes := merkle.Load(idx.merklePath)
	added, removed, modified := merkle.Diff(oldNodes, newNodes)

	// 5. no-change short circuit
	if len(oldNodes) > 0 && len(added) == 0 && len(removed) == 0 && len(modified) == 0 {
		progress.Stage("unchanged")
		return Stats{TotalFiles: len(liveHashes), ElapsedMS: time.Since(start).Milliseconds()}, nil
	}

	// 6. invalidate every path that no longer matches what's indexed
	progress.Stage("invalidate")
	for _, p := range append(append([]string{}, removed...), modified...) {
		if err := idx.deps.Store.DeleteByPath(ctx, p); err != nil {
			return Stats{}, ErrVectorStore("delete", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	// 7. select files to process: everything on the first run, else
	// just what's new or changed
	var toProcess []string
	if len(oldNodes) == 0 {
		for _, fh := range liveHashes {
			toProcess = append(toProcess, fh.Path)
		}
	} else {
		toProcess = append(toProcess, added...)
		toProcess = append(toProcess, modified...)
	}
	sort.Strings(toProcess)

	// 8. chunk every selected file
	progress.Stage("chunk")
	allChunks, err := idx.chunkFiles(ctx, toProcess, progress)
	if err != nil {
		return Stats{}, err
	}

	// 9. partition by cache membership
	var cached, uncached []*chunk.Chunk
	for _, c := range allChunks {
		if idx.cache.Has(c.ID) {
			cached = append(cached, c)
		} else {
			uncached = append(uncached, c)
		}
	}

	// 10. embed every uncached chunk
	progress.Stage("embed")
	if err := idx.embedChunks(ctx, uncached); err != nil {
		return Stats{}, err
	}

	// 11. upsert the union of cached and freshly embedded chunks
	progress.Stage("upsert")
	if err := idx.upsertChunks(ctx, allChunks); err != nil {
		return Stats{}, err
	}

	// 12. persist the new summary only after the upsert has committed,
	// so a crash between upsert and here simply redoes this run
	if err := merkle.Save(idx.merklePath, newNodes); err != nil {
		return Stats{}, fmt.Errorf("failed to persist merkle summary: %w", err)
	}
	if err := idx.cache.Save(); err != nil {
		progress.Warn("failed to persist embedding cache", ErrCachePersist(err))
	}

	// 13. report
	return Stats{
		TotalFiles:   len(liveHashes),
		TotalChunks:  len(allChunks),
		NewChunks:    len(uncached),
		CachedChunks: len(cached),
		ElapsedMS:    time.Since(start).Milliseconds(),
	}, nil
}

// hashFiles hashes every path concurrently, skipping (not failing) any
// file that can't be read.
func (idx *Indexer) hashFiles(ctx context.Context, paths []string, progress ProgressSink) ([]merkle.FileHash, error) {
	hashes := make([]string, len(paths))
	ok := make([]bool, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			abs := filepath.Join(idx.deps.Config.RootDir, p)
			h, err := hashutil.SHA256File(abs)
			if err != nil {
				progress.FileSkipped(p, ErrFileRead(p, err))
				return nil
			}
			hashes[i] = h
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	live := make([]merkle.FileHash, 0, len(paths))
	for i, p := range paths {
		if ok[i] {
			live = append(live, merkle.FileHash{Path: p, Hash: hashes[i]})
		}
	}
	return live, nil
}

// chunkFiles reads and chunks every selected file sequentially: the
// segmenter owns a single tree-sitter parser that isn't safe for
// concurrent Parse calls.
func (idx *Indexer) chunkFiles(ctx context.Context, paths []string, progress ProgressSink) ([]*chunk.Chunk, error) {
	var all []*chunk.Chunk
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		abs := filepath.Join(idx.deps.Config.RootDir, p)
		content, err := os.ReadFile(abs)
		if err != nil {
			progress.FileSkipped(p, ErrFileRead(p, err))
			continue
		}
		chunks, err := idx.deps.Segmenter.Chunk(ctx, &chunk.FileInput{
			Path:     p,
			Content:  content,
			Language: idx.languageFor(p),
		})
		if err != nil {
			progress.FileSkipped(p, ErrParse(p, err))
			continue
		}
		all = append(all, chunks...)
	}
	return all, nil
}

func (idx *Indexer) languageFor(path string) string {
	if lc, ok := idx.registry.GetByExtension(filepath.Ext(path)); ok {
		return lc.Name
	}
	return ""
}

// embedChunks groups uncached chunks into token-budget-respecting
// batches (embed.PackBatches) and embeds each group, storing every
// result in the cache. Grouping here, ahead of the embedder's own
// EmbedBatch, is what lets the core apply its own conservative token
// budget regardless of what the provider declares.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []*chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	batches := embed.PackBatches(texts, embed.DefaultBatchSize, embed.DefaultMaxBatchTokens)

	offset := 0
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		vectors, err := idx.deps.Embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return ErrEmbeddingProvider(err)
		}
		now := time.Now().UnixMilli()
		for i := range batch {
			idx.cache.Set(chunks[offset+i].ID, vectors[i], now)
		}
		offset += len(batch)
	}
	return nil
}

// upsertChunks writes every chunk's cached vector to the store. A chunk
// missing from the cache at this point means embedChunks silently
// dropped it, which would itself be a bug upstream; it's skipped here
// rather than upserted with a zero vector.
func (idx *Indexer) upsertChunks(ctx context.Context, chunks []*chunk.Chunk) error {
	records := make([]vectorstore.Record, 0, len(chunks))
	for _, c := range chunks {
		vec, ok := idx.cache.Get(c.ID)
		if !ok {
			continue
		}
		records = append(records, vectorstore.Record{
			ID:     vectorstore.DeriveID(c.ID),
			Vector: vec,
			Payload: vectorstore.Payload{
				Path:        c.FilePath,
				StartLine:   c.StartLine,
				EndLine:     c.EndLine,
				ContentHash: c.ID,
				NodeKind:    c.NodeKind,
				SymbolName:  c.SymbolName,
			},
		})
	}
	if len(records) == 0 {
		return nil
	}
	if err := idx.deps.Store.Upsert(ctx, records); err != nil {
		return ErrVectorStore("upsert", err)
	}
	return nil
}

// Search embeds query and returns the k best-matching chunks, with
// source lines re-read live from disk.
func (idx *Indexer) Search(ctx context.Context, query string, k int) ([]retriever.Result, error) {
	r := retriever.New(idx.deps.Config.RootDir, idx.deps.Embedder, idx.deps.Store)
	return r.Search(ctx, query, k)
}

// GetStats reports the current size of the index without running a pass.
func (idx *Indexer) GetStats(ctx context.Context) (Stats, error) {
	count, err := idx.deps.Store.Count(ctx)
	if err != nil {
		return Stats{}, ErrVectorStore("count", err)
	}
	return Stats{TotalChunks: count}, nil
}

// Reset discards everything this indexer has built: the vector store's
// collection, the embedding cache, and the Merkle summary. A missing
// summary file is not an error. The collection is then re-created empty,
// so Index can run again without another Init.
func (idx *Indexer) Reset(ctx context.Context) error {
	if err := idx.deps.Store.DropCollection(ctx); err != nil {
		return ErrVectorStore("drop collection", err)
	}
	if err := idx.deps.Store.EnsureCollection(ctx, idx.deps.Embedder.Dimensions(), "cos"); err != nil {
		return ErrVectorStore("ensure collection", err)
	}
	if idx.cache == nil {
		idx.cache = embedcache.Load(idx.deps.Config.AbsCachePath())
	}
	idx.cache.Clear()
	if err := idx.cache.Save(); err != nil {
		return ErrCachePersist(err)
	}
	if err := os.Remove(idx.merklePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove merkle summary: %w", err)
	}
	return nil
}
