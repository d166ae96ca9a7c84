package cmd

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/vectorgrep/vgrep/internal/chunk"
	"github.com/vectorgrep/vgrep/internal/config"
	"github.com/vectorgrep/vgrep/internal/embed"
	"github.com/vectorgrep/vgrep/internal/indexer"
	"github.com/vectorgrep/vgrep/internal/scanner"
	"github.com/vectorgrep/vgrep/internal/vectorstore"
)

// cliIndexer bundles an Indexer with the vector store backing it. The
// indexer doesn't own the store's lifetime (callers may share one store
// across several indexers), so the CLI closes both itself.
type cliIndexer struct {
	*indexer.Indexer
	store vectorstore.Store
}

func (c *cliIndexer) Close() error {
	idxErr := c.Indexer.Close()
	storeErr := c.store.Close()
	if idxErr != nil {
		return idxErr
	}
	return storeErr
}

// buildIndexer loads configuration for root and wires an Indexer from
// it, selecting the embedder and vector store the way cfg describes.
// offline forces the static, network-free embedder regardless of cfg.
func buildIndexer(ctx context.Context, root string, offline bool) (*cliIndexer, *config.Config, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	sc, err := scanner.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	embedder, err := newEmbedder(ctx, cfg, offline)
	if err != nil {
		return nil, nil, err
	}

	store, err := newStore(cfg)
	if err != nil {
		_ = embedder.Close()
		return nil, nil, err
	}

	idx, err := indexer.New(indexer.Dependencies{
		Config:    cfg,
		Scanner:   sc,
		Segmenter: chunk.NewSegmenter(cfg.MaxChunkTokens, cfg.MinChunkTokens),
		Embedder:  embedder,
		Store:     store,
	})
	if err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, nil, err
	}

	if err := idx.Init(ctx); err != nil {
		_ = idx.Close()
		_ = store.Close()
		return nil, nil, err
	}
	return &cliIndexer{Indexer: idx, store: store}, cfg, nil
}

// newEmbedder selects the Ollama embedder unless offline is set or no
// model is configured, falling back to the dependency-free static
// embedder either way on error so indexing never hard-fails for lack of
// a local model server. The result is wrapped in an LRU query cache: the
// same query text re-embedded across repeated `search` invocations (or the
// same chunk text recurring across files during indexing) is hashed once.
func newEmbedder(ctx context.Context, cfg *config.Config, offline bool) (embed.Embedder, error) {
	if offline || cfg.EmbeddingModel == "" {
		return embed.NewCachedEmbedderWithDefaults(embed.NewStaticEmbedder()), nil
	}

	ollamaCfg := embed.DefaultOllamaConfig()
	ollamaCfg.Model = cfg.EmbeddingModel
	emb, err := embed.NewOllamaEmbedder(ctx, ollamaCfg)
	if err != nil {
		return embed.NewCachedEmbedderWithDefaults(embed.NewStaticEmbedder()), nil
	}
	return embed.NewCachedEmbedderWithDefaults(emb), nil
}

// newStore selects the Qdrant-backed store when cfg names an endpoint,
// otherwise the embedded HNSW store persisted under the cache directory.
func newStore(cfg *config.Config) (vectorstore.Store, error) {
	if cfg.QdrantURL != "" {
		host, port, err := splitHostPort(cfg.QdrantURL)
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant_url %q: %w", cfg.QdrantURL, err)
		}
		return vectorstore.NewQdrantStore(host, port, cfg.CollectionName)
	}
	return vectorstore.NewHNSWStore(cfg.AbsCachePath() + ".hnsw"), nil
}

// splitHostPort parses a "host:port" endpoint into its parts.
func splitHostPort(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, port, nil
}
