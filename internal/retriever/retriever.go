// Package retriever answers semantic search queries against an already
// built index: embed the query, ask the vector store for the nearest
// chunks, then re-read the live file on disk for the text to display.
package retriever

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vectorgrep/vgrep/internal/embed"
	"github.com/vectorgrep/vgrep/internal/vectorstore"
)

// Result is one ranked hit, with its text re-read from the live file
// rather than stored in the vector index.
type Result struct {
	Path       string
	StartLine  int
	EndLine    int
	Score      float32
	NodeKind   string
	SymbolName string
	Text       string
}

// Retriever embeds queries with the same provider the index was built
// with and searches a single vector store for matches.
type Retriever struct {
	rootDir  string
	embedder embed.Embedder
	store    vectorstore.Store
}

// New returns a Retriever bound to rootDir (used to resolve payload
// paths back to files on disk), embedder, and store.
func New(rootDir string, embedder embed.Embedder, store vectorstore.Store) *Retriever {
	return &Retriever{rootDir: rootDir, embedder: embedder, store: store}
}

// Search embeds query, fetches the k nearest chunks from the store, and
// fills in each result's Text by slicing the current on-disk content at
// the chunk's line range. A file that no longer exists yields a
// synthetic placeholder rather than an error, so one stale hit doesn't
// fail the whole search.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]Result, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := r.store.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("vector store search failed: %w", err)
	}

	results := make([]Result, len(hits))
	for i, hit := range hits {
		results[i] = Result{
			Path:       hit.Payload.Path,
			StartLine:  hit.Payload.StartLine,
			EndLine:    hit.Payload.EndLine,
			Score:      hit.Score,
			NodeKind:   hit.Payload.NodeKind,
			SymbolName: hit.Payload.SymbolName,
			Text:       r.readLines(hit.Payload.Path, hit.Payload.StartLine, hit.Payload.EndLine),
		}
	}
	return results, nil
}

// readLines slices lines start..=end (1-based, inclusive, clamped to
// the file's actual length) from the live file at path.
func (r *Retriever) readLines(path string, start, end int) string {
	f, err := os.Open(filepath.Join(r.rootDir, path))
	if err != nil {
		return fmt.Sprintf("[file not found: %s]", path)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if line >= start && line <= end {
			lines = append(lines, scanner.Text())
		}
		if line >= end {
			break
		}
	}

	if len(lines) == 0 {
		return ""
	}
	text := lines[0]
	for _, l := range lines[1:] {
		text += "\n" + l
	}
	return text
}
