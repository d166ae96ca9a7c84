package bench

import (
	"context"
	"fmt"
	"sort"

	"github.com/vectorgrep/vgrep/internal/embed"
)

const topN = 100

// Harness embeds a dataset's corpus and queries through an embedder,
// caching each matrix to disk, and runs exact brute-force retrieval to
// produce a metrics report.
type Harness struct {
	embedder embed.Embedder
	cacheDir string
	provider string
}

// New builds a Harness. cacheDir may be empty to disable matrix caching.
func New(embedder embed.Embedder, cacheDir string) *Harness {
	return &Harness{
		embedder: embedder,
		cacheDir: cacheDir,
		provider: embedder.ModelName(),
	}
}

// Run embeds dataset.Corpus and dataset.Queries, retrieves the top-100
// corpus items per query by cosine similarity (dot product, since
// embeddings are unit-norm), and averages MRR/NDCG/Recall at each of
// Cutoffs over every query that has qrels. Recall additionally skips
// queries with zero positive judgments.
func (h *Harness) Run(ctx context.Context, dataset string, data *Dataset) (*Report, error) {
	corpusTexts := make([]string, len(data.Corpus))
	for i, item := range data.Corpus {
		corpusTexts[i] = corpusText(item)
	}
	corpusVecs, err := h.embedMatrix(ctx, dataset, "corpus", corpusTexts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed corpus: %w", err)
	}

	queryTexts := make([]string, len(data.Queries))
	for i, q := range data.Queries {
		queryTexts[i] = q.Text
	}
	queryVecs, err := h.embedMatrix(ctx, dataset, "queries", queryTexts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed queries: %w", err)
	}

	corpusIDs := make([]string, len(data.Corpus))
	for i, item := range data.Corpus {
		corpusIDs[i] = item.ID
	}

	sums := map[int]float64{}
	ndcgSums := map[int]float64{}
	recallSums := map[int]float64{}
	recallCounts := map[int]int{}
	evaluated := 0

	for qi, q := range data.Queries {
		grades, ok := data.Qrels[q.ID]
		if !ok || len(grades) == 0 {
			continue
		}
		evaluated++

		ranked := topMatches(queryVecs[qi], corpusVecs, corpusIDs, topN)
		positive := hasPositive(grades)

		for _, k := range Cutoffs {
			sums[k] += mrrAtK(ranked, grades, k)
			ndcgSums[k] += ndcgAtK(ranked, grades, k)
			if positive {
				recallSums[k] += recallAtK(ranked, grades, k)
				recallCounts[k]++
			}
		}
	}

	report := &Report{
		NumQueries: evaluated,
		MRR:        map[int]float64{},
		NDCG:       map[int]float64{},
		Recall:     map[int]float64{},
	}
	for _, k := range Cutoffs {
		if evaluated > 0 {
			report.MRR[k] = sums[k] / float64(evaluated)
			report.NDCG[k] = ndcgSums[k] / float64(evaluated)
		}
		if recallCounts[k] > 0 {
			report.Recall[k] = recallSums[k] / float64(recallCounts[k])
		}
	}
	return report, nil
}

// embedMatrix returns the embeddings for texts, reading from the disk
// cache when a matching entry exists and writing a fresh one otherwise.
func (h *Harness) embedMatrix(ctx context.Context, dataset, split string, texts []string) ([][]float32, error) {
	dim := h.embedder.Dimensions()

	if h.cacheDir != "" {
		path := MatrixCachePath(h.cacheDir, dataset, split, h.provider, len(texts))
		if vecs, err := LoadMatrix(path, dim, len(texts)); err == nil {
			return vecs, nil
		}
	}

	vecs, err := h.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	if h.cacheDir != "" {
		path := MatrixCachePath(h.cacheDir, dataset, split, h.provider, len(texts))
		if err := SaveMatrix(path, vecs); err != nil {
			return nil, fmt.Errorf("failed to persist matrix cache: %w", err)
		}
	}
	return vecs, nil
}

func corpusText(item CorpusItem) string {
	if item.Title == "" {
		return item.Text
	}
	return item.Title + "\n" + item.Text
}

// topMatches returns the n corpus ids with highest dot-product similarity
// to query, descending.
func topMatches(query []float32, corpus [][]float32, ids []string, n int) []string {
	type scored struct {
		id    string
		score float32
	}
	scores := make([]scored, len(corpus))
	for i, vec := range corpus {
		scores[i] = scored{id: ids[i], score: dot(query, vec)}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if n > len(scores) {
		n = len(scores)
	}
	ranked := make([]string, n)
	for i := 0; i < n; i++ {
		ranked[i] = scores[i].id
	}
	return ranked
}

func dot(a, b []float32) float32 {
	var sum float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
