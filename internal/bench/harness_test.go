package bench

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorgrep/vgrep/internal/embed"
)

func sampleDataset() *Dataset {
	return &Dataset{
		Corpus: []CorpusItem{
			{ID: "doc1", Text: "func ParseConfig reads configuration from a yaml file"},
			{ID: "doc2", Text: "func Dial opens a network connection to a remote host"},
			{ID: "doc3", Text: "func HashPassword computes a bcrypt hash of a password"},
		},
		Queries: []Query{
			{ID: "q1", Text: "how do I read configuration from yaml"},
			{ID: "q2", Text: "open a network connection"},
		},
		Qrels: Qrels{
			"q1": {"doc1": 1},
			"q2": {"doc2": 1},
		},
	}
}

func TestHarness_Run_ReportsMetricsForQueriesWithQrels(t *testing.T) {
	h := New(embed.NewStaticEmbedder(), "")
	report, err := h.Run(context.Background(), "testset", sampleDataset())
	require.NoError(t, err)

	assert.Equal(t, 2, report.NumQueries)
	for _, k := range Cutoffs {
		assert.GreaterOrEqual(t, report.MRR[k], 0.0)
		assert.LessOrEqual(t, report.MRR[k], 1.0)
		assert.GreaterOrEqual(t, report.NDCG[k], 0.0)
		assert.GreaterOrEqual(t, report.Recall[k], 0.0)
	}
	assert.Equal(t, 1.0, report.MRR[100])
	assert.Equal(t, 1.0, report.Recall[100])
}

func TestHarness_Run_SkipsQueriesWithoutQrels(t *testing.T) {
	data := sampleDataset()
	data.Queries = append(data.Queries, Query{ID: "q-no-judgments", Text: "irrelevant query"})

	h := New(embed.NewStaticEmbedder(), "")
	report, err := h.Run(context.Background(), "testset", data)
	require.NoError(t, err)

	assert.Equal(t, 2, report.NumQueries)
}

func TestHarness_Run_UsesMatrixCacheAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	data := sampleDataset()

	h := New(embed.NewStaticEmbedder(), dir)
	first, err := h.Run(context.Background(), "cached-set", data)
	require.NoError(t, err)

	corpusPath := MatrixCachePath(dir, "cached-set", "corpus", h.provider, len(data.Corpus))
	require.FileExists(t, corpusPath)

	second, err := h.Run(context.Background(), "cached-set", data)
	require.NoError(t, err)
	assert.Equal(t, first.MRR, second.MRR)
}

func TestTopMatches_RanksByDotProductDescending(t *testing.T) {
	corpus := [][]float32{{1, 0}, {0, 1}, {0.7, 0.7}}
	ids := []string{"a", "b", "c"}

	ranked := topMatches([]float32{1, 0}, corpus, ids, 3)
	assert.Equal(t, []string{"a", "c", "b"}, ranked)
}

func TestTopMatches_LimitsToN(t *testing.T) {
	corpus := [][]float32{{1, 0}, {0, 1}, {0.5, 0.5}}
	ids := []string{"a", "b", "c"}

	ranked := topMatches([]float32{1, 0}, corpus, ids, 2)
	assert.Len(t, ranked, 2)
}
