package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vectorgrep/vgrep/internal/bench"
	"github.com/vectorgrep/vgrep/internal/embed"
	"github.com/vectorgrep/vgrep/internal/errors"
	"github.com/vectorgrep/vgrep/internal/output"
)

type benchOptions struct {
	dataset    string
	cacheDir   string
	maxCorpus  int
	maxQueries int
	offline    bool
}

func newBenchCmd() *cobra.Command {
	var opts benchOptions

	cmd := &cobra.Command{
		Use:   "bench <dataset-dir>",
		Short: "Run the retrieval-quality benchmark harness against a labeled dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.dataset = args[0]
			return runBench(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.cacheDir, "cache-dir", "", "directory to cache embedding matrices in")
	cmd.Flags().IntVar(&opts.maxCorpus, "max-corpus", 0, "cap the corpus size, preserving ground truth (0 = no cap)")
	cmd.Flags().IntVar(&opts.maxQueries, "max-queries", 0, "cap the number of queries evaluated (0 = no cap)")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "use the static embedder, skipping Ollama")
	return cmd
}

func runBench(cmd *cobra.Command, opts benchOptions) error {
	out := output.New(cmd.OutOrStdout())
	ctx := cmd.Context()

	data, err := bench.LoadDataset(opts.dataset)
	if err != nil {
		out.Error(errors.FormatForCLI(err))
		return err
	}

	data = bench.CapCorpus(data, opts.maxCorpus)
	data.Queries = bench.CapQueries(data.Queries, opts.maxQueries)

	embedder, err := benchEmbedder(ctx, opts.offline)
	if err != nil {
		out.Error(errors.FormatForCLI(err))
		return err
	}
	defer func() { _ = embedder.Close() }()

	out.Statusf("", "running benchmark over %d corpus items, %d queries", len(data.Corpus), len(data.Queries))
	report, err := bench.New(embedder, opts.cacheDir).Run(ctx, opts.dataset, data)
	if err != nil {
		out.Error(errors.FormatForCLI(err))
		return err
	}

	printReport(out, report)
	return nil
}

// benchEmbedder builds a standalone embedder for benchmarking, bypassing
// config.Load since a dataset directory isn't necessarily a vgrep project.
func benchEmbedder(ctx context.Context, offline bool) (embed.Embedder, error) {
	if offline {
		return embed.NewStaticEmbedder(), nil
	}
	ollamaCfg := embed.DefaultOllamaConfig()
	emb, err := embed.NewOllamaEmbedder(ctx, ollamaCfg)
	if err != nil {
		return embed.NewStaticEmbedder(), nil
	}
	return emb, nil
}

func printReport(out *output.Writer, report *bench.Report) {
	out.Statusf("", "evaluated %d queries", report.NumQueries)
	for _, k := range bench.Cutoffs {
		out.Status("", fmt.Sprintf("  @%-4d MRR=%.4f  NDCG=%.4f  Recall=%.4f",
			k, report.MRR[k], report.NDCG[k], report.Recall[k]))
	}
}
