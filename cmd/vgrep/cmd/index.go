package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vectorgrep/vgrep/internal/errors"
	"github.com/vectorgrep/vgrep/internal/output"
)

type indexOptions struct {
	offline bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Build or update the semantic index for a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runIndex(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.offline, "offline", false, "use the static embedder, skipping Ollama")
	return cmd
}

func runIndex(cmd *cobra.Command, root string, opts indexOptions) error {
	out := output.New(cmd.OutOrStdout())
	ctx := cmd.Context()

	idx, cfg, err := buildIndexer(ctx, root, opts.offline)
	if err != nil {
		out.Error(errors.FormatForCLI(err))
		return err
	}
	defer func() { _ = idx.Close() }()

	out.Statusf("", "indexing %s", cfg.RootDir)
	sink := &cliProgress{out: out}
	stats, err := idx.Index(ctx, sink)
	if err != nil {
		out.Error(errors.FormatForCLI(err))
		return err
	}

	out.Successf("indexed %d files, %d chunks (%d new, %d cached) in %dms",
		stats.TotalFiles, stats.TotalChunks, stats.NewChunks, stats.CachedChunks, stats.ElapsedMS)
	return nil
}

// cliProgress renders indexer.ProgressSink events to the CLI.
type cliProgress struct {
	out *output.Writer
}

func (p *cliProgress) Stage(name string) {
	p.out.Statusf("", "%s...", name)
}

func (p *cliProgress) FileSkipped(path string, err error) {
	p.out.Warningf("skipped %s: %s", path, err)
}

func (p *cliProgress) Warn(message string, err error) {
	p.out.Warningf("%s: %s", message, err)
}
