package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vectorgrep/vgrep/internal/errors"
	"github.com/vectorgrep/vgrep/internal/output"
)

func newStatsCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the current index size",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, root)
		},
	}
	cmd.Flags().StringVar(&root, "path", ".", "project root to inspect")
	return cmd
}

func runStats(cmd *cobra.Command, root string) error {
	out := output.New(cmd.OutOrStdout())
	ctx := cmd.Context()

	idx, cfg, err := buildIndexer(ctx, root, true)
	if err != nil {
		out.Error(errors.FormatForCLI(err))
		return err
	}
	defer func() { _ = idx.Close() }()

	stats, err := idx.GetStats(ctx)
	if err != nil {
		out.Error(errors.FormatForCLI(err))
		return err
	}

	out.Statusf("", "root: %s", cfg.RootDir)
	out.Statusf("", "collection: %s", cfg.CollectionName)
	out.Statusf("", "chunks indexed: %d", stats.TotalChunks)
	return nil
}
