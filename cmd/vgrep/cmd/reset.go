package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vectorgrep/vgrep/internal/errors"
	"github.com/vectorgrep/vgrep/internal/output"
)

func newResetCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard the index, embedding cache, and merkle summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(cmd, root)
		},
	}
	cmd.Flags().StringVar(&root, "path", ".", "project root to reset")
	return cmd
}

func runReset(cmd *cobra.Command, root string) error {
	out := output.New(cmd.OutOrStdout())
	ctx := cmd.Context()

	idx, _, err := buildIndexer(ctx, root, true)
	if err != nil {
		out.Error(errors.FormatForCLI(err))
		return err
	}
	defer func() { _ = idx.Close() }()

	if err := idx.Reset(ctx); err != nil {
		out.Error(errors.FormatForCLI(err))
		return err
	}

	out.Success("index reset")
	return nil
}
