package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vectorgrep/vgrep/internal/errors"
	"github.com/vectorgrep/vgrep/internal/output"
)

type searchOptions struct {
	limit   int
	root    string
	offline bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed codebase by meaning",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().StringVar(&opts.root, "path", ".", "project root to search")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "use the static embedder, skipping Ollama")
	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	out := output.New(cmd.OutOrStdout())
	ctx := cmd.Context()

	idx, _, err := buildIndexer(ctx, opts.root, opts.offline)
	if err != nil {
		out.Error(errors.FormatForCLI(err))
		return err
	}
	defer func() { _ = idx.Close() }()

	results, err := idx.Search(ctx, query, opts.limit)
	if err != nil {
		out.Error(errors.FormatForCLI(err))
		return err
	}

	if len(results) == 0 {
		out.Statusf("", "no results for %q", query)
		return nil
	}

	out.Statusf("", "%d results for %q:", len(results), query)
	out.Newline()
	for i, r := range results {
		location := fmt.Sprintf("%s:%d-%d", r.Path, r.StartLine, r.EndLine)
		out.Statusf("", "%d. %s (score: %.3f)", i+1, location, r.Score)
		for _, line := range snippet(r.Text, 3) {
			out.Status("", "   "+line)
		}
		out.Newline()
	}
	return nil
}

func snippet(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
