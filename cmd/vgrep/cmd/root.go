// Package cmd provides the CLI commands for vgrep.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vectorgrep/vgrep/internal/logging"
	"github.com/vectorgrep/vgrep/pkg/version"
)

var debugMode bool
var loggingCleanup func()

// NewRootCmd creates the root command for the vgrep CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vgrep",
		Short:   "Local semantic code search",
		Version: version.Short(),
		Long: `vgrep indexes a codebase into AST-aware chunks and searches them by
meaning instead of keyword, entirely on the local filesystem.`,
	}

	cmd.SetVersionTemplate("vgrep version {{.Version}}\n")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newResetCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newBenchCmd())

	return cmd
}

func startLogging(*cobra.Command, []string) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if debugMode {
		logCfg = logging.DebugConfig()
		logCfg.WriteToStderr = true
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func stopLogging(*cobra.Command, []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
