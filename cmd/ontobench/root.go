package main

import (
	"log/slog"

	"github.com/ontobench/ontobench/internal/utils"
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ontobench",
		Short: "ontobench - benchmark ontology enrichment methods",
		Long: `ontobench is a command-line tool for benchmarking ontology enrichment methods.

It draws combinations of categories from an annotated population, synthesizes
noisy study sets with a known ground truth, runs every selected method on
them and records per-category scores and per-method timings.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		slog.SetDefault(utils.NewLogger(cmd.ErrOrStderr(), *debugLogging))
	}

	// Add subcommands
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newMethodsCommand())
	cmd.AddCommand(newSummarizeCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
