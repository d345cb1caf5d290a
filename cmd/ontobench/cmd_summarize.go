package main

import (
	"fmt"

	"github.com/ontobench/ontobench/internal/reporting"
	"github.com/spf13/cobra"
)

func newSummarizeCommand() *cobra.Command {
	var seed uint64

	cmd := &cobra.Command{
		Use:   "summarize <result-time.txt>",
		Short: "Summarize the method timings of a benchmark",
		Long: `Summarize a timing file written by 'ontobench run'.

For every method the number of runs and the mean, median and 95th percentile
of its time per run are printed in milliseconds, with a bootstrap 95%
confidence interval of the mean. Gzipped files are accepted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timings, err := reporting.LoadTimings(args[0])
			if err != nil {
				return err
			}
			summaries, err := timings.Summarize(seed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d runs, times in ms\n\n", len(timings.Runs))
			reporting.WriteTimingTable(cmd.OutOrStdout(), summaries)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 42, "Seed of the bootstrap resampling")
	return cmd
}
