package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ontobench/ontobench/internal/config"
	"github.com/ontobench/ontobench/internal/models"
	"github.com/ontobench/ontobench/internal/utils"
	"github.com/spf13/cobra"
)

func newMethodsCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "methods",
		Short: "List the benchmarkable methods",
		Long: `List the builtin methods and the custom methods declared in the
configuration file. Methods marked with * run when none are selected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadMethodsConfig(configPath)
			if err != nil {
				return &ConfigError{Err: err}
			}
			custom, err := cfg.CustomMethods()
			if err != nil {
				return &ConfigError{Err: err}
			}
			for _, line := range methodTable(models.Merge(models.Catalog(), custom)) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Benchmark configuration file (default: discover .ontobench.yaml)")
	return cmd
}

func loadMethodsConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.Discover(".")
}

func methodTable(methods []models.Method) []string {
	rows := [][]string{{"method", "calculation", "options"}}
	for _, m := range methods {
		name := m.Abbrev
		if slices.Contains(models.DefaultMethods, m.Abbrev) {
			name += " *"
		}
		rows = append(rows, []string{name, m.Calculation, strings.Join(methodOptions(m), ",")})
	}
	return utils.Table(rows)
}

func methodOptions(m models.Method) []string {
	var opts []string
	add := func(on bool, name string) {
		if on {
			opts = append(opts, name)
		}
	}
	add(!m.UsePrior, "no-prior")
	add(m.PopulationAsReference, "population")
	add(m.RandomStart, "random-start")
	add(m.IntegrateParams, "integrate")
	add(m.EM, "em")
	add(m.MCMC, "mcmc")
	add(m.MaxBeta, "max-beta")
	add(m.CorrectExpectedTerms, "correct-expected")
	add(m.DealWithValues, "values")
	if m.Correction != "" {
		opts = append(opts, "correction="+m.Correction)
	}
	if m.DesiredTerms > 0 {
		opts = append(opts, fmt.Sprintf("alpha=%g,beta=%g,terms=%d", m.Alpha, m.Beta, m.DesiredTerms))
	}
	return opts
}
