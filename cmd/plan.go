package cmd

import (
	"github.com/spf13/cobra"

	"conductor/internal/config"
	"conductor/internal/dependency"
	"conductor/internal/formatting"
	"conductor/pkg/logging"
)

var planOutput string

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the resolved start order without starting anything",
		Long: `Loads and validates the configuration, resolves the dependency graph and
prints the start order, the dependency level of every service and the
services that can never start because a dependency is not declared.

A dependency cycle is reported as an error with exit code 2.`,
		Args: cobra.NoArgs,
		RunE: runPlan,
	}
	cmd.Flags().StringVarP(&planOutput, "output", "o", "table", "Output format: table, json or yaml")
	return cmd
}

func runPlan(cmd *cobra.Command, args []string) error {
	format, err := formatting.ParseFormat(planOutput)
	if err != nil {
		return err
	}

	level := logging.LevelWarn
	if debug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, cmd.ErrOrStderr())

	cfg, _, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	plan, err := dependency.Resolve(dependency.BuildGraph(cfg.Services))
	if err != nil {
		return err
	}

	f := formatting.New(formatting.Options{Format: format})
	return f.FormatPlan(cmd.OutOrStdout(), cfg, plan)
}
