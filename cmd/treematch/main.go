// Package main provides the treematch CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/treematch/pkg/config"
	"github.com/Sumatoshi-tech/treematch/pkg/observability"
	"github.com/Sumatoshi-tech/treematch/pkg/version"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "treematch",
		Short: "Compute node mappings between two syntax trees",
		Long: `treematch maps the nodes of a source tree onto the nodes of a destination tree.

Trees are read from Go, Java, JavaScript or Python files, or from tree documents
in JSON or YAML. Matching runs a greedy top-down pass over identical subtrees and
then a bottom-up pass that matches containers by the share of their mapped
descendants.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is .treematch.yaml in . or $HOME)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(matchCmd(flags))
	rootCmd.AddCommand(parseCmd(flags))
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// runtime bundles what a command needs after configuration is loaded.
type runtime struct {
	cfg       *config.Config
	providers observability.Providers
	metrics   *observability.MatchMetrics
}

func setupRuntime(flags *globalFlags, command string) (*runtime, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	providers, err := observability.Init(cfg.Observability(version.Version, command, flags.verbose))
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	metrics, err := observability.NewMatchMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return &runtime{cfg: cfg, providers: providers, metrics: metrics}, nil
}

func (rt *runtime) shutdown() {
	err := rt.providers.Shutdown(context.Background())
	if err != nil {
		rt.providers.Logger.Warn("telemetry shutdown failed", "error", err)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "treematch %s\n", version.String())
		},
	}
}
