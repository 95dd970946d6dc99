package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &runOptions{}

	rootCmd := &cobra.Command{
		Use:          "forge",
		Short:        "Materialize property graphs and compute connected sets",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file path (optional, FORGE_* env vars always apply)")
	rootCmd.PersistentFlags().StringVar(&opts.edgesPath, "edges", "", "Read an edge-list CSV instead of Neo4j")
	rootCmd.PersistentFlags().StringVar(&opts.direction, "direction", "", "Relationship direction: OUTGOING, INCOMING or BOTH")
	rootCmd.PersistentFlags().StringVar(&opts.weightProperty, "weight-property", "", "Relationship property read as weight")
	rootCmd.PersistentFlags().Float64Var(&opts.defaultWeight, "default-weight", 0, "Weight of relationships without the property")
	rootCmd.PersistentFlags().StringVar(&opts.variant, "variant", "", "Graph variant: auto, heavy or huge")
	rootCmd.PersistentFlags().IntVar(&opts.concurrency, "concurrency", 0, "Partitions processed at once (default: number of CPUs)")
	rootCmd.PersistentFlags().Int64Var(&opts.batchSize, "batch-size", 0, "Nodes per partition")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonReport, "json", false, "Output the run report as JSON")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Import a graph and report its size",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, opts)
		},
	}

	componentsCmd := &cobra.Command{
		Use:   "components",
		Short: "Import a graph and compute its connected sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComponents(cmd, opts)
		},
	}
	componentsCmd.Flags().StringVar(&opts.strategy, "strategy", "", "Union-find strategy: sequential, parallel or pipelined")
	componentsCmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Only relationships heavier than this connect nodes")
	componentsCmd.Flags().IntVar(&opts.top, "top", 10, "Number of largest sets in the report")
	componentsCmd.Flags().BoolVar(&opts.stream, "stream", false, "Write one JSON record per node to stdout instead of a report")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the forge version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "forge %s\n", version)
		},
	}

	rootCmd.AddCommand(loadCmd, componentsCmd, versionCmd)
	return rootCmd
}
