package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attunehq/microbench/matrix"
)

var (
	allCpus string
	allRams string
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run a suite across a full CPU x RAM grid",
	Long: `Run a benchmark suite across all combinations of CPU and RAM values.

This command tests every combination of the specified CPU and RAM values,
giving a complete picture of how both resources affect each benchmark.`,
	Example: `  microbench matrix all \
    --image golang:1.24 \
    --suite bench.toml \
    --cpus "2,4,8" \
    --rams "8,16"

This will test 6 configurations (3 CPUs x 2 RAMs).`,
	RunE: runAll,
}

func init() {
	allCmd.Flags().StringVar(&allCpus, "cpus", "", "CPU values to test (e.g., '2,4,8,16') (required)")
	allCmd.Flags().StringVar(&allRams, "rams", "", "RAM values in GB to test (e.g., '8,16,32,64') (required)")

	allCmd.MarkFlagRequired("cpus")
	allCmd.MarkFlagRequired("rams")

	matrixCmd.AddCommand(allCmd)
}

func runAll(cmd *cobra.Command, args []string) error {
	// Parse CPU list
	cpuList, err := matrix.ParseIntList(allCpus)
	if err != nil {
		return fmt.Errorf("error parsing cpus: %w", err)
	}

	// Parse RAM list
	ramList, err := matrix.ParseIntList(allRams)
	if err != nil {
		return fmt.Errorf("error parsing rams: %w", err)
	}

	// Generate full grid configurations (CPU first, then RAM)
	return runMatrixBenchmark(cmd, "all", matrix.GenerateGridConfigs(cpuList, ramList))
}
