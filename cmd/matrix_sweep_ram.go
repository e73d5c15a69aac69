package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attunehq/microbench/matrix"
)

var (
	sweepRAMRams string
	sweepRAMCpu  int
)

var sweepRAMCmd = &cobra.Command{
	Use:   "sweep-ram",
	Short: "Run a suite varying RAM with fixed CPU count",
	Long: `Run a benchmark suite varying RAM while keeping CPU count constant.

This command helps you understand how benchmark means scale with memory
for a given CPU allocation.`,
	Example: `  microbench matrix sweep-ram \
    --image golang:1.24 \
    --suite bench.toml \
    --cpu 4 \
    --rams "2,4,8,16"`,
	RunE: runSweepRAM,
}

func init() {
	sweepRAMCmd.Flags().StringVar(&sweepRAMRams, "rams", "", "RAM values in GB to test (e.g., '8,16,32') (required)")
	sweepRAMCmd.Flags().IntVar(&sweepRAMCpu, "cpu", 0, "Fixed CPU count (required)")

	sweepRAMCmd.MarkFlagRequired("rams")
	sweepRAMCmd.MarkFlagRequired("cpu")

	matrixCmd.AddCommand(sweepRAMCmd)
}

func runSweepRAM(cmd *cobra.Command, args []string) error {
	// Parse RAM list
	ramList, err := matrix.ParseIntList(sweepRAMRams)
	if err != nil {
		return fmt.Errorf("error parsing rams: %w", err)
	}

	// Validate CPU
	if sweepRAMCpu <= 0 {
		return fmt.Errorf("cpu must be a positive integer")
	}

	return runMatrixBenchmark(cmd, "sweep-ram", matrix.GenerateSweepRAMConfigs(ramList, sweepRAMCpu))
}
