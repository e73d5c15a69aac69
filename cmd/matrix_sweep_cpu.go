package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attunehq/microbench/matrix"
)

var (
	sweepCPUCpus string
	sweepCPURam  int
)

var sweepCPUCmd = &cobra.Command{
	Use:   "sweep-cpu",
	Short: "Run a suite varying CPU count with fixed RAM",
	Long: `Run a benchmark suite varying CPU count while keeping RAM constant.

This command helps you understand how benchmark means scale with CPU count
for a given memory allocation.`,
	Example: `  microbench matrix sweep-cpu \
    --image golang:1.24 \
    --suite bench.toml \
    --ram 16 \
    --cpus "1,2,4,8"`,
	RunE: runSweepCPU,
}

func init() {
	sweepCPUCmd.Flags().StringVar(&sweepCPUCpus, "cpus", "", "CPU values to test (e.g., '2,4,8,16') (required)")
	sweepCPUCmd.Flags().IntVar(&sweepCPURam, "ram", 0, "Fixed RAM in GB (required)")

	sweepCPUCmd.MarkFlagRequired("cpus")
	sweepCPUCmd.MarkFlagRequired("ram")

	matrixCmd.AddCommand(sweepCPUCmd)
}

func runSweepCPU(cmd *cobra.Command, args []string) error {
	// Parse CPU list
	cpuList, err := matrix.ParseIntList(sweepCPUCpus)
	if err != nil {
		return fmt.Errorf("error parsing cpus: %w", err)
	}

	// Validate RAM
	if sweepCPURam <= 0 {
		return fmt.Errorf("ram must be a positive integer")
	}

	return runMatrixBenchmark(cmd, "sweep-cpu", matrix.GenerateSweepCPUConfigs(cpuList, sweepCPURam))
}
