package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/attunehq/microbench/matrix"
)

var (
	// Flags shared by matrix and its subcommands
	matrixImage     string
	matrixSuite     string
	matrixOutputDir string
	matrixName      string
	matrixSamples   int
	matrixTimeout   time.Duration
	matrixBinary    string

	// Flags for matrix command
	matrixConfigs string
)

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Run a suite across multiple CPU/RAM configurations",
	Long: `Run a benchmark suite across multiple CPU/RAM configurations in Docker containers.

Each configuration gets a fresh container limited to the given CPUs and memory.
The suite runs inside it with history disabled, and the per-benchmark means are
collected into a summary comparing the configurations.`,
	Example: `  microbench matrix \
    --image golang:1.24 \
    --suite bench.toml \
    --samples 500 \
    --configs "2:8,4:16,8:32"`,
	RunE: runMatrix,
}

func init() {
	matrixCmd.PersistentFlags().StringVar(&matrixImage, "image", "", "Docker image to use (required)")
	matrixCmd.PersistentFlags().StringVar(&matrixSuite, "suite", "", "TOML suite file to run in each container (required)")
	matrixCmd.PersistentFlags().StringVar(&matrixOutputDir, "output-dir", "./matrix-results", "Directory to save output files")
	matrixCmd.PersistentFlags().StringVar(&matrixName, "name", "", "Matrix name for reports (default: timestamp)")
	matrixCmd.PersistentFlags().IntVarP(&matrixSamples, "samples", "n", 0, "Override the suite's sample limits")
	matrixCmd.PersistentFlags().DurationVar(&matrixTimeout, "timeout", 0, "Override the suite's time limits")
	matrixCmd.PersistentFlags().StringVar(&matrixBinary, "binary", "", "Prebuilt Linux microbench binary (default: build one)")

	matrixCmd.Flags().StringVar(&matrixConfigs, "configs", "", "CPU:RAM configurations (e.g., '2:8,4:16,8:32') (required)")

	// Mark required flags
	matrixCmd.MarkPersistentFlagRequired("image")
	matrixCmd.MarkPersistentFlagRequired("suite")
	matrixCmd.MarkFlagRequired("configs")

	// Register with root command
	rootCmd.AddCommand(matrixCmd)
}

func runMatrix(cmd *cobra.Command, args []string) error {
	// Parse configurations
	resourceConfigs, err := matrix.ParseConfigs(matrixConfigs)
	if err != nil {
		return fmt.Errorf("error parsing configs: %w", err)
	}
	return runMatrixBenchmark(cmd, "matrix", resourceConfigs)
}

// newMatrixConfig assembles the shared flags into a matrix configuration.
// kind prefixes the default name.
func newMatrixConfig(cmd *cobra.Command, kind string, configs []matrix.ResourceConfig) (matrix.Config, error) {
	if _, err := os.Stat(matrixSuite); err != nil {
		return matrix.Config{}, fmt.Errorf("error reading suite: %w", err)
	}

	// Generate matrix name if not provided
	matrixRunName := matrixName
	if matrixRunName == "" {
		matrixRunName = fmt.Sprintf("%s_%s", kind, time.Now().Format("20060102_150405"))
	}

	return matrix.Config{
		Image:     matrixImage,
		SuitePath: matrixSuite,
		OutputDir: matrixOutputDir,
		Name:      matrixRunName,
		Configs:   configs,
		Samples:   matrixSamples,
		Timeout:   matrixTimeout,
		Logger:    newLogger(cmd.ErrOrStderr(), debug),
	}, nil
}

// runMatrixBenchmark is a shared function to run matrix benchmarks
func runMatrixBenchmark(cmd *cobra.Command, kind string, configs []matrix.ResourceConfig) error {
	config, err := newMatrixConfig(cmd, kind, configs)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	// Set up context with cancellation on interrupt
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(out, "\nReceived interrupt signal, cleaning up...")
			cancel()
		case <-ctx.Done():
		}
	}()

	binaryPath := matrixBinary
	if binaryPath == "" {
		// Build the static binary for Linux containers
		binaryPath = filepath.Join(os.TempDir(), "microbench-linux")
		if err := matrix.BuildStaticBinary(binaryPath); err != nil {
			return fmt.Errorf("error building static binary: %w", err)
		}
		defer os.Remove(binaryPath)
	}

	// Run the matrix benchmark
	result, err := matrix.Run(ctx, config, binaryPath)
	if err != nil {
		return fmt.Errorf("error running matrix benchmark: %w", err)
	}

	// Display summary table and graph
	matrix.PrintSummaryTable(out, result)
	matrix.PrintScalingGraph(out, result)

	jsonPath := filepath.Join(config.OutputDir, fmt.Sprintf("%s_summary.json", config.Name))
	if err := matrix.SaveSummaryJSON(result, jsonPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to save JSON output: %v\n", err)
	} else {
		fmt.Fprintf(out, "JSON summary saved to: %s\n", jsonPath)
	}

	csvPath := filepath.Join(config.OutputDir, fmt.Sprintf("%s_summary.csv", config.Name))
	if err := matrix.SaveSummaryCSV(result, csvPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to save CSV output: %v\n", err)
	} else {
		fmt.Fprintf(out, "CSV summary saved to: %s\n", csvPath)
	}

	mdPath := filepath.Join(config.OutputDir, fmt.Sprintf("%s_summary.md", config.Name))
	if err := matrix.SaveSummaryMarkdown(result, mdPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to save Markdown output: %v\n", err)
	} else {
		fmt.Fprintf(out, "Markdown report saved to: %s\n", mdPath)
	}

	if result.Failed() {
		return fmt.Errorf("one or more configurations failed")
	}
	return nil
}
