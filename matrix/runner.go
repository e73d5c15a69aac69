package matrix

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/attunehq/microbench/benchmark"
)

const (
	containerBinary  = "/workspace/microbench"
	containerSuite   = "/workspace/suite.toml"
	containerResults = "/workspace/results"

	// reportName is the --name given to the inner run; its JSON report is
	// <reportName>.json.
	reportName = "report"
)

// Run executes the suite in every configuration sequentially.
// binaryPath should be a path to a Linux-compatible microbench binary.
func Run(ctx context.Context, config Config, binaryPath string) (*MatrixResult, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	result := &MatrixResult{
		Config:  config,
		Results: make([]ConfigResult, 0, len(config.Configs)),
	}

	dockerClient, err := NewDockerClient(logger)
	if err != nil {
		return nil, err
	}
	defer dockerClient.Close()

	fmt.Printf("Checking Docker image: %s\n", config.Image)
	if err := dockerClient.EnsureImage(ctx, config.Image); err != nil {
		return nil, fmt.Errorf("failed to ensure Docker image: %w", err)
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "microbench-matrix-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	logger.Debug("created temp directory", "path", tmpDir)

	fmt.Printf("\nMatrix Benchmark\n")
	fmt.Printf("================\n")
	fmt.Printf("Image:      %s\n", config.Image)
	fmt.Printf("Suite:      %s\n", config.SuitePath)
	fmt.Printf("Configs:    %d configurations\n\n", len(config.Configs))

	for i, resourceCfg := range config.Configs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
		fmt.Printf("Configuration %d/%d: %s\n", i+1, len(config.Configs), resourceCfg.String())
		fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

		configResult := runSingleConfig(ctx, dockerClient, config, resourceCfg, binaryPath, tmpDir, logger)
		result.Results = append(result.Results, configResult)

		if configResult.Success {
			fmt.Printf("\n✓ Configuration %d/%d completed in %s\n\n", i+1, len(config.Configs), configResult.Duration.Round(time.Second))
		} else {
			fmt.Printf("\n✗ Configuration %d/%d failed: %s\n\n", i+1, len(config.Configs), configResult.Error)
		}
	}

	return result, nil
}

// runSingleConfig runs the suite for a single CPU/RAM configuration
func runSingleConfig(
	ctx context.Context,
	dockerClient *DockerClient,
	config Config,
	resourceCfg ResourceConfig,
	binaryPath string,
	tmpDir string,
	logger *slog.Logger,
) ConfigResult {
	result := ConfigResult{Config: resourceCfg}
	logger = logger.With("config", resourceCfg.DirName())

	workspaceDir := filepath.Join(tmpDir, resourceCfg.DirName())
	if err := os.MkdirAll(workspaceDir, 0755); err != nil {
		result.Error = fmt.Sprintf("failed to create workspace directory: %v", err)
		return result
	}

	outputDir := filepath.Join(config.OutputDir, resourceCfg.DirName())
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		result.Error = fmt.Sprintf("failed to create output directory: %v", err)
		return result
	}

	fmt.Printf("  Starting container with %d CPUs, %d GB RAM...\n", resourceCfg.CPUs, resourceCfg.Memory)
	container, err := dockerClient.CreateContainer(ctx, ContainerConfig{
		Image:     config.Image,
		CPUs:      resourceCfg.CPUs,
		Memory:    resourceCfg.Memory,
		MountPath: workspaceDir,
	})
	if err != nil {
		result.Error = fmt.Sprintf("failed to create container: %v", err)
		return result
	}

	// Cleanup must outlive an interrupted ctx.
	defer func() {
		fmt.Printf("  Stopping and removing container...\n")
		if err := container.Stop(context.WithoutCancel(ctx)); err != nil {
			fmt.Printf("  Warning: failed to stop container: %v\n", err)
		}
	}()

	fmt.Printf("  Container started: %s\n", shortID(container.ID))

	if err := container.CopyFileToContainer(ctx, binaryPath, containerBinary); err != nil {
		result.Error = fmt.Sprintf("failed to copy binary to container: %v", err)
		return result
	}
	if err := container.CopyFileToContainer(ctx, config.SuitePath, containerSuite); err != nil {
		result.Error = fmt.Sprintf("failed to copy suite to container: %v", err)
		return result
	}

	setup := fmt.Sprintf("chmod +x %s && mkdir -p %s", containerBinary, containerResults)
	setupResult, err := container.ExecShell(ctx, setup, "/workspace")
	if err != nil {
		result.Error = fmt.Sprintf("failed to prepare container: %v", err)
		return result
	}
	if setupResult.ExitCode != 0 {
		result.Error = fmt.Sprintf("failed to prepare container (exit code %d): %s", setupResult.ExitCode, strings.TrimSpace(setupResult.Stderr))
		return result
	}

	benchmarkCmd := innerCommand(config)
	logger.Debug("running suite", "cmd", benchmarkCmd)

	startTime := time.Now()
	benchResult, err := container.ExecShell(ctx, benchmarkCmd, "/workspace")
	result.Duration = time.Since(startTime)
	if err != nil {
		result.Error = fmt.Sprintf("failed to execute benchmark: %v", err)
		return result
	}
	fmt.Print(benchResult.Stdout)

	if err := container.CopyDirFromContainer(ctx, containerResults, outputDir); err != nil {
		result.Error = fmt.Sprintf("failed to copy results from container: %v", err)
		return result
	}

	jsonPath := filepath.Join(outputDir, reportName+".json")
	benchmarks, err := parseReport(jsonPath)
	if err != nil {
		logger.Warn("failed to parse report", "path", jsonPath, "error", err)
		result.Error = fmt.Sprintf("benchmark failed (exit code %d): %s", benchResult.ExitCode, strings.TrimSpace(benchResult.Stderr))
		return result
	}

	result.Benchmarks = benchmarks
	result.Success = true
	return result
}

// innerCommand is the microbench invocation run inside each container.
func innerCommand(config Config) string {
	args := []string{
		containerBinary,
		"--suite", containerSuite,
		"--output-dir", containerResults,
		"--name", reportName,
		"--no-history",
		"--no-color",
	}
	if config.Samples > 0 {
		args = append(args, "--samples", strconv.Itoa(config.Samples))
	}
	if config.Timeout > 0 {
		args = append(args, "--timeout", config.Timeout.String())
	}
	return strings.Join(args, " ")
}

// parseReport reads a JSON report into per-benchmark results
func parseReport(jsonPath string) ([]BenchResult, error) {
	report, err := benchmark.LoadJSON(jsonPath)
	if err != nil {
		return nil, err
	}

	out := make([]BenchResult, 0, len(report.Benchmarks))
	for _, entry := range report.Benchmarks {
		out = append(out, BenchResult{
			Name:  entry.Name,
			Stats: entry.Stats,
			Error: entry.Error,
		})
	}
	return out, nil
}

// BuildStaticBinary builds a static binary for Linux that can run in Docker containers
func BuildStaticBinary(outputPath string) error {
	fmt.Printf("Building static binary for Linux...\n")

	modRoot, err := getModuleRoot()
	if err != nil {
		return fmt.Errorf("failed to get module root: %w", err)
	}

	cmd := exec.Command("go", "build",
		"-o", outputPath,
		"-ldflags", "-s -w",
		".",
	)
	cmd.Dir = modRoot
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=0",
		"GOOS=linux",
		"GOARCH=amd64",
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to build binary: %w\nOutput: %s", err, string(output))
	}

	fmt.Printf("Static binary built: %s\n", outputPath)
	return nil
}

// getModuleRoot walks up from the working directory looking for go.mod
func getModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("could not find go.mod in parent directories")
}
