package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/attunehq/microbench/benchmark"
	"github.com/attunehq/microbench/history"
	"github.com/attunehq/microbench/suite"
)

var (
	// Version is set at build time
	Version = "dev"

	// Flags for root command
	commands    []string
	suitePath   string
	samples     int
	timeout     time.Duration
	outputDir   string
	name        string
	metricsFile string
	noColor     bool

	// Persistent flags, shared with subcommands
	configPath  string
	historyPath string
	noHistory   bool
	badgerDir   string
	debug       bool
)

// errBenchFailed is returned after the report is printed when any
// benchmark failed, so the process exits non-zero.
var errBenchFailed = errors.New("one or more benchmarks failed")

var rootCmd = &cobra.Command{
	Use:   "microbench",
	Short: "Statistically robust micro-benchmarks for shell commands",
	Long: `Microbench runs commands many times, prunes outliers from the timings and
reports the mean against the previous run.

Benchmark a few commands:
  microbench -c "git status" -c "ls -la" -n 500

Run a suite file:
  microbench --suite bench.toml --output-dir results

Run a suite across multiple CPU/RAM configurations:
  microbench matrix --image golang:1.24 --suite bench.toml --configs "2:8,4:16"`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runBenchmark,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// SetVersion sets the version string (called from main)
func SetVersion(v string) {
	Version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.Flags().StringArrayVarP(&commands, "command", "c", nil, "Command to benchmark (repeatable)")
	rootCmd.Flags().StringVar(&suitePath, "suite", "", "TOML suite file of benchmarks")
	rootCmd.Flags().IntVarP(&samples, "samples", "n", 0, "Sample limit per benchmark (default 2500, minimum 100)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "Time limit per benchmark (default 10s, minimum 500ms)")
	rootCmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory to save JSON, CSV and Markdown reports")
	rootCmd.Flags().StringVar(&name, "name", "", "Report file name (default: timestamp)")
	rootCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus textfile metrics here")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable coloured output")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&historyPath, "history", "", "History file (default: <tmp>/"+history.DefaultFile+")")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "Neither read nor write run history")
	rootCmd.PersistentFlags().StringVar(&badgerDir, "badger", "", "Keep history in a BadgerDB directory instead of a file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

// loadConfig fills unset flags from MICROBENCH_* variables and --config.
func loadConfig(cmd *cobra.Command, args []string) error {
	return setAllConfig(viper.New(), cmd.Flags(), envPrefix)
}

// openBackend opens the history storage selected by the persistent flags.
func openBackend(logger *slog.Logger) (history.Backend, error) {
	if noHistory {
		return history.Discard{}, nil
	}

	if badgerDir != "" {
		backend, err := history.OpenBadger(history.BadgerConfig{Path: badgerDir, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("error opening history database: %w", err)
		}
		return backend, nil
	}

	fs := afero.NewOsFs()
	path, ok := history.Locate(fs, historyPath, os.TempDir())
	if !ok {
		logger.Warn("no usable history location, history disabled", "history", historyPath)
		return history.Discard{}, nil
	}
	return history.NewFileBackend(fs, path), nil
}

// openHistory loads the history held by the selected backend.
func openHistory(logger *slog.Logger) (*history.History, error) {
	backend, err := openBackend(logger)
	if err != nil {
		return nil, err
	}
	return history.Open(backend, history.WithLogger(logger)), nil
}

// loadSuite builds the suite from --suite or the -c commands, applying the
// sample and time limit overrides.
func loadSuite() (*suite.Suite, error) {
	var s *suite.Suite
	switch {
	case suitePath != "" && len(commands) > 0:
		return nil, fmt.Errorf("use either --command/-c or --suite, not both")
	case suitePath != "":
		loaded, err := suite.Load(suitePath)
		if err != nil {
			return nil, fmt.Errorf("error loading suite: %w", err)
		}
		s = loaded
	default:
		s = &suite.Suite{}
		for _, c := range commands {
			s.Benches = append(s.Benches, suite.Entry{Name: c, Command: c})
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}

	for i := range s.Benches {
		if samples > 0 {
			s.Benches[i].Samples = samples
		}
		if timeout > 0 {
			s.Benches[i].Timeout = suite.Duration(timeout)
		}
	}
	return s, nil
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	// If nothing to run, show help
	if len(commands) == 0 && suitePath == "" {
		return cmd.Help()
	}

	out := cmd.OutOrStdout()
	logger := newLogger(cmd.ErrOrStderr(), debug)

	s, err := loadSuite()
	if err != nil {
		return err
	}

	h, err := openHistory(logger)
	if err != nil {
		return err
	}
	defer h.Close()

	fmt.Fprintf(out, "Running %d benchmark(s)...\n\n", len(s.Benches))

	report, err := s.Run(logger).Report(h)
	if err != nil {
		return fmt.Errorf("error running benchmarks: %w", err)
	}
	h.Save()

	color := !noColor && benchmark.ColorEnabled(out)
	fmt.Fprint(out, benchmark.Render(report, color))

	if err := saveOutputs(out, report); err != nil {
		return err
	}

	if report.Failed() > 0 {
		return errBenchFailed
	}
	return nil
}

// saveOutputs writes the report files and metrics requested by flags.
// Individual write failures are warnings.
func saveOutputs(out io.Writer, report *benchmark.Report) error {
	if metricsFile != "" {
		if err := benchmark.WriteMetrics(report, metricsFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to write metrics: %v\n", err)
		} else {
			fmt.Fprintf(out, "\nMetrics written to: %s\n", metricsFile)
		}
	}

	if outputDir == "" {
		return nil
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	reportName := name
	if reportName == "" {
		reportName = fmt.Sprintf("microbench_%s", report.Started.Format("20060102_150405"))
	}

	jsonPath := filepath.Join(outputDir, reportName+".json")
	if err := benchmark.SaveJSON(report, jsonPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to save JSON output: %v\n", err)
	} else {
		fmt.Fprintf(out, "\nJSON output saved to: %s\n", jsonPath)
	}

	csvPath := filepath.Join(outputDir, reportName+".csv")
	if err := benchmark.SaveCSV(report, csvPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to save CSV output: %v\n", err)
	} else {
		fmt.Fprintf(out, "CSV output saved to: %s\n", csvPath)
	}

	mdPath := filepath.Join(outputDir, reportName+".md")
	if err := benchmark.SaveMarkdown(report, mdPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to save Markdown output: %v\n", err)
	} else {
		fmt.Fprintf(out, "Markdown report saved to: %s\n", mdPath)
	}

	return nil
}
