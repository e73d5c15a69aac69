package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/attunehq/microbench/benchmark"
	"github.com/attunehq/microbench/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or edit the stored results of previous runs",
	Long: `Inspect or edit the stored results that changes are reported against.

The store is chosen like for a benchmark run: --history, --badger, or the
default file in the temporary directory.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every stored benchmark",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show the stored stats for one benchmark",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyRmCmd = &cobra.Command{
	Use:   "rm NAME...",
	Short: "Remove stored benchmarks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistoryRm,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every stored benchmark",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

func init() {
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyRmCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	h, err := openHistory(newLogger(cmd.ErrOrStderr(), debug))
	if err != nil {
		return err
	}
	defer h.Close()

	out := cmd.OutOrStdout()
	if h.Len() == 0 {
		fmt.Fprintln(out, "No stored benchmarks.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMEAN\tDEVIATION\tSAMPLES")
	for _, name := range h.Names() {
		s, _ := h.Get(name)
		valid, total := s.Samples()
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\n", name, benchmark.NiceMean(s.Mean()), benchmark.NiceMean(s.Deviation()), valid, total)
	}
	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	h, err := openHistory(newLogger(cmd.ErrOrStderr(), debug))
	if err != nil {
		return err
	}
	defer h.Close()

	s, ok := h.Get(args[0])
	if !ok {
		return fmt.Errorf("no stored benchmark named %q", args[0])
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:      %s\n", args[0])
	fmt.Fprintf(out, "Mean:      %s (%.9fs)\n", benchmark.NiceMean(s.Mean()), s.Mean())
	fmt.Fprintf(out, "Deviation: %s (%.9fs)\n", benchmark.NiceMean(s.Deviation()), s.Deviation())
	fmt.Fprintf(out, "Samples:   %d valid of %d\n", s.Valid(), s.Total())
	return nil
}

func runHistoryRm(cmd *cobra.Command, args []string) error {
	h, err := openHistory(newLogger(cmd.ErrOrStderr(), debug))
	if err != nil {
		return err
	}
	defer h.Close()

	var missing []string
	for _, name := range args {
		if !h.Remove(name) {
			missing = append(missing, name)
		}
	}
	h.Save()

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d benchmark(s)\n", len(args)-len(missing))
	if len(missing) > 0 {
		return fmt.Errorf("no stored benchmark named %q", missing)
	}
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd.ErrOrStderr(), debug)
	backend, err := openBackend(logger)
	if err != nil {
		return err
	}

	// A history file is removed outright; other stores are emptied.
	if fb, ok := backend.(*history.FileBackend); ok {
		if err := fb.Clear(); err != nil {
			return fmt.Errorf("error clearing history: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", fb.Path())
		return nil
	}

	h := history.Open(backend, history.WithLogger(logger))
	defer h.Close()
	n := h.Len()
	for _, name := range h.Names() {
		h.Remove(name)
	}
	h.Save()
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d benchmark(s)\n", n)
	return nil
}
