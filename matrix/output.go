package matrix

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/attunehq/microbench/benchmark"
)

// cell formats one benchmark's mean in one configuration
func cell(r ConfigResult, name string) string {
	if !r.Success {
		return "FAILED"
	}
	b, ok := r.Bench(name)
	switch {
	case !ok:
		return "-"
	case b.Error != "":
		return "ERROR"
	case b.Stats == nil:
		return "-"
	default:
		return benchmark.NiceMean(b.Stats.Mean)
	}
}

// PrintSummaryTable prints one row per benchmark and one mean column per
// configuration
func PrintSummaryTable(out io.Writer, result *MatrixResult) {
	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(out, "Matrix Benchmark Summary\n")
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	fmt.Fprintf(out, "Image: %s\n", result.Config.Image)
	fmt.Fprintf(out, "Suite: %s\n\n", result.Config.SuitePath)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	header := []string{"Method"}
	rule := []string{"------"}
	for _, r := range result.Results {
		header = append(header, r.Config.DirName())
		rule = append(rule, strings.Repeat("-", len(r.Config.DirName())))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))
	fmt.Fprintln(w, strings.Join(rule, "\t"))

	for _, name := range result.BenchNames() {
		row := []string{name}
		for _, r := range result.Results {
			row = append(row, cell(r, name))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()

	var failed []ConfigResult
	for _, r := range result.Results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintf(out, "\nFailed Configurations:\n")
		for _, r := range failed {
			fmt.Fprintf(out, "  - %s: %s\n", r.Config.String(), r.Error)
		}
	}

	fmt.Fprintf(out, "\n")
}

// PrintScalingGraph prints an ASCII bar chart of each benchmark's mean per
// configuration
func PrintScalingGraph(out io.Writer, result *MatrixResult) {
	const graphWidth = 50 // Width of the bar area in characters

	for _, name := range result.BenchNames() {
		maxMean := 0.0
		for _, r := range result.Results {
			if b, ok := r.Bench(name); ok && r.Success && b.Stats != nil {
				maxMean = max(maxMean, b.Stats.Mean)
			}
		}
		if maxMean <= 0 {
			continue
		}

		fmt.Fprintf(out, "%s\n%s\n", name, strings.Repeat("=", len(name)))
		for _, r := range result.Results {
			b, ok := r.Bench(name)
			if !ok || !r.Success || b.Stats == nil {
				continue
			}
			barWidth := max(1, int(b.Stats.Mean/maxMean*graphWidth))
			fmt.Fprintf(out, "%12s │%s %s\n", r.Config.DirName(), strings.Repeat("█", barWidth), benchmark.NiceMean(b.Stats.Mean))
		}
		fmt.Fprintf(out, "\n")
	}
}

type summaryEntry struct {
	CPUs      int      `json:"cpus"`
	Memory    int      `json:"memory"`
	Success   bool     `json:"success"`
	Error     string   `json:"error,omitempty"`
	Duration  float64  `json:"durationSeconds"`
	Name      string   `json:"name,omitempty"`
	Mean      *float64 `json:"mean,omitempty"`
	Deviation *float64 `json:"deviation,omitempty"`
	Valid     int      `json:"valid,omitempty"`
	Total     int      `json:"total,omitempty"`
	BenchErr  string   `json:"benchError,omitempty"`
}

// summaryEntries flattens the result to one entry per configuration and
// benchmark; failed configurations get a single entry
func summaryEntries(result *MatrixResult) []summaryEntry {
	var out []summaryEntry
	for _, r := range result.Results {
		base := summaryEntry{
			CPUs:     r.Config.CPUs,
			Memory:   r.Config.Memory,
			Success:  r.Success,
			Error:    r.Error,
			Duration: r.Duration.Seconds(),
		}
		if !r.Success {
			out = append(out, base)
			continue
		}
		for _, b := range r.Benchmarks {
			e := base
			e.Name = b.Name
			e.BenchErr = b.Error
			if b.Stats != nil {
				mean, dev := b.Stats.Mean, b.Stats.Deviation
				e.Mean, e.Deviation = &mean, &dev
				e.Valid, e.Total = b.Stats.Valid, b.Stats.Total
			}
			out = append(out, e)
		}
	}
	return out
}

// SaveSummaryJSON saves the matrix results as JSON
func SaveSummaryJSON(result *MatrixResult, filename string) error {
	output := map[string]interface{}{
		"config": map[string]interface{}{
			"image":     result.Config.Image,
			"suite":     result.Config.SuitePath,
			"outputDir": result.Config.OutputDir,
			"name":      result.Config.Name,
		},
		"results": summaryEntries(result),
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// SaveSummaryCSV saves the matrix results as CSV
func SaveSummaryCSV(result *MatrixResult, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"CPUs", "Memory (GB)", "Success", "Name",
		"Mean (s)", "Std Dev (s)", "Valid", "Total", "Error",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, e := range summaryEntries(result) {
		record := []string{
			fmt.Sprintf("%d", e.CPUs),
			fmt.Sprintf("%d", e.Memory),
			fmt.Sprintf("%t", e.Success),
			e.Name,
			"", "", "", "",
			e.Error + e.BenchErr,
		}
		if e.Mean != nil {
			record[4] = fmt.Sprintf("%.9f", *e.Mean)
			record[5] = fmt.Sprintf("%.9f", *e.Deviation)
			record[6] = fmt.Sprintf("%d", e.Valid)
			record[7] = fmt.Sprintf("%d", e.Total)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// SaveSummaryMarkdown saves the matrix results as Markdown
func SaveSummaryMarkdown(result *MatrixResult, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(summaryMarkdown(result, time.Now()))
	return err
}

func summaryMarkdown(result *MatrixResult, generated time.Time) string {
	var md strings.Builder

	md.WriteString("# Matrix Benchmark Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", generated.Format(time.RFC1123)))

	md.WriteString("## Configuration\n\n")
	md.WriteString(fmt.Sprintf("- **Docker Image:** `%s`\n", result.Config.Image))
	md.WriteString(fmt.Sprintf("- **Suite:** `%s`\n", result.Config.SuitePath))
	md.WriteString(fmt.Sprintf("- **Configurations:** %d\n\n", len(result.Results)))

	md.WriteString("## Results Summary\n\n")
	md.WriteString("| Method |")
	for _, r := range result.Results {
		md.WriteString(fmt.Sprintf(" %s |", r.Config.String()))
	}
	md.WriteString("\n|--------|")
	for range result.Results {
		md.WriteString("------|")
	}
	md.WriteString("\n")

	for _, name := range result.BenchNames() {
		md.WriteString(fmt.Sprintf("| `%s` |", name))
		for _, r := range result.Results {
			md.WriteString(fmt.Sprintf(" %s |", cell(r, name)))
		}
		md.WriteString("\n")
	}
	md.WriteString("\n")

	var failed []ConfigResult
	for _, r := range result.Results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		md.WriteString("## Failed Configurations\n\n")
		for _, r := range failed {
			md.WriteString(fmt.Sprintf("- **%s:** %s\n", r.Config.String(), r.Error))
		}
		md.WriteString("\n")
	}

	return md.String()
}
