package benchmark

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/attunehq/microbench/stats"
)

const noChange = "---"

// styles holds the console palette.
type styles struct {
	header lipgloss.Style
	rule   lipgloss.Style
	dim    lipgloss.Style
	mean   lipgloss.Style
	faster lipgloss.Style
	slower lipgloss.Style
	err    lipgloss.Style
}

// newStyles builds the palette. Without colour every style renders plain
// text.
func newStyles(color bool) styles {
	r := lipgloss.NewRenderer(io.Discard)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return styles{
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
		rule:   r.NewStyle().Foreground(lipgloss.Color("5")),
		dim:    r.NewStyle().Faint(true),
		mean:   r.NewStyle().Bold(true),
		faster: r.NewStyle().Foreground(lipgloss.Color("10")),
		slower: r.NewStyle().Foreground(lipgloss.Color("9")),
		err:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("208")),
	}
}

// ColorEnabled reports whether w is a terminal that should get colour.
// NO_COLOR in the environment disables it.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PrintConsole writes the report table to w, coloured when w is a terminal.
func PrintConsole(w io.Writer, r *Report) {
	fmt.Fprint(w, Render(r, ColorEnabled(w)))
}

// tableRow is one rendered line; spacer rows have no cells.
type tableRow struct {
	cells  [4]string
	errMsg string
	spacer bool
}

// Render formats the report as an aligned Method/Mean/Change/Samples table.
func Render(r *Report, color bool) string {
	st := newStyles(color)

	rows := []tableRow{
		{cells: [4]string{
			st.header.Render("Method"),
			st.header.Render("Mean"),
			st.header.Render("Change"),
			st.header.Render("Samples"),
		}},
		{spacer: true},
	}

	for _, row := range r.Rows {
		if row.Spacer {
			rows = append(rows, tableRow{spacer: true})
			continue
		}

		namespace, leaf := splitName(row.Name)
		name := st.dim.Render(namespace) + leaf
		if leaf == "" {
			name = st.dim.Render(namespace)
		}

		if row.Err != nil {
			rows = append(rows, tableRow{
				cells:  [4]string{name},
				errMsg: st.err.Render(row.Err.Error()),
			})
			continue
		}

		change := st.dim.Render(noChange)
		if row.Changed {
			if row.Change < 0 {
				change = st.faster.Render(nicePercent(row.Change))
			} else {
				change = st.slower.Render(nicePercent(row.Change))
			}
		}

		valid, total := row.Stats.Samples()
		rows = append(rows, tableRow{cells: [4]string{
			name,
			st.mean.Render(NiceMean(row.Stats.Mean())),
			change,
			st.dim.Render(niceCount(valid)) + st.rule.Render("/") + st.dim.Render(niceCount(total)),
		}})
	}

	var widths [4]int
	for _, row := range rows {
		for i, cell := range row.cells {
			if row.errMsg != "" && i > 0 {
				break
			}
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	rule := st.rule.Render(strings.Repeat("-", widths[0]+widths[1]+widths[2]+widths[3]+12))

	var b strings.Builder
	for _, row := range rows {
		switch {
		case row.spacer:
			b.WriteString(rule)
		case row.errMsg != "":
			b.WriteString(padRight(row.cells[0], widths[0]))
			b.WriteString("    ")
			b.WriteString(row.errMsg)
		default:
			b.WriteString(padRight(row.cells[0], widths[0]))
			for i := 1; i < 4; i++ {
				b.WriteString("    ")
				b.WriteString(padLeft(row.cells[i], widths[i]))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func padRight(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

func padLeft(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return strings.Repeat(" ", n) + s
	}
	return s
}

// ReportFile is the JSON form of a Report. Spacers are omitted.
type ReportFile struct {
	ID         string        `json:"id"`
	Started    time.Time     `json:"started"`
	Finished   time.Time     `json:"finished"`
	Benchmarks []ReportEntry `json:"benchmarks"`
}

// ReportEntry is one benchmark in a ReportFile. Exactly one of Stats and
// Error is set.
type ReportEntry struct {
	Name   string        `json:"name"`
	Stats  *stats.Record `json:"stats,omitempty"`
	Change *float64      `json:"change,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// File converts the report to its JSON form.
func (r *Report) File() ReportFile {
	out := ReportFile{
		ID:         r.ID.String(),
		Started:    r.Started,
		Finished:   r.Finished,
		Benchmarks: make([]ReportEntry, 0, len(r.Rows)),
	}
	for _, row := range r.Rows {
		if row.Spacer {
			continue
		}
		entry := ReportEntry{Name: row.Name}
		if row.Err != nil {
			entry.Error = row.Err.Error()
		} else {
			rec := row.Stats.Record()
			entry.Stats = &rec
			if row.Changed {
				change := row.Change
				entry.Change = &change
			}
		}
		out.Benchmarks = append(out.Benchmarks, entry)
	}
	return out
}

// SaveJSON saves the report as JSON
func SaveJSON(r *Report, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r.File())
}

// LoadJSON reads a report written by SaveJSON.
func LoadJSON(filename string) (*ReportFile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var out ReportFile
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	return &out, nil
}

// SaveCSV saves the report as CSV, one benchmark per line
func SaveCSV(r *Report, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"Name", "Mean (seconds)", "Deviation (seconds)", "Valid", "Total", "Change (%)", "Error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, entry := range r.File().Benchmarks {
		record := []string{entry.Name, "", "", "", "", "", entry.Error}
		if entry.Stats != nil {
			record[1] = fmt.Sprintf("%.9f", entry.Stats.Mean)
			record[2] = fmt.Sprintf("%.9f", entry.Stats.Deviation)
			record[3] = fmt.Sprintf("%d", entry.Stats.Valid)
			record[4] = fmt.Sprintf("%d", entry.Stats.Total)
		}
		if entry.Change != nil {
			record[5] = fmt.Sprintf("%.2f", *entry.Change*100)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// SaveMarkdown saves the report as a Markdown document
func SaveMarkdown(r *Report, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(Markdown(r))
	return err
}

// Markdown renders the report as a Markdown document.
func Markdown(r *Report) string {
	var md strings.Builder

	md.WriteString("# Benchmark Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", r.Finished.Format(time.RFC1123)))
	md.WriteString(fmt.Sprintf("- **Report ID:** `%s`\n", r.ID))
	md.WriteString(fmt.Sprintf("- **Duration:** %s\n\n", r.Finished.Sub(r.Started).Round(time.Millisecond)))

	md.WriteString("## Results\n\n")
	md.WriteString("| Method | Mean | Deviation | Change | Samples |\n")
	md.WriteString("|--------|------|-----------|--------|---------|\n")

	var failed []Row
	for _, row := range r.Rows {
		if row.Spacer {
			continue
		}
		if row.Err != nil {
			failed = append(failed, row)
			continue
		}
		change := noChange
		if row.Changed {
			change = nicePercent(row.Change)
		}
		valid, total := row.Stats.Samples()
		md.WriteString(fmt.Sprintf("| `%s` | %s | %s | %s | %s/%s |\n",
			row.Name,
			NiceMean(row.Stats.Mean()),
			NiceMean(row.Stats.Deviation()),
			change,
			niceCount(valid),
			niceCount(total)))
	}

	if len(failed) > 0 {
		md.WriteString("\n## Failures\n\n")
		for _, row := range failed {
			md.WriteString(fmt.Sprintf("- `%s`: %s\n", row.Name, row.Err))
		}
	}

	return md.String()
}
