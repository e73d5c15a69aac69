package benchmark

import (
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/attunehq/microbench/history"
	"github.com/attunehq/microbench/stats"
)

var (
	// ErrNoBench is returned when a batch holds no benchmarks.
	ErrNoBench = errors.New("at least one benchmark is required")

	// ErrNoRun marks a benchmark that was never run.
	ErrNoRun = errors.New("benchmark was never run")

	// ErrDupeName marks a benchmark whose name was already used in the batch.
	ErrDupeName = errors.New("benchmark names must be unique")
)

// Benches is an ordered batch of benchmarks. The zero value is ready to use.
type Benches struct {
	list []*Bench
}

// Push appends benchmarks to the batch.
func (bs *Benches) Push(b ...*Bench) {
	bs.list = append(bs.list, b...)
}

// Extend appends every benchmark in list.
func (bs *Benches) Extend(list []*Bench) {
	bs.Push(list...)
}

// Len returns the number of entries, spacers included.
func (bs *Benches) Len() int { return len(bs.list) }

// Row is one line of a Report.
type Row struct {
	Name   string
	Spacer bool

	// Stats is set when Err is nil.
	Stats stats.RunStats
	Err   error

	// Change is the relative change against history, valid when Changed.
	Change  float64
	Changed bool
}

// Report is the outcome of a batch.
type Report struct {
	ID       uuid.UUID
	Started  time.Time
	Finished time.Time
	Rows     []Row
}

// Failed returns the number of rows that carry an error.
func (r *Report) Failed() int {
	n := 0
	for _, row := range r.Rows {
		if row.Err != nil {
			n++
		}
	}
	return n
}

// Report builds rows for every benchmark, comparing each against h, then
// inserts the successful stats into h. h may be nil. Report does not save h.
func (bs *Benches) Report(h *history.History) (*Report, error) {
	if len(bs.list) == 0 {
		return nil, ErrNoBench
	}

	report := &Report{
		ID:   uuid.New(),
		Rows: make([]Row, 0, len(bs.list)),
	}

	seen := make(map[string]bool, len(bs.list))
	fresh := make(map[string]stats.RunStats, len(bs.list))

	for _, b := range bs.list {
		if b.IsSpacer() {
			report.Rows = append(report.Rows, Row{Spacer: true})
			continue
		}
		if !b.started.IsZero() && (report.Started.IsZero() || b.started.Before(report.Started)) {
			report.Started = b.started
		}

		row := Row{Name: b.name}
		if seen[b.name] {
			row.Err = ErrDupeName
			report.Rows = append(report.Rows, row)
			continue
		}
		seen[b.name] = true

		s, err := b.Result()
		if err != nil {
			row.Err = err
			report.Rows = append(report.Rows, row)
			continue
		}

		row.Stats = s
		if h != nil {
			if prev, ok := h.Get(b.name); ok {
				row.Change, row.Changed = s.Deviance(prev)
			}
		}
		fresh[b.name] = s
		report.Rows = append(report.Rows, row)
	}

	if h != nil {
		for name, s := range fresh {
			h.Insert(name, s)
		}
	}

	report.Finished = time.Now()
	if report.Started.IsZero() {
		report.Started = report.Finished
	}
	return report, nil
}

// Finish reports the batch against the history chosen by the environment,
// saves the updated history and prints the table to w.
func (bs *Benches) Finish(w io.Writer) (*Report, error) {
	h := history.OpenDefault(nil)
	defer h.Close()

	report, err := bs.Report(h)
	if err != nil {
		return nil, err
	}
	h.Save()

	PrintConsole(w, report)
	return report, nil
}
