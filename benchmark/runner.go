package benchmark

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/attunehq/microbench/stats"
)

// iteration runs the callback once and returns how long it took.
type iteration func() (time.Duration, error)

func (b *Bench) run(iter iteration) *Bench {
	if b.IsSpacer() {
		return b
	}
	b.started = time.Now()
	times, err := collect(b.samples, b.timeout, iter)
	b.record(times, err)
	return b
}

// collect calls iter until limit samples are taken or the elapsed time
// reaches timeout. At least one sample is always attempted.
func collect(limit int, timeout time.Duration, iter iteration) ([]time.Duration, error) {
	times := make([]time.Duration, 0, limit)
	start := time.Now()

	for len(times) < limit {
		d, err := iter()
		if err != nil {
			return times, fmt.Errorf("sample %d: %w", len(times)+1, err)
		}
		times = append(times, d)

		if time.Since(start) >= timeout {
			break
		}
	}

	return times, nil
}

// record stores the outcome of a collection run.
func (b *Bench) record(times []time.Duration, err error) {
	b.ran = true
	if err != nil {
		b.stats, b.err = stats.RunStats{}, err
		return
	}
	b.stats, b.err = stats.CrunchDurations(times)
}

// Command returns a callback that runs cmdline through bash, so pipes and
// && work. A failing command's stderr is included in the error.
func Command(cmdline string) func() error {
	return func() error {
		var stderr bytes.Buffer
		cmd := exec.Command("bash", "-c", cmdline)
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return fmt.Errorf("%w: %s", err, lastLine(msg))
			}
			return err
		}
		return nil
	}
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
