package benchmark

import (
	"github.com/prometheus/client_golang/prometheus"
)

// newMetricsRegistry builds a registry holding one sample per benchmark.
func newMetricsRegistry(r *Report) *prometheus.Registry {
	mean := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microbench_mean_seconds",
		Help: "Mean time per iteration after outlier pruning.",
	}, []string{"bench"})
	deviation := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microbench_deviation_seconds",
		Help: "Population standard deviation of the pruned samples.",
	}, []string{"bench"})
	samples := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microbench_samples",
		Help: "Samples collected (total) and kept after pruning (valid).",
	}, []string{"bench", "kind"})
	change := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microbench_change_ratio",
		Help: "Relative change of the mean against the previous run, when significant.",
	}, []string{"bench"})
	failed := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microbench_failed",
		Help: "1 when the benchmark produced no usable result.",
	}, []string{"bench"})

	reg := prometheus.NewRegistry()
	reg.MustRegister(mean, deviation, samples, change, failed)

	seen := make(map[string]bool)
	for _, row := range r.Rows {
		if row.Spacer || seen[row.Name] {
			continue
		}
		seen[row.Name] = true

		if row.Err != nil {
			failed.WithLabelValues(row.Name).Set(1)
			continue
		}
		failed.WithLabelValues(row.Name).Set(0)

		valid, total := row.Stats.Samples()
		mean.WithLabelValues(row.Name).Set(row.Stats.Mean())
		deviation.WithLabelValues(row.Name).Set(row.Stats.Deviation())
		samples.WithLabelValues(row.Name, "valid").Set(float64(valid))
		samples.WithLabelValues(row.Name, "total").Set(float64(total))
		if row.Changed {
			change.WithLabelValues(row.Name).Set(row.Change)
		}
	}

	return reg
}

// WriteMetrics writes the report in the Prometheus text format, for the
// node exporter's textfile collector.
func WriteMetrics(r *Report, filename string) error {
	return prometheus.WriteToTextfile(filename, newMetricsRegistry(r))
}
