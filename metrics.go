package wilayah

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects per-run counters on a private registry. The registry can be
// dumped to a node_exporter textfile after the run with WriteTextfile.
type Metrics struct {
	registry *prometheus.Registry

	records  *prometheus.CounterVec
	skipped  prometheus.Counter
	rejected prometheus.Counter
	files    *prometheus.CounterVec
	duration prometheus.Gauge
	success  prometheus.Gauge
}

// NewMetrics creates a Metrics with all collectors registered.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wilayah_records_total",
			Help: "Records classified, by hierarchy level.",
		}, []string{"level"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wilayah_records_skipped_total",
			Help: "Matched tuples dropped because the code is not numeric.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wilayah_records_rejected_total",
			Help: "Numeric codes that fit no hierarchy level.",
		}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wilayah_files_written_total",
			Help: "Output documents written, by hierarchy level.",
		}, []string{"level"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wilayah_last_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wilayah_last_run_success",
			Help: "1 if the last run finished without error, 0 otherwise.",
		}),
	}
	m.registry.MustRegister(m.records, m.skipped, m.rejected, m.files, m.duration, m.success)
	return m
}

// WriteTextfile writes the current metric values in text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observeBuckets(b *Buckets, skipped int) {
	m.records.WithLabelValues(Region.String()).Add(float64(len(b.States)))
	for _, l := range Levels[1:] {
		g := b.Group(l)
		n := 0
		for _, key := range g.keys {
			n += len(g.records[key])
		}
		m.records.WithLabelValues(l.String()).Add(float64(n))
	}
	m.skipped.Add(float64(skipped))
	m.rejected.Add(float64(len(b.Rejected)))
}

func (m *Metrics) observeFiles(l Level, n int) {
	m.files.WithLabelValues(l.String()).Add(float64(n))
}

func (m *Metrics) observeRun(d time.Duration, err error) {
	m.duration.Set(d.Seconds())
	if err != nil {
		m.success.Set(0)
		return
	}
	m.success.Set(1)
}
