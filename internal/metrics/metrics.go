// Package metrics records generation metrics and writes them in the
// Prometheus text format, for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Benny93/schemadoc-go/internal/corpus"
)

// Metrics holds Prometheus metrics for generation runs
type Metrics struct {
	registry *prometheus.Registry

	runsTotal     prometheus.Counter
	runFailures   prometheus.Counter
	lastRun       prometheus.Gauge
	phaseDuration *prometheus.GaugeVec
	documents     *prometheus.GaugeVec
	issues        *prometheus.GaugeVec
	filesWritten  prometheus.Gauge
}

// New creates a metrics set on its own registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.runsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schemadoc_runs_total",
		Help: "Total number of generation runs",
	})
	m.runFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schemadoc_run_failures_total",
		Help: "Total number of generation runs aborted by a fatal error",
	})
	m.lastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schemadoc_last_run_timestamp_seconds",
		Help: "Unix time of the last completed run",
	})
	m.phaseDuration = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "schemadoc_phase_duration_seconds",
		Help: "Duration of each pipeline phase in the last run",
	}, []string{"phase"})
	m.documents = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "schemadoc_documents",
		Help: "Documents written in the last run",
	}, []string{"kind"})
	m.issues = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "schemadoc_issues",
		Help: "Issues reported in the last run",
	}, []string{"kind"})
	m.filesWritten = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schemadoc_files_written",
		Help: "Files written in the last run, across all formats",
	})

	m.registry.MustRegister(m.runsTotal, m.runFailures, m.lastRun, m.phaseDuration,
		m.documents, m.issues, m.filesWritten)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePhase records how long a pipeline phase took.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	m.phaseDuration.WithLabelValues(phase).Set(d.Seconds())
}

// ObserveFailure counts a run aborted before writing.
func (m *Metrics) ObserveFailure() {
	m.runsTotal.Inc()
	m.runFailures.Inc()
}

// ObserveReport records the outcome of a completed run.
func (m *Metrics) ObserveReport(r *corpus.Report, at time.Time) {
	m.runsTotal.Inc()
	m.lastRun.Set(float64(at.Unix()))
	m.documents.WithLabelValues("type").Set(float64(r.Types))
	m.documents.WithLabelValues("property").Set(float64(r.Properties))
	m.filesWritten.Set(float64(r.Files))

	m.issues.Reset()
	counts := make(map[string]int)
	for _, w := range r.Issues {
		counts[string(w.Kind)]++
	}
	for kind, n := range counts {
		m.issues.WithLabelValues(kind).Set(float64(n))
	}
}

// WriteTextfile writes all metrics to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
