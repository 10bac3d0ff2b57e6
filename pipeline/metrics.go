package pipeline

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline stages, used as metric labels.
const (
	StageRead     = "read"
	StageOntology = "ontology"
	StageReason   = "reason"
	StageWrite    = "write"
	StagePublish  = "publish"
)

// Statement counts, used as the stage label of stbgraph_quads.
const (
	CountRaw      = "raw"
	CountOntology = "ontology"
	CountInferred = "inferred"
	CountTotal    = "total"
)

// Metrics records pipeline runs on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	quads    *prometheus.GaugeVec
	rows     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	lastRun  prometheus.Gauge
}

// NewMetrics creates and registers the pipeline metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		quads: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stbgraph_quads",
			Help: "Statements in the graph after the last run, by stage.",
		}, []string{"stage"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stbgraph_rows_total",
			Help: "Spreadsheet rows read, by kind (task, header, blank).",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stbgraph_stage_duration_seconds",
			Help:    "Time spent per pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"stage"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stbgraph_runs_total",
			Help: "Pipeline runs, by result (success, failure).",
		}, []string{"result"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stbgraph_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
	}
	m.registry.MustRegister(m.quads, m.rows, m.duration, m.runs, m.lastRun)
	return m
}

// Registry returns the registry holding the pipeline metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(stage).Observe(d.Seconds())
}

// AddRows counts rows of the given kind.
func (m *Metrics) AddRows(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rows.WithLabelValues(kind).Add(float64(n))
}

// SetResult records the statement counts of a finished run.
func (m *Metrics) SetResult(res *Result) {
	if m == nil {
		return
	}
	m.quads.WithLabelValues(CountRaw).Set(float64(res.RawQuads))
	m.quads.WithLabelValues(CountOntology).Set(float64(res.OntologyQuads))
	m.quads.WithLabelValues(CountInferred).Set(float64(res.InferredQuads))
	m.quads.WithLabelValues(CountTotal).Set(float64(res.TotalQuads))
	m.runs.WithLabelValues("success").Inc()
	m.lastRun.Set(float64(res.CompletedAt.Unix()))
}

// RunFailed counts a failed run.
func (m *Metrics) RunFailed() {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("failure").Inc()
}

// WriteTextfile writes the metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrapf(err, "write metrics textfile %s", path)
	}
	return nil
}
