package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	queries         *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	resultRows      *prometheus.HistogramVec
	flagged         *prometheus.GaugeVec
	snapshotRows    prometheus.Gauge
	snapshotVersion prometheus.Gauge
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates a recorder registered on reg.
func NewWith(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		queries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskscreen_queries_total",
				Help: "Screening queries served, by rule",
			},
			[]string{"rule"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskscreen_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskscreen_query_duration_seconds",
				Help:    "Duration of screening evaluations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"rule"},
		),
		resultRows: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskscreen_query_result_rows",
				Help:    "Rows returned per screening query",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"rule"},
		),
		flagged: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "riskscreen_flagged_entities",
				Help: "Entities flagged by the last evaluation of a rule",
			},
			[]string{"rule"},
		),
		snapshotRows: f.NewGauge(prometheus.GaugeOpts{
			Name: "riskscreen_snapshot_rows",
			Help: "Report rows in the current panel snapshot",
		}),
		snapshotVersion: f.NewGauge(prometheus.GaugeOpts{
			Name: "riskscreen_snapshot_version",
			Help: "Version of the current panel snapshot",
		}),
	}
}

// RecordQuery records one evaluated query.
func (r *Recorder) RecordQuery(rule string, seconds float64, rows int) {
	r.queries.WithLabelValues(rule).Inc()
	r.latency.WithLabelValues(rule).Observe(seconds)
	r.resultRows.WithLabelValues(rule).Observe(float64(rows))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordSnapshot records the size and version of a freshly loaded snapshot.
func (r *Recorder) RecordSnapshot(rows int, version uint64) {
	r.snapshotRows.Set(float64(rows))
	r.snapshotVersion.Set(float64(version))
}

// RecordFlags records how many entities a rule flagged.
func (r *Recorder) RecordFlags(rule string, count int) {
	r.flagged.WithLabelValues(rule).Set(float64(count))
}

