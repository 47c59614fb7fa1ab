// Package metrics exposes Prometheus collectors for ingestion, queries and
// mutations. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics owns a private registry and the ledger collectors.
type Metrics struct {
	reg *prometheus.Registry

	ingestRows    prometheus.Counter       // jangbu_ingest_rows_total
	ingestBatches *prometheus.CounterVec   // jangbu_ingest_batches_total{status}
	queries       *prometheus.CounterVec   // jangbu_queries_total{op,status}
	queryDuration *prometheus.HistogramVec // jangbu_query_duration_seconds{op}
	mutations     *prometheus.CounterVec   // jangbu_mutations_total{op,status}
	duplicates    prometheus.Gauge         // jangbu_duplicate_records
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		ingestRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jangbu_ingest_rows_total",
			Help: "Ledger rows appended by ingestion.",
		}),
		ingestBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jangbu_ingest_batches_total",
			Help: "Ingestion batches by outcome.",
		}, []string{"status"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jangbu_queries_total",
			Help: "Read queries by operation and outcome.",
		}, []string{"op", "status"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jangbu_query_duration_seconds",
			Help:    "Read query latency by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jangbu_mutations_total",
			Help: "Update and delete operations by outcome.",
		}, []string{"op", "status"}),
		duplicates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jangbu_duplicate_records",
			Help: "Records in duplicate groups at the last scan.",
		}),
	}
	m.reg.MustRegister(m.ingestRows, m.ingestBatches, m.queries, m.queryDuration, m.mutations, m.duplicates)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// ObserveIngest records one batch. rows counts only on success.
func (m *Metrics) ObserveIngest(rows int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ingestBatches.WithLabelValues(StatusError).Inc()
		return
	}
	m.ingestBatches.WithLabelValues(StatusOK).Inc()
	m.ingestRows.Add(float64(rows))
}

// ObserveQuery records a read operation started at start.
func (m *Metrics) ObserveQuery(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(op, status(err)).Inc()
	m.queryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveMutation records an update, delete or reset.
func (m *Metrics) ObserveMutation(op string, err error) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, status(err)).Inc()
}

// SetDuplicates records the size of the last duplicate scan.
func (m *Metrics) SetDuplicates(n int) {
	if m == nil {
		return
	}
	m.duplicates.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
