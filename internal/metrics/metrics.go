// Package metrics is the engine's Metrics Sink: a thin adapter over
// Prometheus client_golang that only exposes named observations, so
// the rest of the core never imports the Prometheus API directly.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink is the interface the dispatcher, worker, and executors emit
// observations against. Keeping it an interface (rather than a bare
// *Metrics struct) lets tests substitute a no-op or recording double.
type Sink interface {
	IncJobsProcessed(status string)
	ObserveJobDuration(seconds float64)
	IncHTTPRequests(statusCode int)
	IncKafkaMessages()
	SetCurrentProcessingJobs(n int)
}

// Metrics is the Prometheus-backed Sink implementation. Metric names
// match the specification's exposition exactly.
type Metrics struct {
	jobsProcessedTotal    *prometheus.CounterVec
	httpRequestsTotal     *prometheus.CounterVec
	kafkaMessagesTotal    prometheus.Counter
	jobDuration           prometheus.Histogram
	currentProcessingJobs prometheus.Gauge
}

// New registers the engine's metrics against reg and returns a Sink.
// Pass prometheus.NewRegistry() in tests to avoid collisions with the
// global default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsProcessedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Total jobs processed, partitioned by terminal outcome.",
		}, []string{"status"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_http_requests_total",
			Help: "Total HTTP executor requests, partitioned by response status code.",
		}, []string{"status_code"}),
		kafkaMessagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobs_kafka_messages_total",
			Help: "Total messages published by the Kafka executor.",
		}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobs_duration_seconds",
			Help:    "Time spent in the executor call for a single job.",
			Buckets: prometheus.DefBuckets,
		}),
		currentProcessingJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "current_processing_jobs",
			Help: "Number of jobs currently held by a worker slot.",
		}),
	}

	reg.MustRegister(
		m.jobsProcessedTotal,
		m.httpRequestsTotal,
		m.kafkaMessagesTotal,
		m.jobDuration,
		m.currentProcessingJobs,
	)
	return m
}

func (m *Metrics) IncJobsProcessed(status string) {
	m.jobsProcessedTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveJobDuration(seconds float64) {
	m.jobDuration.Observe(seconds)
}

func (m *Metrics) IncHTTPRequests(statusCode int) {
	m.httpRequestsTotal.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (m *Metrics) IncKafkaMessages() {
	m.kafkaMessagesTotal.Inc()
}

func (m *Metrics) SetCurrentProcessingJobs(n int) {
	m.currentProcessingJobs.Set(float64(n))
}
