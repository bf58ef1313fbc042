package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion and query pipeline metrics.
var (
	IngestRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Ingestion runs by outcome (ok, partial, degraded, error)",
		},
		[]string{"outcome"},
	)

	IngestDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_documents_total",
			Help:      "Source files loaded or skipped during ingestion",
		},
		[]string{"result"}, // "loaded" / "failed"
	)

	IngestBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_batches_total",
			Help:      "Embedding batches by status",
		},
		[]string{"status"},
	)

	IngestPassagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_passages_total",
			Help:      "Passages written to the vector index",
		},
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Questions answered by outcome (answered, fallback, error)",
		},
		[]string{"outcome", "strategy"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_attempts_total",
			Help:      "Provider call retries after a failed attempt",
		},
		[]string{"operation"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers ingestion, query and retry metrics. Safe to call repeatedly.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestRunsTotal)
	prometheus.MustRegister(IngestDocumentsTotal)
	prometheus.MustRegister(IngestBatchesTotal)
	prometheus.MustRegister(IngestPassagesTotal)
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(RetryAttemptsTotal)
	pipelineMetricsRegistered = true
}
