package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Chat and ingestion pipeline metrics.
var (
	ChatRepliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_replies_total",
			Help:      "Chat replies by outcome",
		},
		[]string{"outcome"}, // grounded / general / degraded
	)

	RetrievedChunks = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_chunks",
			Help:      "Chunks returned by the index and kept after the relevance threshold",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8, 12, 16},
		},
		[]string{"stage"}, // "retrieved" / "kept"
	)

	IngestTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_tasks_total",
			Help:      "Background indexing tasks by final status",
		},
		[]string{"status"}, // "ok" / "error" / "rejected"
	)

	IngestTaskDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_task_duration_seconds",
			Help:      "Background indexing task duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	IngestChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_chunks_total",
			Help:      "Total chunks written to the vector index",
		},
	)

	IngestQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_queue_depth",
			Help:      "Indexing tasks waiting for a worker",
		},
	)
)

var registerOnce sync.Once

// Register registers the domain metrics with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			CompletionRequestsTotal,
			CompletionRequestDuration,
			CompletionTokensTotal,
			ChatRepliesTotal,
			RetrievedChunks,
			IngestTasksTotal,
			IngestTaskDuration,
			IngestChunksTotal,
			IngestQueueDepth,
		)
	})
}
