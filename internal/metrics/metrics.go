// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "plancheck"

// Workflow metrics.
var (
	WorkflowRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_runs_total",
			Help:      "Total number of compliance runs by outcome",
		},
		[]string{"outcome"}, // "ok" / "degraded" / "budget_exceeded" / "failed" / "cancelled"
	)

	WorkflowNodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_node_duration_seconds",
			Help:      "Workflow node duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"node"},
	)

	ReasoningPasses = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reasoning_passes",
			Help:      "Number of Reason passes per compliance run",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
	)
)

// Index metrics.
var (
	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	IngestedChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_chunks_total",
			Help:      "Regulation chunks stored by kind",
		},
		[]string{"kind"}, // "parent" / "child" / "table"
	)

	SearchHits = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_hits",
			Help:      "Child hits returned per index search",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)
)

var (
	workflowOnce sync.Once
	indexOnce    sync.Once
)

// RegisterWorkflowMetrics registers the workflow collectors. Safe to call more than once.
func RegisterWorkflowMetrics() {
	workflowOnce.Do(func() {
		prometheus.MustRegister(WorkflowRunsTotal)
		prometheus.MustRegister(WorkflowNodeDuration)
		prometheus.MustRegister(ReasoningPasses)
	})
}

// RegisterIndexMetrics registers the index collectors. Safe to call more than once.
func RegisterIndexMetrics() {
	indexOnce.Do(func() {
		prometheus.MustRegister(EmbeddingCacheTotal)
		prometheus.MustRegister(IngestedChunksTotal)
		prometheus.MustRegister(SearchHits)
	})
}
