// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ExchangesTotal tracks pipeline exchanges by channel and outcome.
	ExchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_exchanges_total",
			Help: "Total conversational exchanges processed",
		},
		[]string{"channel", "outcome"},
	)

	// StageFailures tracks soft failures per pipeline stage.
	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_failures_total",
			Help: "Degraded or failed pipeline stage executions",
		},
		[]string{"stage"},
	)

	// LLMCallDuration tracks reasoning collaborator call duration.
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "LLM completion call duration",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"provider", "status"},
	)

	// TranslationChunks tracks translation calls issued per exchange.
	TranslationChunks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "translation_chunks_total",
			Help: "Translation collaborator calls issued",
		},
	)

	// SynthesisChunks tracks TTS calls issued per exchange.
	SynthesisChunks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synthesis_chunks_total",
			Help: "Speech synthesis collaborator calls issued",
		},
	)

	// WSConnectionsActive tracks active WebSocket connections.
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	// SessionsActive tracks sessions held in the session store.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of sessions in the session store",
		},
	)

	// DocumentsProcessed tracks uploaded and parsed documents.
	DocumentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_processed_total",
			Help: "Uploaded documents processed",
		},
		[]string{"status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMCall records a reasoning collaborator call.
func RecordLLMCall(provider, status string, seconds float64) {
	LLMCallDuration.WithLabelValues(provider, status).Observe(seconds)
}

// IncrementWSConnections increments the active WebSocket connection count.
func IncrementWSConnections() {
	WSConnectionsActive.Inc()
}

// DecrementWSConnections decrements the active WebSocket connection count.
func DecrementWSConnections() {
	WSConnectionsActive.Dec()
}
