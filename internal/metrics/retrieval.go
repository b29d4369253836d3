package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval and language-model Prometheus metrics.
var (
	RetrievalSearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "precedentd",
			Name:      "retrieval_searches_total",
			Help:      "Total retrieval requests by evidence outcome",
		},
		[]string{"outcome"}, // "evidence" / "insufficient"
	)

	TenantQueryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "precedentd",
			Name:      "tenant_query_failures_total",
			Help:      "Per-tenant store query failures degraded to empty results",
		},
		[]string{"tenant"},
	)

	LLMTokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "precedentd",
			Name:      "llm_tokens_total",
			Help:      "Total tokens streamed from the language model",
		},
	)

	LLMStreamErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "precedentd",
			Name:      "llm_stream_errors_total",
			Help:      "Language model calls that failed or broke mid-stream",
		},
	)

	LLMFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "precedentd",
			Name:      "llm_fallbacks_total",
			Help:      "Answers served by the deterministic template after an LLM failure",
		},
	)
)

// RegisterRetrievalMetrics registers retrieval/LLM metrics explicitly
// (no init()), so tests can build services without double registration.
func RegisterRetrievalMetrics() {
	prometheus.MustRegister(
		RetrievalSearchesTotal,
		TenantQueryFailures,
		LLMTokensTotal,
		LLMStreamErrorsTotal,
		LLMFallbacksTotal,
	)
}
