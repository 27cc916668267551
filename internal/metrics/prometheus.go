package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adgraph_query_duration_seconds",
			Help:    "Query processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"query_type"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adgraph_query_total",
			Help: "Total number of queries processed",
		},
		[]string{"status"},
	)

	QueryRefusals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adgraph_query_refusals_total",
			Help: "Total queries refused for insufficient confidence",
		},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adgraph_confidence_score",
			Help:    "Response confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	RetrievedEntities = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adgraph_retrieved_entities_count",
			Help:    "Number of graph entities retrieved per query",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	RetrievedMetrics = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adgraph_retrieved_metrics_count",
			Help:    "Number of metric rows retrieved per query",
			Buckets: []float64{0, 10, 50, 100, 250, 500, 1000},
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adgraph_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"type"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adgraph_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adgraph_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	UserSatisfaction = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adgraph_feedback_total",
			Help: "User feedback by helpfulness",
		},
		[]string{"helpful"},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(QueryRefusals)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(RetrievedEntities)
	prometheus.MustRegister(RetrievedMetrics)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(UserSatisfaction)
}

func RecordQuery(queryType, status string, duration time.Duration) {
	QueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
	QueryTotal.WithLabelValues(status).Inc()
}

func RecordRefusal() {
	QueryRefusals.Inc()
}

func ObserveConfidence(score float64) {
	ConfidenceScore.Observe(score)
}

func RecordRetrieval(entities, metricRows int) {
	RetrievedEntities.Observe(float64(entities))
	RetrievedMetrics.Observe(float64(metricRows))
}

func RecordTokens(prompt, completion int) {
	LLMTokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	LLMTokensUsed.WithLabelValues("completion").Add(float64(completion))
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
