package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragpp_query_duration_seconds",
			Help:    "Query processing duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"intent"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragpp_query_total",
			Help: "Total number of queries processed",
		},
		[]string{"status"},
	)

	ConfidenceLevelTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragpp_confidence_level_total",
			Help: "Queries answered per confidence level",
		},
		[]string{"level"},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ragpp_confidence_score",
			Help:    "Overall confidence score distribution",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	RetrievalFindings = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragpp_retrieval_findings_count",
			Help:    "Findings returned per retrieval source",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"source"},
	)

	RetrievalErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragpp_retrieval_errors_total",
			Help: "Retrieval source failures",
		},
		[]string{"source"},
	)

	EvidenceCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ragpp_evidence_count",
			Help:    "Validated evidence objects per query",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	EvidenceRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragpp_evidence_rejected_total",
			Help: "Evidence objects rejected during validation",
		},
		[]string{"reason"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragpp_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragpp_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	CorpusPoints = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ragpp_corpus_points_total",
			Help: "Metric points loaded in the corpus",
		},
	)

	KnowledgeFacts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ragpp_knowledge_facts_total",
			Help: "Facts indexed in the semantic store",
		},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(ConfidenceLevelTotal)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(RetrievalFindings)
	prometheus.MustRegister(RetrievalErrors)
	prometheus.MustRegister(EvidenceCount)
	prometheus.MustRegister(EvidenceRejected)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(CorpusPoints)
	prometheus.MustRegister(KnowledgeFacts)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
