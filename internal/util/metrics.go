package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StoresConnectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stores_connected_total",
		Help: "Total number of stores connected",
	})

	StoresDisconnectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stores_disconnected_total",
		Help: "Total number of stores disconnected",
	})

	MockDataGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mock_data_generated_total",
		Help: "Total number of mock data generations",
	}, []string{"trigger"})

	QuestionsAskedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "questions_asked_total",
		Help: "Total number of answered questions by intent and confidence",
	}, []string{"intent", "confidence"})

	QuestionsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "questions_failed_total",
		Help: "Total number of questions that could not be answered",
	}, []string{"reason"})

	PipelineDegradedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_degraded_total",
		Help: "Total number of pipeline stages that fell back to a default",
	}, []string{"stage"})

	LLMCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_call_latency_seconds",
		Help:    "Latency of language model calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	LLMCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_calls_total",
		Help: "Total number of language model calls",
	}, []string{"stage", "outcome"})

	QuestionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "question_latency_seconds",
		Help:    "End to end latency of answering a question",
		Buckets: prometheus.DefBuckets,
	})

	AnalyticsCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_cache_total",
		Help: "Analytics summary cache lookups",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
