package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "survey_store_query_duration_seconds",
		Help:    "Duration of store calls by operation",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"op"})

	storeQueryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "survey_store_query_errors_total",
		Help: "Store calls that returned an error, by operation",
	}, []string{"op"})

	responsesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "survey_responses_ingested_total",
		Help: "Response rows persisted",
	})

	submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "survey_submissions_total",
		Help: "Submitted answer sets by result",
	}, []string{"result"})

	aiStatisticsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "survey_ai_statistics_generated_total",
		Help: "AI statistics snapshots appended",
	})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "survey_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "survey_rate_limited_total",
		Help: "Requests rejected by the rate limiter, by backend",
	}, []string{"backend"})

	activeGuards = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "survey_dashboard_guards_active",
		Help: "Mounted dashboard session guards",
	})
)

// ObserveStoreQuery records one store call
func ObserveStoreQuery(op string, d time.Duration, err error) {
	storeQueryDuration.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		storeQueryErrors.WithLabelValues(op).Inc()
	}
}

// Submission results
const (
	SubmissionAccepted = "accepted"
	SubmissionRejected = "rejected"
	SubmissionFailed   = "failed"
)

// RecordSubmission counts a submission and, when accepted, its rows
func RecordSubmission(result string, rows int) {
	submissions.WithLabelValues(result).Inc()
	if result == SubmissionAccepted {
		responsesIngested.Add(float64(rows))
	}
}

func RecordAiStatistic() {
	aiStatisticsGenerated.Inc()
}

func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequestDuration.WithLabelValues(method, route, statusLabel(status)).Observe(d.Seconds())
}

func RecordRateLimited(backend string) {
	rateLimited.WithLabelValues(backend).Inc()
}

// GuardMounted tracks live guards; call the returned func on teardown.
func GuardMounted() func() {
	activeGuards.Inc()
	return activeGuards.Dec
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
