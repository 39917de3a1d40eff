package progress

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// reviewsRecorded counts review attempts by result
	reviewsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexis_reviews_recorded_total",
		Help: "Review attempts by result (correct, incorrect, same_day)",
	}, []string{"result"})

	// reviewConflicts counts lost optimistic version checks, including retried ones
	reviewConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexis_review_conflicts_total",
		Help: "Progress writes rejected by the version check",
	})

	// topicRefreshDuration tracks topic rollup recomputation latency
	topicRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lexis_topic_refresh_duration_seconds",
		Help:    "Topic progress recomputation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	})

	// topicRefreshFailures counts refreshes that did not complete
	topicRefreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexis_topic_refresh_failures_total",
		Help: "Topic progress refreshes that failed",
	})

	// sessionsBuilt counts study sessions by mode
	sessionsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexis_study_sessions_built_total",
		Help: "Study sessions built by mode",
	}, []string{"mode"})

	// sessionResultFailures counts submitted results that could not be saved
	sessionResultFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexis_session_result_failures_total",
		Help: "Session results skipped because recording the review failed",
	})
)
