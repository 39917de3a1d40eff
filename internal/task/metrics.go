package task

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lexis_task_queue_depth",
		Help: "Tasks waiting in the background queue after the last enqueue",
	})

	tasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexis_tasks_processed_total",
		Help: "Background tasks executed, by type and result",
	}, []string{"type", "result"})

	refreshFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexis_topic_refresh_inline_fallbacks_total",
		Help: "Topic refreshes run inline because the queue could not take them",
	})
)
