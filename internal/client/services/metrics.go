package services

import "github.com/prometheus/client_golang/prometheus"

var (
	deliveredCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitiq",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Number of outbox events acknowledged by the backend.",
	}, []string{"event_type"})

	retriedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitiq",
		Subsystem: "outbox",
		Name:      "events_retried_total",
		Help:      "Number of transient delivery failures scheduled for another attempt.",
	}, []string{"event_type"})

	failedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitiq",
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Number of outbox events given up on, labeled by reason.",
	}, []string{"event_type", "reason"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fitiq",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent fetching, delivering and marking one outbox batch.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(deliveredCounter, retriedCounter, failedCounter, batchDuration)
}
