package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Completed check cycles by outcome: ok, not_configured, error
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timernudge_checks_total",
			Help: "Total number of reminder check cycles",
		},
		[]string{"outcome"},
	)

	// Engine decisions: notify, no_action, snoozed
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timernudge_decisions_total",
			Help: "Total number of reminder engine decisions",
		},
		[]string{"decision"},
	)

	// Notification deliveries: delivered, failed
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timernudge_notifications_total",
			Help: "Total number of reminder notifications",
		},
		[]string{"result"},
	)

	// Remote API call latency (seconds)
	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timernudge_remote_call_duration_seconds",
			Help:    "Remote timer API call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"call", "status"},
	)
)

func RecordCheck(outcome string) {
	ChecksTotal.WithLabelValues(outcome).Inc()
}

func RecordDecision(decision string) {
	DecisionsTotal.WithLabelValues(decision).Inc()
}

func RecordNotification(result string) {
	NotificationsTotal.WithLabelValues(result).Inc()
}

func RecordRemoteCall(call, status string, duration time.Duration) {
	RemoteCallDuration.WithLabelValues(call, status).Observe(duration.Seconds())
}
