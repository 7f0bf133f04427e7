package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	DispatchOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_outcomes_total",
			Help: "Delivery outcomes by sender variant and classification (count)",
		},
		[]string{"variant", "outcome"},
	)

	GatewayCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_call_duration_ms",
			Help:    "Push gateway call duration in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"status"},
	)

	FanoutTasksPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_tasks_published_total",
			Help: "Push tasks published to the delivery queue by mode (count)",
		},
		[]string{"mode"},
	)

	FanoutRejectedRecipientsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fanout_rejected_recipients_total",
			Help: "Recipients rejected at publish time for missing mandatory placeholders (count)",
		},
	)

	StatsWriteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stats_write_failures_total",
			Help: "Failed writes to the stats stores by store (count)",
		},
		[]string{"store"},
	)

	ContactRemovalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_removals_total",
			Help: "Contact removal signals after invalid-subscription responses (count)",
		},
		[]string{"status"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_retry_attempts_total",
			Help: "Queue message processing retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_dlq_messages_total",
			Help: "Messages routed to the dead letter queue (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

func RegisterDispatchMetrics() {
	prometheus.MustRegister(
		DispatchOutcomesTotal,
		GatewayCallDuration,
		StatsWriteFailuresTotal,
		ContactRemovalsTotal,
	)
}

func RegisterFanoutMetrics() {
	prometheus.MustRegister(
		FanoutTasksPublishedTotal,
		FanoutRejectedRecipientsTotal,
	)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(
		RetryAttemptsTotal,
		DLQMessagesTotal,
	)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
}

func ObserveGatewayCall(duration time.Duration, status string) {
	GatewayCallDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}
