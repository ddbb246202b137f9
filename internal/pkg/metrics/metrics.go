package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentAttemptsTotal counts finished payment attempts by provider and final state.
	PaymentAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "creditfox",
		Subsystem: "payment",
		Name:      "attempts_total",
		Help:      "Payment attempts by provider and outcome.",
	}, []string{"provider", "outcome"})

	// PaymentFailuresTotal counts failed attempts by error category.
	PaymentFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "creditfox",
		Subsystem: "payment",
		Name:      "failures_total",
		Help:      "Failed payment attempts by provider and failure category.",
	}, []string{"provider", "category"})

	// CreditMutationsTotal counts ledger calls by direction and result.
	CreditMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "creditfox",
		Subsystem: "ledger",
		Name:      "mutations_total",
		Help:      "Credit add/remove calls by direction and result.",
	}, []string{"direction", "result"})

	// BackendRequestDuration tracks latency of calls to the user/credits backend.
	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "creditfox",
		Subsystem: "backend",
		Name:      "request_duration_seconds",
		Help:      "Backend request duration in seconds by endpoint and status class.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "status"})

	// WebhookEventsTotal counts provider webhook deliveries.
	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "creditfox",
		Subsystem: "webhook",
		Name:      "events_total",
		Help:      "Provider webhook deliveries by provider, event type and result.",
	}, []string{"provider", "event_type", "result"})
)
