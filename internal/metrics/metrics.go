package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtside_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courtside_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtside_bookings_total",
			Help: "Total number of bookings created",
		},
		[]string{"status"},
	)

	SlotConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courtside_slot_conflicts_total",
			Help: "Total number of slot reservation conflicts",
		},
	)

	BookingCancellationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtside_booking_cancellations_total",
			Help: "Total number of booking cancellations",
		},
		[]string{"reason"},
	)

	HoldsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courtside_holds_expired_total",
			Help: "Total number of holds released by the expiry sweeper",
		},
	)

	CheckoutAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtside_checkout_attempts_total",
			Help: "Total number of checkout attempts by terminal status",
		},
		[]string{"type", "status"},
	)

	ReconcilePollsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courtside_reconcile_polls_total",
			Help: "Total number of reconciliation status polls against the payment provider",
		},
	)

	ReconcileOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtside_reconcile_outcomes_total",
			Help: "Total number of reconciliation runs by outcome",
		},
		[]string{"outcome"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtside_webhook_events_total",
			Help: "Total number of payment webhook events received",
		},
		[]string{"result"},
	)

	SupersededCapturesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courtside_superseded_captures_total",
			Help: "Total number of captured charges rejected because a newer payment attempt owns the booking; each needs a manual void or refund",
		},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtside_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "courtside_email_queue_length",
			Help: "Current length of the email queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}
