package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitstudio_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fitstudio_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SessionJoinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitstudio_session_joins_total",
			Help: "Session join attempts by outcome",
		},
		[]string{"outcome"},
	)

	SessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitstudio_session_transitions_total",
			Help: "Session status transitions by target status",
		},
		[]string{"to"},
	)

	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitstudio_payments_total",
			Help: "Reconciled payments by status",
		},
		[]string{"status"},
	)

	PaymentAmountCentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitstudio_payment_amount_cents_total",
			Help: "Sum of reconciled payment amounts in minor units",
		},
		[]string{"currency"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitstudio_webhook_events_total",
			Help: "Payment provider webhook events by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitstudio_notifications_total",
			Help: "Notification events by status",
		},
		[]string{"status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fitstudio_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitstudio_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	ChatMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitstudio_chat_messages_total",
			Help: "Chat messages stored by sender kind",
		},
		[]string{"sender"},
	)

	ChatDeniedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitstudio_chat_denied_total",
			Help: "Chat requests rejected by the access gate",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordJoin(outcome string) {
	SessionJoinsTotal.WithLabelValues(outcome).Inc()
}

func RecordTransition(to string) {
	SessionTransitionsTotal.WithLabelValues(to).Inc()
}

func RecordPayment(status, currency string, amountCents int64) {
	PaymentsTotal.WithLabelValues(status).Inc()
	if amountCents > 0 {
		PaymentAmountCentsTotal.WithLabelValues(currency).Add(float64(amountCents))
	}
}

func RecordWebhook(eventType, outcome string) {
	WebhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func RecordNotification(status string) {
	NotificationsTotal.WithLabelValues(status).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func RecordChatMessage(sender string) {
	ChatMessagesTotal.WithLabelValues(sender).Inc()
}

func RecordChatDenied() {
	ChatDeniedTotal.Inc()
}
