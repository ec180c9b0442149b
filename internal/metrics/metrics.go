package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SignupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storydrip_signups_total",
		Help: "Number of successful signups.",
	})

	NotificationsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storydrip_notifications_sent_total",
		Help: "Follow-up emails sent by the sweep loop.",
	})

	NotificationSendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storydrip_notification_send_failures_total",
		Help: "Follow-up email send attempts that failed and were left pending.",
	})

	SweepTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storydrip_sweep_ticks_total",
		Help: "Executions of the notification sweep loop.",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storydrip_http_requests_total",
		Help: "HTTP requests by route, status, and method.",
	}, []string{"endpoint", "status", "method"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storydrip_http_request_duration_seconds",
		Help:    "HTTP request latency by route and method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "method"})
)
