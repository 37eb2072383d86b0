package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reeldesk_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reeldesk_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5, 30},
		},
		[]string{"method", "route"},
	)

	// Support desk metrics
	ClaimAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reeldesk_claim_attempts_total",
			Help: "Claim attempts by outcome",
		},
		[]string{"result"}, // "won", "lost"
	)

	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reeldesk_escalations_total",
			Help: "Escalations by outcome",
		},
		[]string{"outcome"}, // "created", "reused", "failed"
	)

	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reeldesk_messages_appended_total",
			Help: "Messages appended to rooms",
		},
		[]string{"kind"},
	)

	PostsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reeldesk_posts_rejected_total",
			Help: "Posts rejected because the room was closed or the sender was not a participant",
		},
	)

	AssistantReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reeldesk_assistant_replies_total",
			Help: "Assistant replies by topic",
		},
		[]string{"topic"},
	)

	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reeldesk_notification_failures_total",
			Help: "Staff notifications that could not be recorded or delivered",
		},
	)

	// Feed metrics
	FeedSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reeldesk_feed_websocket_clients",
			Help: "Open websocket feed connections",
		},
	)

	// Billing metrics
	SubscriptionActivations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reeldesk_subscription_activations_total",
			Help: "Subscription activations by tier",
		},
		[]string{"tier"},
	)
)
