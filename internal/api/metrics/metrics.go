// Package metrics defines and registers all custom Prometheus metrics for the
// MPT registration and access lifecycle API. It is the single source of truth
// for metric names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mpt"

// ── Registration metrics ──────────────────────────────────────────────────────

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "created", or the refusal reason ("exhausted", "expired", "inactive",
//     "not_found", "email_taken", "invalid", "error")
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok", "invalid_credentials", "blocked", "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ── Account metrics ───────────────────────────────────────────────────────────

// AccountTransitionsTotal counts admin driven account actions.
// Labels:
//   - action: "approve", "reject", "suspend", "promote", "mark_founder"
//   - result: "ok" or "error"
var AccountTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "account_transitions_total",
		Help:      "Total number of account state machine actions, by action and result.",
	},
	[]string{"action", "result"},
)

// ── Invitation code metrics ───────────────────────────────────────────────────

// CodesGeneratedTotal counts invitation codes created.
// Label:
//   - mode: "batch", "random" or "legacy"
var CodesGeneratedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invitation_codes_generated_total",
		Help:      "Total number of invitation codes generated, by generation mode.",
	},
	[]string{"mode"},
)

// CodesExpiredTotal counts codes switched off by housekeeping.
var CodesExpiredTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invitation_codes_expired_total",
		Help:      "Total number of invitation codes deactivated after expiry.",
	},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsTotal counts approval notification outcomes.
// Label:
//   - result: "sent", "duplicate", "failed", "dropped", "disabled"
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of lifecycle notifications, by result.",
	},
	[]string{"result"},
)

// NotificationQueueDepth tracks the current number of notifications waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// NotificationDuration measures how long a single delivery takes.
// Label:
//   - result: "sent" or "failed"
var NotificationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_duration_seconds",
		Help:      "Duration of notification delivery from dequeue to completion.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"result"},
)

// ── HTTP guard metrics ────────────────────────────────────────────────────────

// RateLimitedTotal counts requests refused by the rate limiter.
// Label:
//   - path: the matched route path
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the rate limiter.",
	},
	[]string{"path"},
)
