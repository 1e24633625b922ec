// Package metrics defines and registers the custom Prometheus metrics of the
// auth core. It is the single source of truth for metric names, labels and
// help strings.
//
// Metrics are registered with the default registry through promauto when the
// package is first imported.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hikari_auth"

// ── Session metrics ───────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "tenant_not_found", "tenant_inactive", "captcha" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RefreshTotal counts refresh token exchanges.
// Label:
//   - result: "success", "invalid" or "error"
var RefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_total",
		Help:      "Total number of refresh token exchanges, by result.",
	},
	[]string{"result"},
)

// ── Pipeline metrics ──────────────────────────────────────────────────────────

// RateLimitRejectionsTotal counts requests rejected with 429.
// Label:
//   - policy: the rate limit policy name (e.g. "login", "register", "default")
var RateLimitRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_rejections_total",
		Help:      "Total number of requests rejected by a rate limit policy.",
	},
	[]string{"policy"},
)

// SecurityViolationsTotal counts requests the pipeline refused.
// Label:
//   - kind: "tenant_boundary", "forbidden", "unauthenticated", "validation"
var SecurityViolationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "security_violations_total",
		Help:      "Total number of requests refused by a security check.",
	},
	[]string{"kind"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEventsTotal counts audit events written by the dispatcher.
// Label:
//   - risk: LOW, MEDIUM, HIGH or CRITICAL
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit events recorded, by risk level.",
	},
	[]string{"risk"},
)

// AuditFindingsTotal counts outbound payload findings.
// Label:
//   - kind: e.g. "tenant_leak", "sensitive_password"
var AuditFindingsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_findings_total",
		Help:      "Total number of outbound payload findings, by kind.",
	},
	[]string{"kind"},
)

// AuditDroppedTotal counts audit events discarded because a worker buffer was full.
var AuditDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Total number of audit events dropped on a full worker buffer.",
	},
)

// AuditQueueDepth tracks the number of audit events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Maintenance metrics ───────────────────────────────────────────────────────

// SweepDeletedTotal counts expired refresh tokens removed by the sweeper.
var SweepDeletedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_deleted_total",
		Help:      "Total number of expired refresh tokens deleted by the sweeper.",
	},
)

// SweepDuration measures one sweep pass.
var SweepDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sweep_duration_seconds",
		Help:      "Duration of one expired token sweep.",
		Buckets:   prometheus.DefBuckets,
	},
)
